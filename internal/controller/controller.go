// Package controller owns the ask protocol: one conversation turn per call,
// strictly single-flight across the whole process, with session continuity
// resolved against the session store.
package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"plexd/internal/automation"
	"plexd/internal/browser"
	"plexd/internal/session"
)

// Browser is the lifecycle surface the controller needs from the browser
// manager.
type Browser interface {
	Start(ctx context.Context) error
	Started() bool
	Page() (browser.Page, error)
}

// ChallengeGate clears verification walls before a turn is driven.
type ChallengeGate interface {
	Present(ctx context.Context, page browser.Page) bool
	Bypass(ctx context.Context, page browser.Page, timeout time.Duration) bool
}

// Driver walks the submission state machine to completion.
type Driver interface {
	Drive(ctx context.Context, page browser.Page, run *automation.Run) error
}

// Extractor reads the finished answer off the page.
type Extractor interface {
	Extract(ctx context.Context, page browser.Page, run *automation.Run) (string, error)
}

// Config for the controller.
type Config struct {
	TargetURL        string
	ChallengeTimeout time.Duration
}

// Result of one successful ask.
type Result struct {
	Response        string
	SessionID       string
	ConversationURL string
}

// Readiness is the health surface reported on /health.
type Readiness struct {
	Status  string // ok | not_ready | blocked | not_logged_in | error
	Message string
}

// Controller serializes asks over the shared browser page.
type Controller struct {
	mu sync.Mutex

	cfg       Config
	log       *zap.Logger
	browser   Browser
	challenge ChallengeGate
	machine   Driver
	extractor Extractor
	sessions  *session.Store

	newID func() string
}

func New(cfg Config, b Browser, gate ChallengeGate, machine Driver, extractor Extractor, sessions *session.Store, log *zap.Logger) *Controller {
	if cfg.ChallengeTimeout == 0 {
		cfg.ChallengeTimeout = 120 * time.Second
	}
	return &Controller{
		cfg:       cfg,
		log:       log,
		browser:   b,
		challenge: gate,
		machine:   machine,
		extractor: extractor,
		sessions:  sessions,
		newID:     uuid.NewString,
	}
}

// Ask runs one conversation turn. sessionID empty starts a fresh
// conversation; otherwise the turn continues the named session. The store
// is mutated at most once per call.
func (c *Controller) Ask(ctx context.Context, question, sessionID string, returnSources bool) (Result, error) {
	if !c.mu.TryLock() {
		return Result{}, ErrBusy
	}
	defer c.mu.Unlock()

	target := c.cfg.TargetURL
	if sessionID != "" {
		url, ok := c.sessions.SessionURL(sessionID)
		if !ok {
			return Result{}, ErrSessionNotFound
		}
		target = url
	}

	if err := c.browser.Start(ctx); err != nil {
		return Result{}, err
	}
	page, err := c.browser.Page()
	if err != nil {
		return Result{}, err
	}

	if page.URL() != target {
		if err := page.Navigate(ctx, target); err != nil {
			return Result{}, err
		}
	}

	if c.challenge.Present(ctx, page) {
		if !c.challenge.Bypass(ctx, page, c.cfg.ChallengeTimeout) {
			return Result{}, ErrChallengeBlocked
		}
	}
	if !loggedIn(ctx, page) {
		return Result{}, ErrLoginRequired
	}

	run := automation.NewRun(c.newID(), question)
	c.log.Info("ask started",
		zap.String("run_id", run.ID),
		zap.String("session_id", sessionID),
		zap.Int("question_len", len(question)))

	if err := c.machine.Drive(ctx, page, run); err != nil {
		return Result{}, err
	}
	text, err := c.extractor.Extract(ctx, page, run)
	if err != nil {
		return Result{}, err
	}

	finalURL := page.URL()
	resultID := c.upsertSession(sessionID, finalURL)

	c.log.Info("ask completed",
		zap.String("run_id", run.ID),
		zap.String("session_id", resultID),
		zap.Int("response_len", len(text)))

	return Result{
		Response:        automation.CleanResponse(text, returnSources),
		SessionID:       resultID,
		ConversationURL: finalURL,
	}, nil
}

// upsertSession reconciles the store with the conversation URL the turn
// ended on. A continuation that stayed in its session is only touched; a
// new conversation is recorded under the id the URL yields, or a minted one
// when the URL carries no recognizable id.
func (c *Controller) upsertSession(requestedID, finalURL string) string {
	extracted := session.ExtractSessionID(finalURL)

	if requestedID != "" {
		if extracted == "" || extracted == requestedID {
			c.sessions.Touch(requestedID)
			return requestedID
		}
		// The UI forked the conversation under a new id. Record it so
		// the caller can keep following the thread.
		c.sessions.CreateOrUpdate(extracted, finalURL)
		return extracted
	}

	id := extracted
	if id == "" {
		id = c.newID()
	}
	c.sessions.CreateOrUpdate(id, finalURL)
	return id
}

// Warmup starts the browser in the background so health checks can be
// served while it boots. Errors are logged, not fatal: the first ask will
// retry the start.
func (c *Controller) Warmup(ctx context.Context) {
	if err := c.browser.Start(ctx); err != nil {
		c.log.Warn("browser warmup failed", zap.Error(err))
		return
	}
	c.log.Info("browser warmed up")
}

// Readiness inspects the shared page without taking the ask guard.
func (c *Controller) Readiness(ctx context.Context) Readiness {
	if !c.browser.Started() {
		return Readiness{Status: "not_ready", Message: "browser is still starting"}
	}
	page, err := c.browser.Page()
	if err != nil {
		return Readiness{Status: "error", Message: err.Error()}
	}
	if c.challenge.Present(ctx, page) {
		return Readiness{Status: "blocked", Message: "verification challenge on page"}
	}
	if !loggedIn(ctx, page) {
		return Readiness{Status: "not_logged_in", Message: "target account is signed out"}
	}
	if !automation.InputReady(page) {
		return Readiness{Status: "not_ready", Message: "question input not available yet"}
	}
	return Readiness{Status: "ok", Message: "browser ready, input available"}
}

// Sessions exposes the store for read-only listing endpoints.
func (c *Controller) Sessions() *session.Store {
	return c.sessions
}

const (
	accountMarker = "Account"
	signInMarker  = "Sign In"
)

// loggedIn checks the page for the signed-in account marker versus the
// sign-in prompt. Only positive sign-out evidence fails the check; an
// unreadable page is assumed fine and left to the state machine to disprove.
func loggedIn(ctx context.Context, page browser.Page) bool {
	res, err := page.Eval(ctx, `() => document.body ? document.body.innerText : ''`)
	if err != nil {
		return true
	}
	text := res.String()
	if strings.Contains(text, accountMarker) {
		return true
	}
	return !strings.Contains(text, signInMarker)
}
