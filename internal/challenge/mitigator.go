// Package challenge detects interstitial human-verification walls and tries
// to clear them. Best effort by design: every strategy here is a heuristic
// against an adversarial, unversioned UI, and callers must treat a false
// return as recoverable, not fatal.
package challenge

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"plexd/internal/browser"
	"plexd/internal/diag"
)

const challengeFrameSelector = "iframe[src*='challenges.cloudflare.com']"

// challengeSignatures are matched case-insensitively against the page text.
var challengeSignatures = []string{
	"just a moment",
	"before continuing, we need to be sure you are human",
	"verify you are human",
}

// sweepOffsets are vertical offsets below viewport center, as fractions of
// viewport height, where the widget checkbox tends to sit.
var sweepOffsets = []float64{0.02, 0.04, 0.06, 0.08, 0.10}

// Config tunes the bypass ladder. Zero values pick production defaults;
// tests shrink the waits.
type Config struct {
	Headless     bool
	WidgetWait   time.Duration
	SettleWait   time.Duration
	PollInterval time.Duration
}

func (c Config) widgetWait() time.Duration {
	if c.WidgetWait == 0 {
		return 5 * time.Second
	}
	return c.WidgetWait
}

func (c Config) settleWait() time.Duration {
	if c.SettleWait == 0 {
		return 2 * time.Second
	}
	return c.SettleWait
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval == 0 {
		return 500 * time.Millisecond
	}
	return c.PollInterval
}

// Mitigator runs the escalating bypass ladder.
type Mitigator struct {
	cfg    Config
	log    *zap.Logger
	coords *CoordStore
	hub    *diag.Hub
}

func NewMitigator(cfg Config, coords *CoordStore, hub *diag.Hub, log *zap.Logger) *Mitigator {
	return &Mitigator{cfg: cfg, log: log, coords: coords, hub: hub}
}

// Present reports whether the page is showing a challenge wall.
func (m *Mitigator) Present(ctx context.Context, page browser.Page) bool {
	res, err := page.Eval(ctx, `() => document.body ? document.body.innerText : ''`)
	if err == nil {
		text := strings.ToLower(res.String())
		for _, sig := range challengeSignatures {
			if strings.Contains(text, sig) {
				return true
			}
		}
	}
	if _, err := page.Frame(challengeFrameSelector); err == nil {
		return true
	}
	return false
}

// Bypass walks the strategy ladder until the challenge clears or the timeout
// elapses. Returns true on success.
func (m *Mitigator) Bypass(ctx context.Context, page browser.Page, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	m.log.Info("attempting challenge bypass", zap.Duration("timeout", timeout))

	// Give the widget time to render before poking at it.
	if !m.sleep(ctx, m.cfg.widgetWait()) {
		return false
	}
	if !m.Present(ctx, page) {
		return true
	}

	type step struct {
		name string
		run  func(context.Context, browser.Page, time.Time) bool
	}
	ladder := []step{
		{"frame-checkbox", m.tryFrameCheckbox},
		{"saved-coordinates", m.trySavedCoords},
		{"center-sweep", m.trySweep},
		{"manual-capture", m.tryManual},
	}

	for _, s := range ladder {
		if time.Now().After(deadline) {
			break
		}
		m.publish(s.name, "attempt")
		if s.run(ctx, page, deadline) {
			m.log.Info("challenge cleared", zap.String("strategy", s.name))
			m.publish(s.name, "cleared")
			return true
		}
	}

	m.log.Warn("challenge bypass exhausted")
	return false
}

// tryFrameCheckbox locates the widget checkbox inside the challenge iframe
// and performs a move-pause-click.
func (m *Mitigator) tryFrameCheckbox(ctx context.Context, page browser.Page, _ time.Time) bool {
	frame, err := page.Frame(challengeFrameSelector)
	if err != nil {
		return false
	}
	box, err := frame.Element("input[type='checkbox']")
	if err != nil {
		return false
	}
	if err := box.Hover(); err != nil {
		m.log.Debug("checkbox hover failed", zap.Error(err))
	}
	if !m.sleep(ctx, m.cfg.pollInterval()) {
		return false
	}
	if err := box.Click(); err != nil {
		m.log.Debug("checkbox click failed", zap.Error(err))
		return false
	}
	return m.settleAndCheck(ctx, page)
}

// trySavedCoords replays the recorded human click once.
func (m *Mitigator) trySavedCoords(ctx context.Context, page browser.Page, _ time.Time) bool {
	c, ok := m.coords.Load()
	if !ok {
		return false
	}
	m.log.Info("replaying saved click coordinates", zap.Float64("x", c.X), zap.Float64("y", c.Y))
	if err := page.MoveMouse(ctx, c.X, c.Y); err != nil {
		return false
	}
	if err := page.ClickAt(ctx, c.X, c.Y); err != nil {
		return false
	}
	return m.settleAndCheck(ctx, page)
}

// trySweep clicks a short column of offsets below the viewport center.
func (m *Mitigator) trySweep(ctx context.Context, page browser.Page, deadline time.Time) bool {
	res, err := page.Eval(ctx, `() => ({w: window.innerWidth, h: window.innerHeight})`)
	if err != nil {
		return false
	}
	w := res.Get("w").Num()
	h := res.Get("h").Num()
	if w <= 0 || h <= 0 {
		return false
	}
	cx, cy := w/2, h/2

	for _, pct := range sweepOffsets {
		if time.Now().After(deadline) {
			return false
		}
		y := cy + h*pct
		if err := page.ClickAt(ctx, cx, y); err != nil {
			continue
		}
		if m.settleAndCheck(ctx, page) {
			return true
		}
	}
	return false
}

const clickRecorderJS = `() => {
	if (window.__plexdClickHook) return true;
	window.__plexdClickHook = true;
	window.__plexdLastClick = null;
	const record = (e) => {
		const x = e.pageX || (e.clientX + window.scrollX);
		const y = e.pageY || (e.clientY + window.scrollY);
		window.__plexdLastClick = {x: x, y: y};
	};
	document.addEventListener('click', record, true);
	document.addEventListener('mousedown', record, true);
	return true;
}`

// tryManual waits for a human to click the widget in a visible browser and
// records the coordinates for future automated replay. Headless mode only
// gets one final re-check.
func (m *Mitigator) tryManual(ctx context.Context, page browser.Page, deadline time.Time) bool {
	if m.cfg.Headless {
		if !m.sleep(ctx, m.cfg.settleWait()) {
			return false
		}
		return !m.Present(ctx, page)
	}

	if _, err := page.Eval(ctx, clickRecorderJS); err != nil {
		m.log.Debug("click recorder injection failed", zap.Error(err))
		return false
	}
	m.log.Info("waiting for manual challenge click")

	for time.Now().Before(deadline) {
		if !m.sleep(ctx, m.cfg.pollInterval()) {
			return false
		}
		res, err := page.Eval(ctx, `() => window.__plexdLastClick`)
		if err == nil && !res.Nil() {
			m.coords.Save(Coords{X: res.Get("x").Num(), Y: res.Get("y").Num()})
			if _, err := page.Eval(ctx, `() => { window.__plexdLastClick = null; return true; }`); err != nil {
				m.log.Debug("click recorder reset failed", zap.Error(err))
			}
		}
		if !m.Present(ctx, page) {
			return true
		}
	}
	return false
}

// settleAndCheck waits for the widget to react, then re-checks presence.
func (m *Mitigator) settleAndCheck(ctx context.Context, page browser.Page) bool {
	if !m.sleep(ctx, m.cfg.settleWait()) {
		return false
	}
	return !m.Present(ctx, page)
}

func (m *Mitigator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Mitigator) publish(strategy, detail string) {
	if m.hub == nil {
		return
	}
	m.hub.Publish(diag.Event{Kind: diag.KindChallenge, Name: strategy, Detail: detail})
}
