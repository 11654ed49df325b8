// Package automation drives one conversation turn against the target chat
// UI: getting the question into the editor, submitting it, waiting out
// generation, and reading the answer back off the page. The UI offers no
// stable contract, so every step is a ladder of fallbacks behind a timeout.
package automation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"plexd/internal/browser"
	"plexd/internal/diag"
)

// State of the submission/completion machine.
type State string

const (
	StateIdle       State = "idle"
	StateInputReady State = "input_ready"
	StateSubmitted  State = "submitted"
	StateGenerating State = "generating"
	StateCompleting State = "completing"
	StateComplete   State = "complete"

	StateInputTimeout      State = "input_timeout"
	StateSubmitTimeout     State = "submit_timeout"
	StateGenerationTimeout State = "generation_timeout"
)

// Timeouts bounds each phase of a turn. Zero values pick defaults.
type Timeouts struct {
	InputDiscovery time.Duration
	Submit         time.Duration
	Response       time.Duration
	PollInterval   time.Duration
	IndicatorGrace time.Duration
	CaptureEvery   time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	def := func(d *time.Duration, v time.Duration) {
		if *d == 0 {
			*d = v
		}
	}
	def(&t.InputDiscovery, 30*time.Second)
	def(&t.Submit, 30*time.Second)
	def(&t.Response, 300*time.Second)
	def(&t.PollInterval, 2*time.Second)
	def(&t.IndicatorGrace, 10*time.Second)
	def(&t.CaptureEvery, 30*time.Second)
	return t
}

// Checkpoint marks how far into the run a phase finished.
type Checkpoint struct {
	Name    string        `json:"name"`
	Elapsed time.Duration `json:"elapsed"`
}

// Run is the mutable state threaded through one turn. It is ephemeral,
// owned by the machine and the extractor for the duration of one ask.
type Run struct {
	ID       string
	Question string
	State    State

	EntryStrategy string
	EntryAttempts []Attempt
	Extraction    []Attempt
	Checkpoints   []Checkpoint

	started time.Time
}

func NewRun(id, question string) *Run {
	return &Run{ID: id, Question: question, State: StateIdle}
}

func (r *Run) checkpoint(name string) {
	r.Checkpoints = append(r.Checkpoints, Checkpoint{Name: name, Elapsed: time.Since(r.started)})
}

// Machine walks a page through Idle → ... → Complete.
type Machine struct {
	timeouts Timeouts
	log      *zap.Logger
	hub      *diag.Hub
	sink     diag.Sink
}

func NewMachine(t Timeouts, sink diag.Sink, hub *diag.Hub, log *zap.Logger) *Machine {
	if sink == nil {
		sink = diag.NopSink{}
	}
	return &Machine{timeouts: t.withDefaults(), log: log, hub: hub, sink: sink}
}

// Drive runs the state machine to Complete or a terminal timeout. Terminal
// failures always leave a diagnostic capture behind.
func (m *Machine) Drive(ctx context.Context, page browser.Page, run *Run) error {
	run.started = time.Now()
	m.transition(run, StateIdle)

	input, ok := m.awaitVisible(ctx, page, selQuestionInput, m.timeouts.InputDiscovery)
	if !ok {
		return m.fail(ctx, page, run, StateInputTimeout, ErrInputTimeout)
	}
	m.transition(run, StateInputReady)
	run.checkpoint("input-ready")

	winner, attempts := enterQuestion(input, run.Question)
	run.EntryAttempts = attempts
	if winner == "" {
		return m.fail(ctx, page, run, StateInputTimeout, ErrInputTimeout)
	}
	run.EntryStrategy = winner
	run.checkpoint("entered")
	m.publish(run, diag.KindEntry, winner, "")
	m.log.Info("question entered",
		zap.String("run_id", run.ID),
		zap.String("strategy", winner))

	submit, ok := m.awaitVisible(ctx, page, selSubmitButton, m.timeouts.Submit)
	if !ok {
		return m.fail(ctx, page, run, StateSubmitTimeout, ErrSubmitTimeout)
	}
	if err := submit.Click(); err != nil {
		m.log.Warn("submit click failed", zap.String("run_id", run.ID), zap.Error(err))
		return m.fail(ctx, page, run, StateSubmitTimeout, ErrSubmitTimeout)
	}
	m.transition(run, StateSubmitted)
	run.checkpoint("submitted")

	// The in-progress indicator is a courtesy. Some UI states never show
	// it, so its absence is logged and tolerated.
	if _, ok := m.awaitVisible(ctx, page, selStopButton, m.timeouts.IndicatorGrace); !ok {
		m.log.Debug("generation indicator never appeared", zap.String("run_id", run.ID))
	}
	m.transition(run, StateGenerating)

	deadline := time.Now().Add(m.timeouts.Response)
	lastCapture := time.Now()
	for {
		if m.completed(page) {
			m.transition(run, StateCompleting)
			m.transition(run, StateComplete)
			run.checkpoint("complete")
			return nil
		}
		if time.Now().After(deadline) {
			return m.fail(ctx, page, run, StateGenerationTimeout, ErrGenerationTimeout)
		}
		if time.Since(lastCapture) >= m.timeouts.CaptureEvery {
			m.capture(ctx, page, run, "polling")
			lastCapture = time.Now()
		}
		if !sleepCtx(ctx, m.timeouts.PollInterval) {
			return m.fail(ctx, page, run, StateGenerationTimeout, ErrGenerationTimeout)
		}
	}
}

// completed checks the dual condition: the in-progress indicator must be
// gone AND the submit control inactive, plus either a copy control or a
// populated answer region. The copy control is preferred; the answer region
// is the headless fallback.
func (m *Machine) completed(page browser.Page) bool {
	if m.indicatorActive(page) {
		return false
	}
	if !m.submitInactive(page) {
		return false
	}
	if visible(page, selCopyButton) {
		return true
	}
	return len(answerRegionText(page)) >= minAnswerLen
}

func (m *Machine) indicatorActive(page browser.Page) bool {
	return visible(page, selStopButton)
}

// submitInactive treats a missing submit control as inactive: the UI drops
// it entirely in some post-submission layouts.
func (m *Machine) submitInactive(page browser.Page) bool {
	el, err := page.Element(selSubmitButton)
	if err != nil {
		return true
	}
	if v, err := el.Attribute("disabled"); err == nil && v != nil {
		return true
	}
	if v, err := el.Attribute("aria-disabled"); err == nil && v != nil && *v == "true" {
		return true
	}
	return false
}

func (m *Machine) awaitVisible(ctx context.Context, page browser.Page, selector string, timeout time.Duration) (browser.Element, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if el, err := page.Element(selector); err == nil {
			if v, err := el.Visible(); err == nil && v {
				return el, true
			}
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		if !sleepCtx(ctx, m.timeouts.PollInterval) {
			return nil, false
		}
	}
}

func (m *Machine) fail(ctx context.Context, page browser.Page, run *Run, s State, err error) error {
	m.transition(run, s)
	run.checkpoint(string(s))
	m.capture(ctx, page, run, string(s))
	return err
}

func (m *Machine) transition(run *Run, s State) {
	run.State = s
	m.log.Debug("state transition", zap.String("run_id", run.ID), zap.String("state", string(s)))
	m.publish(run, diag.KindState, string(s), "")
}

func (m *Machine) capture(ctx context.Context, page browser.Page, run *Run, label string) {
	html, err := page.HTML()
	if err != nil {
		m.log.Debug("page capture html failed", zap.Error(err))
	}
	shot, err := page.Screenshot(ctx)
	if err != nil {
		m.log.Debug("page capture screenshot failed", zap.Error(err))
	}
	m.sink.Capture(diag.Capture{RunID: run.ID, Label: label, HTML: html, Screenshot: shot, At: time.Now()})
	m.publish(run, diag.KindCapture, label, "")
}

func (m *Machine) publish(run *Run, kind, name, detail string) {
	if m.hub == nil {
		return
	}
	m.hub.Publish(diag.Event{RunID: run.ID, Kind: kind, Name: name, Detail: detail})
}

// InputReady reports whether the question editor is present and visible,
// without waiting. Used by readiness checks.
func InputReady(page browser.Page) bool {
	return visible(page, selQuestionInput)
}

func visible(page browser.Page, selector string) bool {
	el, err := page.Element(selector)
	if err != nil {
		return false
	}
	v, err := el.Visible()
	return err == nil && v
}

// answerRegionText reads the newest answer region on the page.
func answerRegionText(page browser.Page) string {
	els, err := page.Elements(selAnswerRegion)
	if err != nil || len(els) == 0 {
		return ""
	}
	text, err := els[len(els)-1].Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
