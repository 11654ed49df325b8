package automation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plexd/internal/browser/pagetest"
	"plexd/internal/diag"
)

type recordSink struct {
	captures []diag.Capture
}

func (s *recordSink) Capture(c diag.Capture) {
	s.captures = append(s.captures, c)
}

func fastTimeouts() Timeouts {
	return Timeouts{
		InputDiscovery: 20 * time.Millisecond,
		Submit:         20 * time.Millisecond,
		Response:       500 * time.Millisecond,
		PollInterval:   time.Millisecond,
		IndicatorGrace: 5 * time.Millisecond,
		CaptureEvery:   time.Hour,
	}
}

func TestDriveHappyPath(t *testing.T) {
	page := &pagetest.Page{}
	input := &pagetest.Element{VisibleVal: true}
	page.Set(selQuestionInput, input)

	submit := &pagetest.Element{VisibleVal: true}
	submit.OnClick = func() {
		// Generation finishes immediately: indicator never shows, the
		// submit control disables, the copy control appears.
		submit.Attrs = map[string]string{"disabled": ""}
		page.Set(selCopyButton, &pagetest.Element{VisibleVal: true})
	}
	page.Set(selSubmitButton, submit)

	sink := &recordSink{}
	m := NewMachine(fastTimeouts(), sink, diag.NewHub(), zap.NewNop())
	run := NewRun("r1", "What is the capital of France?")

	err := m.Drive(context.Background(), page, run)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, run.State)
	// The synthetic-event strategy is a no-op against the fake, so the
	// keystroke fallback must have won.
	assert.Equal(t, "keystrokes", run.EntryStrategy)
	assert.Equal(t, 1, submit.Clicks)
	assert.Empty(t, sink.captures)
	assert.NotEmpty(t, run.Checkpoints)
}

func TestDriveInputTimeout(t *testing.T) {
	page := &pagetest.Page{}
	sink := &recordSink{}
	m := NewMachine(fastTimeouts(), sink, nil, zap.NewNop())
	run := NewRun("r2", "hello there, page")

	err := m.Drive(context.Background(), page, run)
	assert.ErrorIs(t, err, ErrInputTimeout)
	assert.Equal(t, StateInputTimeout, run.State)
	require.Len(t, sink.captures, 1)
	assert.Equal(t, string(StateInputTimeout), sink.captures[0].Label)
}

func TestDriveEntryExhaustionIsInputTimeout(t *testing.T) {
	page := &pagetest.Page{}
	input := &pagetest.Element{
		VisibleVal: true,
		InputErr:   assert.AnError,
		TextErr:    assert.AnError,
	}
	page.Set(selQuestionInput, input)

	sink := &recordSink{}
	m := NewMachine(fastTimeouts(), sink, nil, zap.NewNop())
	run := NewRun("r3", "does text entry ever land")

	err := m.Drive(context.Background(), page, run)
	assert.ErrorIs(t, err, ErrInputTimeout)
	assert.Len(t, run.EntryAttempts, 3)
	assert.Empty(t, run.EntryStrategy)
	assert.Len(t, sink.captures, 1)
}

func TestDriveSubmitTimeout(t *testing.T) {
	page := &pagetest.Page{}
	page.Set(selQuestionInput, &pagetest.Element{VisibleVal: true})

	sink := &recordSink{}
	m := NewMachine(fastTimeouts(), sink, nil, zap.NewNop())
	run := NewRun("r4", "a question with no submit control")

	err := m.Drive(context.Background(), page, run)
	assert.ErrorIs(t, err, ErrSubmitTimeout)
	assert.Equal(t, StateSubmitTimeout, run.State)
	assert.Len(t, sink.captures, 1)
}

func TestDriveGenerationTimeout(t *testing.T) {
	page := &pagetest.Page{}
	page.Set(selQuestionInput, &pagetest.Element{VisibleVal: true})
	// Submit stays enabled forever, so completion never fires.
	page.Set(selSubmitButton, &pagetest.Element{VisibleVal: true})

	tm := fastTimeouts()
	tm.Response = 30 * time.Millisecond
	sink := &recordSink{}
	m := NewMachine(tm, sink, nil, zap.NewNop())
	run := NewRun("r5", "a question that never completes")

	err := m.Drive(context.Background(), page, run)
	assert.ErrorIs(t, err, ErrGenerationTimeout)
	assert.Equal(t, StateGenerationTimeout, run.State)
	assert.Len(t, sink.captures, 1)
}

func TestCompletionRequiresIndicatorGoneAndSubmitInactive(t *testing.T) {
	m := NewMachine(fastTimeouts(), nil, nil, zap.NewNop())

	page := &pagetest.Page{}
	page.Set(selStopButton, &pagetest.Element{VisibleVal: true})
	page.Set(selSubmitButton, &pagetest.Element{VisibleVal: true, Attrs: map[string]string{"disabled": ""}})
	page.Set(selCopyButton, &pagetest.Element{VisibleVal: true})

	// Indicator still active: both secondary signals present is not enough.
	assert.False(t, m.completed(page))

	// Indicator gone but submit re-enabled: still not complete.
	page.Remove(selStopButton)
	page.Set(selSubmitButton, &pagetest.Element{VisibleVal: true})
	assert.False(t, m.completed(page))

	// Indicator gone and submit disabled with a copy control: complete.
	page.Set(selSubmitButton, &pagetest.Element{VisibleVal: true, Attrs: map[string]string{"disabled": ""}})
	assert.True(t, m.completed(page))
}

func TestCompletionAnswerRegionFallback(t *testing.T) {
	m := NewMachine(fastTimeouts(), nil, nil, zap.NewNop())

	// No copy control; a populated answer region stands in for it.
	page := &pagetest.Page{}
	page.Set(selSubmitButton, &pagetest.Element{VisibleVal: true, Attrs: map[string]string{"aria-disabled": "true"}})
	page.Set(selAnswerRegion, &pagetest.Element{TextVal: "Paris is the capital of France."})
	assert.True(t, m.completed(page))

	// A near-empty answer region is not completion.
	page.Set(selAnswerRegion, &pagetest.Element{TextVal: "Paris"})
	assert.False(t, m.completed(page))
}

func TestCompletionMissingSubmitCountsAsInactive(t *testing.T) {
	m := NewMachine(fastTimeouts(), nil, nil, zap.NewNop())

	page := &pagetest.Page{}
	page.Set(selCopyButton, &pagetest.Element{VisibleVal: true})
	assert.True(t, m.completed(page))
}

func TestEnterQuestionPostcondition(t *testing.T) {
	// The field keeps only a fragment of the question: no strategy passes.
	input := &pagetest.Element{VisibleVal: true}
	input.InputErr = assert.AnError
	input.TextVal = "What"

	winner, attempts := enterQuestion(input, "What is the tallest mountain on Earth?")
	assert.Empty(t, winner)
	assert.Len(t, attempts, 3)
	for _, a := range attempts {
		assert.False(t, a.OK)
	}
}
