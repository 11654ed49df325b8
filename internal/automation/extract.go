package automation

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"plexd/internal/browser"
	"plexd/internal/diag"
)

// minAnswerLen is the shortest text accepted as a real answer. Anything
// shorter is more likely UI chrome than content.
const minAnswerLen = 10

const pageTextJS = `() => document.body ? document.body.innerText : ''`

// Extractor reads the generated answer off a completed page. Four
// independent strategies run in order; the first valid result wins, but all
// four always execute so the attempt record is useful for troubleshooting.
type Extractor struct {
	log *zap.Logger
	hub *diag.Hub

	// copySettle gives the page time to service a copy click before the
	// clipboard is read.
	copySettle time.Duration
	// osClipboard reads the host clipboard, the legacy path for sessions
	// sharing a desktop with the browser.
	osClipboard func() (string, error)
}

func NewExtractor(hub *diag.Hub, log *zap.Logger) *Extractor {
	return &Extractor{
		log:         log,
		hub:         hub,
		copySettle:  time.Second,
		osClipboard: clipboard.ReadAll,
	}
}

// Extract returns the answer text. Only invoked from the Complete state.
// On failure every strategy's attempt is recorded on the run and
// ErrExtractionFailed is returned.
func (x *Extractor) Extract(ctx context.Context, page browser.Page, run *Run) (string, error) {
	clickCopy := func() error {
		el, err := page.Element(selCopyButton)
		if err != nil {
			return err
		}
		if err := el.Click(); err != nil {
			return err
		}
		sleepCtx(ctx, x.copySettle)
		return nil
	}

	strategies := []textStrategy{
		{name: "copy-page-clipboard", run: func() (string, error) {
			if err := clickCopy(); err != nil {
				return "", err
			}
			return page.ReadClipboard(ctx)
		}},
		{name: "answer-region", run: func() (string, error) {
			return answerRegionText(page), nil
		}},
		{name: "page-text", run: func() (string, error) {
			res, err := page.Eval(ctx, pageTextJS)
			if err != nil {
				return "", err
			}
			return trimPageText(res.String(), run.Question), nil
		}},
		{name: "copy-os-clipboard", run: func() (string, error) {
			if err := clickCopy(); err != nil {
				return "", err
			}
			return x.osClipboard()
		}},
	}

	question := strings.TrimSpace(run.Question)
	valid := func(s string) bool {
		t := strings.TrimSpace(s)
		return len(t) >= minAnswerLen && t != question
	}

	winner, text, attempts := runLadder(strategies, valid, true)
	run.Extraction = attempts
	for _, a := range attempts {
		detail := "failed"
		if a.OK {
			detail = "ok"
		}
		if x.hub != nil {
			x.hub.Publish(diag.Event{RunID: run.ID, Kind: diag.KindExtraction, Name: a.Strategy, Detail: detail})
		}
	}

	if winner == "" {
		x.log.Warn("extraction exhausted", zap.String("run_id", run.ID), zap.Int("attempts", len(attempts)))
		return "", ErrExtractionFailed
	}
	x.log.Info("response extracted",
		zap.String("run_id", run.ID),
		zap.String("strategy", winner),
		zap.Int("length", len(text)))
	return strings.TrimSpace(text), nil
}

// chromeLines are navigation/UI labels dropped from whole-page extraction.
var chromeLines = map[string]struct{}{
	"Home": {}, "Discover": {}, "Spaces": {}, "Library": {},
	"Account": {}, "Sign In": {}, "Upgrade": {},
	"Answer": {}, "Sources": {}, "Share": {}, "Rewrite": {}, "Copy": {},
}

// trimPageText cuts whole-page text down to the newest answer: everything
// after the last echo of the question, minus chrome lines, stopping at the
// follow-up prompt.
func trimPageText(text, question string) string {
	lines := strings.Split(text, "\n")
	q := strings.TrimSpace(question)

	start := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == q {
			start = i + 1
		}
	}

	var out []string
	for _, line := range lines[start:] {
		t := strings.TrimSpace(line)
		if strings.Contains(t, followUpMarker) {
			break
		}
		if _, chrome := chromeLines[t]; chrome {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
