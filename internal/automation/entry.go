package automation

import (
	"strings"

	"plexd/internal/browser"
)

// entryAssignJS writes the question straight into the contenteditable node
// and fires the synthetic events the page's framework listens for.
const entryAssignJS = `(text) => {
	this.focus();
	this.textContent = text;
	this.dispatchEvent(new InputEvent('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return this.textContent;
}`

// entryPasteJS simulates a clipboard paste. Some editors ignore synthetic
// ClipboardEvents, so execCommand is the backstop.
const entryPasteJS = `(text) => {
	this.focus();
	const dt = new DataTransfer();
	dt.setData('text/plain', text);
	this.dispatchEvent(new ClipboardEvent('paste', {clipboardData: dt, bubbles: true, cancelable: true}));
	if ((this.textContent || '').length < text.length / 2) {
		document.execCommand('insertText', false, text);
	}
	return this.textContent;
}`

// enterQuestion walks the text-entry ladder. A strategy counts as entered
// when the field reads back at least half the question. Returns the winning
// strategy name, empty when the whole ladder failed.
func enterQuestion(input browser.Element, question string) (string, []Attempt) {
	readBack := func() (string, error) { return input.Text() }

	strategies := []textStrategy{
		{name: "assign-and-dispatch", run: func() (string, error) {
			if _, err := input.Eval(entryAssignJS, question); err != nil {
				return "", err
			}
			return readBack()
		}},
		{name: "keystrokes", run: func() (string, error) {
			if err := input.SelectAllText(); err != nil {
				return "", err
			}
			if err := input.Input(question); err != nil {
				return "", err
			}
			return readBack()
		}},
		{name: "synthetic-paste", run: func() (string, error) {
			if _, err := input.Eval(entryPasteJS, question); err != nil {
				return "", err
			}
			return readBack()
		}},
	}

	accept := func(got string) bool {
		return len(strings.TrimSpace(got)) >= (len(question)+1)/2
	}
	winner, _, attempts := runLadder(strategies, accept, false)
	return winner, attempts
}
