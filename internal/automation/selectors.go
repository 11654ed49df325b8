package automation

// CSS anchors into the target UI. None of these are contractual; when the
// site ships a redesign these are the first thing to re-verify.
const (
	selQuestionInput = "p[dir='auto']"
	selSubmitButton  = "button[data-testid='submit-button'], button[aria-label='Submit']"
	selStopButton    = "button[data-testid='stop-generating-response-button']"
	selCopyButton    = "button[aria-label='Copy']"
	selAnswerRegion  = "div[class*='prose'], div[class*='markdown'], article"
)

// followUpMarker shows under a finished answer and doubles as the cut-off
// point for whole-page extraction.
const followUpMarker = "Ask a follow-up"
