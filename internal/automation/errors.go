package automation

import "errors"

var (
	// ErrInputTimeout means the question input never became interactable,
	// or no text-entry strategy satisfied its postcondition.
	ErrInputTimeout = errors.New("question input not ready before deadline")

	// ErrSubmitTimeout means the submit control was never actionable.
	ErrSubmitTimeout = errors.New("submit control not actionable before deadline")

	// ErrGenerationTimeout means the answer never reached the completed
	// state within the response timeout.
	ErrGenerationTimeout = errors.New("response generation did not complete before deadline")

	// ErrExtractionFailed means every extraction strategy was exhausted
	// without producing a usable answer.
	ErrExtractionFailed = errors.New("no extraction strategy produced a usable response")
)
