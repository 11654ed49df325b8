package automation

// textStrategy is one independent way to produce (or confirm) a piece of
// text on the page. Strategies are declared as ordered lists and evaluated
// by runLadder so each layer stays independently testable.
type textStrategy struct {
	name string
	run  func() (string, error)
}

// Attempt records the outcome of one strategy for diagnostics.
type Attempt struct {
	Strategy string `json:"strategy"`
	OK       bool   `json:"ok"`
	Length   int    `json:"length"`
	Preview  string `json:"preview,omitempty"`
	Err      string `json:"error,omitempty"`
}

const previewLen = 80

// runLadder executes strategies in order, validating each result with
// accept. The first accepted result wins. When exhaustive is set the
// remaining strategies still run so the attempt record is complete; their
// results are discarded.
func runLadder(strategies []textStrategy, accept func(string) bool, exhaustive bool) (winner, text string, attempts []Attempt) {
	for _, s := range strategies {
		if winner != "" && !exhaustive {
			break
		}
		out, err := s.run()
		a := Attempt{Strategy: s.name, Length: len(out), Preview: preview(out)}
		if err != nil {
			a.Err = err.Error()
		} else if accept(out) {
			a.OK = true
			if winner == "" {
				winner = s.name
				text = out
			}
		}
		attempts = append(attempts, a)
	}
	return winner, text, attempts
}

func preview(s string) string {
	if len(s) > previewLen {
		return s[:previewLen]
	}
	return s
}
