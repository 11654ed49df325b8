package automation

import (
	"regexp"
	"strings"
)

var (
	citationRe  = regexp.MustCompile(`\[\d+\]`)
	urlRefRe    = regexp.MustCompile(`^\[\d+\]\(https?://`)
	parenURLRe  = regexp.MustCompile(`^\(https?://`)
	bareURLRe   = regexp.MustCompile(`^https?://`)
	inlineURLRe = regexp.MustCompile(`\(https?://[^)]+\)`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
)

// CleanResponse strips inline citation markers and trailing URL reference
// blocks from an answer unless the caller asked for sources. The operation
// is idempotent: cleaning already-clean text is a no-op.
func CleanResponse(text string, includeSources bool) string {
	if includeSources {
		return text
	}

	text = citationRe.ReplaceAllString(text, "")

	var cleaned []string
	inURLSection := false
	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		isURL := urlRefRe.MatchString(s) ||
			parenURLRe.MatchString(s) ||
			bareURLRe.MatchString(s) ||
			(strings.HasPrefix(s, "[") && strings.Contains(s, "](http")) ||
			(strings.HasPrefix(s, "(") && strings.Contains(s, "http") && strings.HasSuffix(s, ")"))
		if isURL {
			inURLSection = true
			continue
		}
		if inURLSection && s == "" {
			continue
		}
		inURLSection = false
		cleaned = append(cleaned, line)
	}

	out := strings.Join(cleaned, "\n")
	out = inlineURLRe.ReplaceAllString(out, "")
	out = blankRunsRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
