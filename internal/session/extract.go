package session

import (
	"net/url"
	"strings"
)

// markerSegments are path components whose following segment names the
// conversation, e.g. /search/<id> or /thread/<id>.
var markerSegments = map[string]bool{
	"search": true,
	"thread": true,
}

// markerParams are query parameters that may carry the conversation id.
var markerParams = []string{"thread", "search", "q_id"}

// genericSegments never identify a conversation on their own.
var genericSegments = map[string]bool{
	"":       true,
	"search": true,
	"thread": true,
	"new":    true,
	"home":   true,
	"chat":   true,
}

// ExtractSessionID derives the conversation id from a conversation URL. It is
// a pure function: no I/O, deterministic for a given input. Returns "" when
// the URL carries no recognizable id.
func ExtractSessionID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	// Segment following a known marker wins.
	for i, seg := range segments {
		if markerSegments[seg] && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1]
		}
	}

	// Known query parameters next.
	q := u.Query()
	for _, key := range markerParams {
		if v := q.Get(key); v != "" {
			return v
		}
	}

	// Otherwise the last non-generic path segment.
	for i := len(segments) - 1; i >= 0; i-- {
		if !genericSegments[segments[i]] {
			return segments[i]
		}
	}
	return ""
}
