// Package diag carries the observability side channel of an interaction run:
// page captures for offline debugging and a live event feed for operators.
// Nothing here influences orchestration decisions.
package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is one observation pushed to debug subscribers.
type Event struct {
	RunID  string    `json:"run_id"`
	Kind   string    `json:"kind"`
	Name   string    `json:"name"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Event kinds.
const (
	KindState      = "state"
	KindEntry      = "entry"
	KindExtraction = "extraction"
	KindChallenge  = "challenge"
	KindCapture    = "capture"
)

// Capture is a point-in-time page snapshot.
type Capture struct {
	RunID      string
	Label      string
	HTML       string
	Screenshot []byte
	At         time.Time
}

// Sink receives captures. Implementations must never block the interaction
// path on failure.
type Sink interface {
	Capture(c Capture)
}

// NopSink discards captures.
type NopSink struct{}

func (NopSink) Capture(Capture) {}

// FileSink writes captures under a debug directory, one HTML and one PNG file
// per capture. Write failures are logged and dropped.
type FileSink struct {
	dir string
	log *zap.Logger
}

// NewFileSink creates the directory lazily on first capture.
func NewFileSink(dir string, log *zap.Logger) *FileSink {
	return &FileSink{dir: dir, log: log}
}

func (s *FileSink) Capture(c Capture) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Warn("debug dir unavailable", zap.Error(err))
		return
	}
	stamp := c.At.UTC().Format("20060102-150405.000")
	base := filepath.Join(s.dir, fmt.Sprintf("%s-%s-%s", c.RunID, c.Label, stamp))
	if c.HTML != "" {
		if err := os.WriteFile(base+".html", []byte(c.HTML), 0o644); err != nil {
			s.log.Warn("capture html write failed", zap.Error(err))
		}
	}
	if len(c.Screenshot) > 0 {
		if err := os.WriteFile(base+".png", c.Screenshot, 0o644); err != nil {
			s.log.Warn("capture screenshot write failed", zap.Error(err))
		}
	}
}

// Hub fans events out to subscribers. Publishing never blocks; a subscriber
// that cannot keep up loses events rather than stalling the interaction.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a buffered event channel. The returned cancel func must
// be called when the subscriber goes away.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}
