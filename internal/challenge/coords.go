package challenge

import (
	"encoding/json"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Coords is the last human-performed click location inside a challenge
// widget, in page coordinates. A weak hint only: stale coordinates get one
// bounded replay attempt and nothing more.
type Coords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CoordStore persists the singleton coordinate record, last writer wins.
type CoordStore struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

func NewCoordStore(path string, log *zap.Logger) *CoordStore {
	return &CoordStore{path: path, log: log}
}

// Load returns the saved coordinates, reporting false when none exist.
func (s *CoordStore) Load() (Coords, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Coords{}, false
	}
	var c Coords
	if err := json.Unmarshal(data, &c); err != nil {
		s.log.Warn("coordinate record corrupt, ignoring", zap.Error(err))
		return Coords{}, false
	}
	return c, true
}

// Save overwrites the coordinate record. Failures are logged and swallowed.
func (s *CoordStore) Save(c Coords) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Warn("coordinate record write failed", zap.Error(err))
		return
	}
	s.log.Info("click coordinates recorded", zap.Float64("x", c.X), zap.Float64("y", c.Y))
}
