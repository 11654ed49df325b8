package session

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// document is the on-disk shape: one JSON object rewritten wholesale after
// every mutation.
type document struct {
	Sessions       map[string]*persistedSession `json:"sessions"`
	CurrentSession string                       `json:"current_session"`
}

type persistedSession struct {
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Store persists the session map and the current-session pointer. Storage
// failures are logged and swallowed; the store keeps serving from memory for
// the rest of the process lifetime.
type Store struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
	doc  document
	now  func() time.Time
}

// NewStore loads the store from path. A missing or unreadable file yields an
// empty store, never an error.
func NewStore(path string, log *zap.Logger) *Store {
	s := &Store{
		path: path,
		log:  log,
		doc:  document{Sessions: make(map[string]*persistedSession)},
		now:  time.Now,
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("session store unreadable, starting empty",
				zap.String("path", s.path), zap.Error(err))
		}
		return
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("session store corrupt, starting empty",
			zap.String("path", s.path), zap.Error(err))
		return
	}
	if doc.Sessions == nil {
		doc.Sessions = make(map[string]*persistedSession)
	}
	s.doc = doc
}

// persist writes the whole document. Callers hold s.mu.
func (s *Store) persist() {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		s.log.Error("encode session store", zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Warn("session store write failed, continuing in memory",
			zap.String("path", s.path), zap.Error(err))
	}
}

// CurrentSession returns the current session id, or "" when none is set.
func (s *Store) CurrentSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.CurrentSession
}

// SessionURL resolves a session id to its conversation URL.
func (s *Store) SessionURL(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Sessions[id]
	if !ok {
		return "", false
	}
	return rec.URL, true
}

// Get returns a copy of the stored session.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Sessions[id]
	if !ok {
		return Session{}, false
	}
	return Session{ID: id, URL: rec.URL, CreatedAt: rec.CreatedAt, LastUsedAt: rec.LastUsedAt}, true
}

// CreateOrUpdate inserts the session if absent, otherwise refreshes its URL
// and last-used timestamp. The session always becomes the current one.
func (s *Store) CreateOrUpdate(id, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if rec, ok := s.doc.Sessions[id]; ok {
		rec.URL = url
		rec.LastUsedAt = now
		s.log.Info("session updated", zap.String("session_id", id))
	} else {
		s.doc.Sessions[id] = &persistedSession{URL: url, CreatedAt: now, LastUsedAt: now}
		s.log.Info("session created", zap.String("session_id", id))
	}
	s.doc.CurrentSession = id
	s.persist()
}

// Touch refreshes only the last-used timestamp of an existing session.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.doc.Sessions[id]
	if !ok {
		return
	}
	rec.LastUsedAt = s.now().UTC()
	s.persist()
}

// List returns all sessions ordered by last-used time, newest first.
func (s *Store) List() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.doc.Sessions))
	for id, rec := range s.doc.Sessions {
		out = append(out, Session{ID: id, URL: rec.URL, CreatedAt: rec.CreatedAt, LastUsedAt: rec.LastUsedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastUsedAt.Equal(out[j].LastUsedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastUsedAt.After(out[j].LastUsedAt)
	})
	return out
}

// Len reports the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Sessions)
}
