package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.json")
	return NewStore(path, zap.NewNop()), path
}

func TestCreateOrUpdateSetsCurrent(t *testing.T) {
	s, _ := newTestStore(t)

	s.CreateOrUpdate("abc", "https://example.com/search/abc")

	if got := s.CurrentSession(); got != "abc" {
		t.Fatalf("CurrentSession = %q, want abc", got)
	}
	url, ok := s.SessionURL("abc")
	if !ok || url != "https://example.com/search/abc" {
		t.Fatalf("SessionURL = %q, %v", url, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestCreateOrUpdateExistingKeepsCreatedAt(t *testing.T) {
	s, _ := newTestStore(t)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return base }
	s.CreateOrUpdate("abc", "https://example.com/search/abc")

	s.now = func() time.Time { return base.Add(time.Hour) }
	s.CreateOrUpdate("abc", "https://example.com/search/abc?continued=1")

	got, ok := s.Get("abc")
	if !ok {
		t.Fatal("session missing after update")
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("CreatedAt changed on update: %v", got.CreatedAt)
	}
	if !got.LastUsedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("LastUsedAt not advanced: %v", got.LastUsedAt)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestTouchAdvancesLastUsedOnly(t *testing.T) {
	s, _ := newTestStore(t)

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return base }
	s.CreateOrUpdate("abc", "https://example.com/search/abc")

	s.now = func() time.Time { return base.Add(time.Minute) }
	s.Touch("abc")

	got, _ := s.Get("abc")
	if !got.LastUsedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("LastUsedAt = %v, want %v", got.LastUsedAt, base.Add(time.Minute))
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}

	// Touching an unknown id is a no-op.
	s.Touch("nope")
	if s.Len() != 1 {
		t.Fatalf("Len = %d after touching unknown id", s.Len())
	}
}

func TestListNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)

	base := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	s.CreateOrUpdate("old", "https://example.com/search/old")
	s.now = func() time.Time { return base.Add(time.Hour) }
	s.CreateOrUpdate("new", "https://example.com/search/new")

	got := s.List()
	if len(got) != 2 {
		t.Fatalf("List returned %d sessions", len(got))
	}
	if got[0].ID != "new" || got[1].ID != "old" {
		t.Fatalf("List order = [%s %s], want [new old]", got[0].ID, got[1].ID)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	s.CreateOrUpdate("abc", "https://example.com/search/abc")

	reloaded := NewStore(path, zap.NewNop())
	if got := reloaded.CurrentSession(); got != "abc" {
		t.Fatalf("reloaded CurrentSession = %q", got)
	}
	url, ok := reloaded.SessionURL("abc")
	if !ok || url != "https://example.com/search/abc" {
		t.Fatalf("reloaded SessionURL = %q, %v", url, ok)
	}
}

func TestUnwritablePathDegradesToMemory(t *testing.T) {
	dir := t.TempDir()
	// A directory at the store path makes every write fail.
	path := filepath.Join(dir, "sessions.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, zap.NewNop())
	s.CreateOrUpdate("abc", "https://example.com/search/abc")

	// The mutation must still be visible in memory.
	if got := s.CurrentSession(); got != "abc" {
		t.Fatalf("CurrentSession = %q, want abc", got)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, zap.NewNop())
	if s.Len() != 0 || s.CurrentSession() != "" {
		t.Fatal("corrupt store should start empty")
	}
}
