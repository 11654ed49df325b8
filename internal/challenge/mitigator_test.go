package challenge

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"
	"go.uber.org/zap"

	"plexd/internal/browser/pagetest"
	"plexd/internal/diag"
)

func fastConfig() Config {
	return Config{
		Headless:     true,
		WidgetWait:   time.Millisecond,
		SettleWait:   time.Millisecond,
		PollInterval: time.Millisecond,
	}
}

func newMitigator(t *testing.T, cfg Config) (*Mitigator, *CoordStore) {
	t.Helper()
	store := NewCoordStore(filepath.Join(t.TempDir(), "coords.json"), zap.NewNop())
	return NewMitigator(cfg, store, diag.NewHub(), zap.NewNop()), store
}

// challengePage simulates a page whose wall can be dismissed mid-test.
type challengePage struct {
	pagetest.Page
	mu      sync.Mutex
	blocked bool
}

func newChallengePage() *challengePage {
	p := &challengePage{blocked: true}
	p.EvalFn = func(js string, _ ...interface{}) (gson.JSON, error) {
		if strings.Contains(js, "innerText") {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.blocked {
				return gson.New("Verify you are human to continue"), nil
			}
			return gson.New("What do you want to know?"), nil
		}
		return gson.New(nil), nil
	}
	return p
}

func (p *challengePage) clear() {
	p.mu.Lock()
	p.blocked = false
	p.mu.Unlock()
}

func TestPresentMatchesSignatureText(t *testing.T) {
	m, _ := newMitigator(t, fastConfig())
	page := &pagetest.Page{}
	page.EvalFn = func(string, ...interface{}) (gson.JSON, error) {
		return gson.New("Just a moment..."), nil
	}

	assert.True(t, m.Present(context.Background(), page))
}

func TestPresentMatchesChallengeFrame(t *testing.T) {
	m, _ := newMitigator(t, fastConfig())
	page := &pagetest.Page{
		Frames: map[string]*pagetest.Page{
			challengeFrameSelector: {},
		},
	}

	assert.True(t, m.Present(context.Background(), page))
}

func TestPresentFalseOnCleanPage(t *testing.T) {
	m, _ := newMitigator(t, fastConfig())
	page := &pagetest.Page{}
	page.EvalFn = func(string, ...interface{}) (gson.JSON, error) {
		return gson.New("What do you want to know?"), nil
	}

	assert.False(t, m.Present(context.Background(), page))
}

func TestBypassReturnsEarlyWhenWallAlreadyGone(t *testing.T) {
	m, _ := newMitigator(t, fastConfig())
	page := newChallengePage()
	page.clear()

	assert.True(t, m.Bypass(context.Background(), page, time.Second))
	assert.Empty(t, page.ClickPoints)
}

func TestBypassClicksFrameCheckbox(t *testing.T) {
	m, _ := newMitigator(t, fastConfig())
	page := newChallengePage()

	box := &pagetest.Element{VisibleVal: true}
	box.OnClick = page.clear
	frame := &pagetest.Page{}
	frame.Set("input[type='checkbox']", box)
	page.Frames = map[string]*pagetest.Page{challengeFrameSelector: frame}

	// The iframe itself keeps Present true until the wall text clears, so
	// drop it once the checkbox is clicked.
	box.OnClick = func() {
		page.clear()
		page.Frames = nil
	}

	assert.True(t, m.Bypass(context.Background(), page, time.Second))
	assert.Equal(t, 1, box.Clicks)
	assert.Equal(t, 1, box.Hovers)
}

func TestBypassReplaysSavedCoordinates(t *testing.T) {
	m, store := newMitigator(t, fastConfig())
	store.Save(Coords{X: 640, Y: 412})

	page := newChallengePage()
	page.ClickAtFn = func(x, y float64) error {
		if x == 640 && y == 412 {
			page.clear()
		}
		return nil
	}

	assert.True(t, m.Bypass(context.Background(), page, time.Second))
	require.NotEmpty(t, page.Moves)
	assert.Equal(t, pagetest.Point{X: 640, Y: 412}, page.Moves[0])
}

func TestBypassSweepsBelowCenter(t *testing.T) {
	m, _ := newMitigator(t, fastConfig())
	page := newChallengePage()
	base := page.EvalFn
	page.EvalFn = func(js string, args ...interface{}) (gson.JSON, error) {
		if strings.Contains(js, "innerWidth") {
			return gson.New(map[string]interface{}{"w": 1280.0, "h": 1000.0}), nil
		}
		return base(js, args...)
	}
	// Third sweep offset (6% of 1000px below center) lands on the checkbox.
	page.ClickAtFn = func(x, y float64) error {
		if x == 640 && y == 560 {
			page.clear()
		}
		return nil
	}

	assert.True(t, m.Bypass(context.Background(), page, time.Second))
	require.Len(t, page.ClickPoints, 3)
	assert.Equal(t, pagetest.Point{X: 640, Y: 520}, page.ClickPoints[0])
	assert.Equal(t, pagetest.Point{X: 640, Y: 540}, page.ClickPoints[1])
	assert.Equal(t, pagetest.Point{X: 640, Y: 560}, page.ClickPoints[2])
}

func TestBypassRecordsManualClick(t *testing.T) {
	cfg := fastConfig()
	cfg.Headless = false
	m, store := newMitigator(t, cfg)

	page := newChallengePage()
	var clicked sync.Once
	base := page.EvalFn
	page.EvalFn = func(js string, args ...interface{}) (gson.JSON, error) {
		if strings.Contains(js, "__plexdLastClick") && !strings.Contains(js, "addEventListener") && !strings.Contains(js, "null; return") {
			var out gson.JSON = gson.New(nil)
			clicked.Do(func() {
				out = gson.New(map[string]interface{}{"x": 512.0, "y": 390.0})
				page.clear()
			})
			return out, nil
		}
		return base(js, args...)
	}

	assert.True(t, m.Bypass(context.Background(), page, time.Second))

	saved, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, Coords{X: 512, Y: 390}, saved)
}

func TestBypassGivesUpAtDeadline(t *testing.T) {
	m, _ := newMitigator(t, fastConfig())
	page := newChallengePage()

	start := time.Now()
	assert.False(t, m.Bypass(context.Background(), page, 50*time.Millisecond))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCoordStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coords.json")
	store := NewCoordStore(path, zap.NewNop())

	_, ok := store.Load()
	assert.False(t, ok)

	store.Save(Coords{X: 1.5, Y: 2.5})
	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, Coords{X: 1.5, Y: 2.5}, got)
}
