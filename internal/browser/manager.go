package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrNotStarted is returned when the page is requested before Start succeeds.
var ErrNotStarted = errors.New("browser: not started")

// Config holds browser launch settings.
type Config struct {
	TargetURL      string
	Headless       bool
	UserDataDir    string
	Bin            string
	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration
	LoadWait       time.Duration
}

func (c Config) viewportWidth() int {
	if c.ViewportWidth == 0 {
		return 1920
	}
	return c.ViewportWidth
}

func (c Config) viewportHeight() int {
	if c.ViewportHeight == 0 {
		return 1080
	}
	return c.ViewportHeight
}

func (c Config) navTimeout() time.Duration {
	if c.NavTimeout == 0 {
		return 30 * time.Second
	}
	return c.NavTimeout
}

// Manager owns the process-wide Chrome instance and its single page. All
// mutating access is serialized by the controller's request guard; the
// internal mutex only protects lifecycle transitions.
type Manager struct {
	cfg Config
	log *zap.Logger

	mu       sync.RWMutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rodPage
}

// NewManager creates a stopped manager.
func NewManager(cfg Config, log *zap.Logger) *Manager {
	return &Manager{cfg: cfg, log: log}
}

// Start launches Chrome, opens the shared page, applies the stealth profile
// and navigates to the target root. Safe to call again after a failure; a
// healthy running browser is left alone.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		m.log.Warn("stale browser connection, relaunching")
		m.closeLocked()
	}

	l := launcher.New().
		Headless(m.cfg.Headless).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("no-default-browser-check")).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", m.cfg.viewportWidth(), m.cfg.viewportHeight()))
	if m.cfg.Bin != "" {
		l = l.Bin(m.cfg.Bin)
	}
	if m.cfg.UserDataDir != "" {
		l = l.UserDataDir(m.cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.viewportWidth(),
		Height:            m.cfg.viewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		m.log.Warn("set viewport failed", zap.Error(err))
	}

	m.grantClipboard(b)

	m.launcher = l
	m.browser = b
	m.page = newRodPage(page)

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.navTimeout())
	defer cancel()
	if err := m.page.Navigate(navCtx, m.cfg.TargetURL); err != nil {
		m.log.Warn("initial navigation failed", zap.String("url", m.cfg.TargetURL), zap.Error(err))
	}

	if m.cfg.LoadWait > 0 {
		select {
		case <-time.After(m.cfg.LoadWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.applyStealth(ctx)

	m.log.Info("browser started",
		zap.Bool("headless", m.cfg.Headless),
		zap.String("target", m.cfg.TargetURL))
	return nil
}

// grantClipboard asks the browser to allow clipboard access for the target
// origin. Failures are tolerated; the headless permission shim covers them.
func (m *Manager) grantClipboard(b *rod.Browser) {
	origin := m.cfg.TargetURL
	if u, err := url.Parse(m.cfg.TargetURL); err == nil {
		origin = u.Scheme + "://" + u.Host
	}
	err := proto.BrowserGrantPermissions{
		Permissions: []proto.BrowserPermissionType{
			proto.BrowserPermissionTypeClipboardReadWrite,
			proto.BrowserPermissionTypeClipboardSanitizedWrite,
		},
		Origin: origin,
	}.Call(b)
	if err != nil {
		m.log.Debug("clipboard permission grant failed", zap.Error(err))
	}
}

// applyStealth injects the post-load evasion profile. Headless mode gets the
// full set; visible mode only needs the clipboard shim skipped.
func (m *Manager) applyStealth(ctx context.Context) {
	if !m.cfg.Headless {
		return
	}
	for _, js := range []string{stealthJS, navigatorProfileJS, clipboardPermissionJS} {
		if _, err := m.page.Eval(ctx, js); err != nil {
			m.log.Debug("stealth injection failed", zap.Error(err))
		}
	}
}

// Page returns the shared page surface.
func (m *Manager) Page() (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.page == nil {
		return nil, ErrNotStarted
	}
	return m.page, nil
}

// Started reports whether the browser is connected and responsive.
func (m *Manager) Started() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.browser == nil {
		return false
	}
	_, err := m.browser.Version()
	return err == nil
}

// Restart tears the browser down and launches it again.
func (m *Manager) Restart(ctx context.Context) error {
	m.mu.Lock()
	m.closeLocked()
	m.mu.Unlock()
	return m.Start(ctx)
}

// Close shuts the browser down. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.log.Debug("browser close", zap.Error(err))
		}
		m.browser = nil
	}
	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher = nil
	}
	m.page = nil
}
