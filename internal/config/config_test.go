package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":8088" {
		t.Fatalf("expected :8088, got %q", cfg.Server.Addr)
	}
	if !cfg.Browser.Headless {
		t.Fatal("headless must default to true")
	}
	if cfg.Timeouts.Response != 300*time.Second {
		t.Fatalf("unexpected response timeout: %v", cfg.Timeouts.Response)
	}
	if cfg.Debug.Enabled {
		t.Fatal("debug must default to off")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("PLEXD_HEADLESS", "false")
	t.Setenv("PLEXD_RESPONSE_TIMEOUT", "60")
	t.Setenv("PLEXD_TARGET_URL", "https://chat.example.com/")
	t.Setenv("PLEXD_SESSIONS_FILE", "/tmp/sessions.json")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %q", cfg.Server.Addr)
	}
	if cfg.Browser.Headless {
		t.Fatal("headless override not applied")
	}
	if cfg.Timeouts.Response != time.Minute {
		t.Fatalf("unexpected response timeout: %v", cfg.Timeouts.Response)
	}
	if cfg.Browser.TargetURL != "https://chat.example.com/" {
		t.Fatalf("unexpected target url: %q", cfg.Browser.TargetURL)
	}
	if cfg.Paths.SessionsFile != "/tmp/sessions.json" {
		t.Fatalf("unexpected sessions file: %q", cfg.Paths.SessionsFile)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PLEXD_RESPONSE_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric timeout")
	}
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("PLEXD_POLL_INTERVAL", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero poll interval")
	}
}
