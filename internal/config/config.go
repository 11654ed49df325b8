package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server   ServerConfig
	Browser  BrowserConfig
	Paths    PathsConfig
	Timeouts TimeoutsConfig
	Debug    DebugConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	browser, err := loadBrowserConfig()
	if err != nil {
		return nil, err
	}

	timeouts, err := loadTimeoutsConfig()
	if err != nil {
		return nil, err
	}

	debug, err := loadDebugConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Browser:  browser,
		Paths:    loadPathsConfig(),
		Timeouts: timeouts,
		Debug:    debug,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8088"
	}

	if strings.Contains(port, ":") {
		// Accept ":8088" or "127.0.0.1:8088" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// BrowserConfig describes the controlled browser instance.
type BrowserConfig struct {
	TargetURL   string
	Headless    bool
	UserDataDir string
	Bin         string
}

func loadBrowserConfig() (BrowserConfig, error) {
	headless, err := parseBoolEnv("PLEXD_HEADLESS", true)
	if err != nil {
		return BrowserConfig{}, err
	}

	return BrowserConfig{
		TargetURL:   getEnvOrDefault("PLEXD_TARGET_URL", "https://www.perplexity.ai/"),
		Headless:    headless,
		UserDataDir: getEnvOrDefault("PLEXD_USER_DATA_DIR", defaultHomePath(".plexd-profile")),
		Bin:         strings.TrimSpace(os.Getenv("PLEXD_BROWSER_BIN")),
	}, nil
}

// PathsConfig holds the persisted document locations.
type PathsConfig struct {
	SessionsFile string
	CoordsFile   string
}

func loadPathsConfig() PathsConfig {
	return PathsConfig{
		SessionsFile: getEnvOrDefault("PLEXD_SESSIONS_FILE", "sessions.json"),
		CoordsFile:   getEnvOrDefault("PLEXD_COORDS_FILE", defaultHomePath(".plexd-click-coords.json")),
	}
}

// TimeoutsConfig bounds each phase of a conversation turn. Values are read
// as whole seconds.
type TimeoutsConfig struct {
	InputDiscovery time.Duration
	Submit         time.Duration
	Response       time.Duration
	Challenge      time.Duration
	PollInterval   time.Duration
	LoadWait       time.Duration
}

func loadTimeoutsConfig() (TimeoutsConfig, error) {
	cfg := TimeoutsConfig{}
	for _, entry := range []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"PLEXD_INPUT_TIMEOUT", &cfg.InputDiscovery, 30 * time.Second},
		{"PLEXD_SUBMIT_TIMEOUT", &cfg.Submit, 30 * time.Second},
		{"PLEXD_RESPONSE_TIMEOUT", &cfg.Response, 300 * time.Second},
		{"PLEXD_CHALLENGE_TIMEOUT", &cfg.Challenge, 120 * time.Second},
		{"PLEXD_POLL_INTERVAL", &cfg.PollInterval, 2 * time.Second},
		{"PLEXD_LOAD_WAIT", &cfg.LoadWait, 5 * time.Second},
	} {
		d, err := parseSecondsEnv(entry.key, entry.def)
		if err != nil {
			return TimeoutsConfig{}, err
		}
		*entry.dst = d
	}
	return cfg, nil
}

// DebugConfig controls page captures and the event stream.
type DebugConfig struct {
	Enabled bool
	Dir     string
}

func loadDebugConfig() (DebugConfig, error) {
	enabled, err := parseBoolEnv("PLEXD_DEBUG", false)
	if err != nil {
		return DebugConfig{}, err
	}
	return DebugConfig{
		Enabled: enabled,
		Dir:     getEnvOrDefault("PLEXD_DEBUG_DIR", "debug"),
	}, nil
}

func defaultHomePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultValue, nil
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, value)
	}
	return time.Duration(seconds) * time.Second, nil
}
