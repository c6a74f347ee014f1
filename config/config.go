package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Ingest    IngestConfig
	Browser   BrowserConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// IngestConfig controls extraction and delivery.
type IngestConfig struct {
	// SinkURL is the ingestion backend endpoint.
	SinkURL string // default: "http://localhost:3002"

	// SPADelay is the debounce between a navigation and the extraction run.
	SPADelay time.Duration // default: 5000ms

	// WaitTimeout bounds how long a strategy waits for dynamic content.
	WaitTimeout time.Duration // default: 5s

	// SendTimeout bounds one delivery to the backend.
	SendTimeout time.Duration // default: 10s
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// CDPURL attaches to a running Chrome instead of launching one.
	CDPURL string

	// Headless controls whether a launched browser runs headless. Watch
	// mode needs a visible window for the user to browse in.
	Headless bool // default: false

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to a launched browser.
	Proxy string

	// StartURL is opened when watch mode launches its own browser.
	StartURL string // default: "about:blank"

	// Stealth applies anti-detection patches to tabs opened for capture.
	Stealth bool // default: true

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// BlockedResourceTypes lists resource types blocked in capture mode.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// ServerConfig controls the local control API.
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8790; 0 disables the server
	Mode string // "debug", "release", "test"; default: "release"
}

// Enabled reports whether the control API should be started.
func (s ServerConfig) Enabled() bool { return s.Port > 0 }

// Addr returns the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// AuthConfig controls API key authentication of the control API.
type AuthConfig struct {
	// APIKeys is the list of accepted keys. Empty disables authentication,
	// which is only sensible while the server listens on loopback.
	APIKeys []string
}

// RateLimitConfig controls per-client rate limiting of the control API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per client IP.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Ingest: IngestConfig{
			SinkURL:     envOr("INGESTOR_SINK_URL", "http://localhost:3002"),
			SPADelay:    envMillisOr("INGESTOR_SPA_DELAY_MS", 5000*time.Millisecond),
			WaitTimeout: envDurationOr("INGESTOR_WAIT_TIMEOUT", 5*time.Second),
			SendTimeout: envDurationOr("INGESTOR_SEND_TIMEOUT", 10*time.Second),
		},
		Browser: BrowserConfig{
			CDPURL:            os.Getenv("INGESTOR_CDP_URL"),
			Headless:          envBoolOr("INGESTOR_HEADLESS", false),
			NoSandbox:         envBoolOr("INGESTOR_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("INGESTOR_BROWSER_BIN"),
			Proxy:             os.Getenv("INGESTOR_PROXY"),
			StartURL:          envOr("INGESTOR_START_URL", "about:blank"),
			Stealth:           envBoolOr("INGESTOR_STEALTH", true),
			NavigationTimeout: envDurationOr("INGESTOR_NAV_TIMEOUT", 30*time.Second),
			BlockedResourceTypes: envSliceOr("INGESTOR_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Server: ServerConfig{
			Host: envOr("INGESTOR_HOST", "127.0.0.1"),
			Port: envIntOr("INGESTOR_PORT", 8790),
			Mode: envOr("INGESTOR_MODE", "release"),
		},
		Auth: AuthConfig{
			APIKeys: envSliceOr("INGESTOR_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("INGESTOR_RATE_RPS", 2.0),
			Burst:             envIntOr("INGESTOR_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("INGESTOR_LOG_LEVEL", "info"),
			Format: envOr("INGESTOR_LOG_FORMAT", "text"),
		},
	}
}

// Validate reports settings that would make every run fail.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Ingest.SinkURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: sink url %q must be an absolute http(s) url", c.Ingest.SinkURL)
	}
	if c.Ingest.SPADelay <= 0 {
		return fmt.Errorf("config: spa delay must be positive, got %s", c.Ingest.SPADelay)
	}
	if c.Ingest.WaitTimeout <= 0 || c.Ingest.SendTimeout <= 0 {
		return fmt.Errorf("config: wait and send timeouts must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("config: rate limit must allow at least one request")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envMillisOr reads a bare integer number of milliseconds.
func envMillisOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
