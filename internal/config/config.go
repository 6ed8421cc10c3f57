package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the server reads from the environment. Every field
// has a sane default so a bare `go run` against the sandbox gateway works.
type Config struct {
	HTTPAddr string

	GatewayBaseURL string
	ProjectSlug    string
	APIKey         string
	WebhookSecret  string
	GatewayTimeout time.Duration

	AllowedOrigins []string

	PollInterval    time.Duration
	PollMaxAttempts int
}

func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":3000"),
		GatewayBaseURL:  getenv("PAKASIR_BASE_URL", "https://app.pakasir.com/api"),
		ProjectSlug:     getenv("PAKASIR_PROJECT", ""),
		APIKey:          getenv("PAKASIR_API_KEY", ""),
		WebhookSecret:   getenv("WEBHOOK_SECRET", ""),
		GatewayTimeout:  getDuration("GATEWAY_TIMEOUT", 10*time.Second),
		AllowedOrigins:  splitCSV(getenv("ALLOWED_ORIGINS", "")),
		PollInterval:    getDuration("POLL_INTERVAL", 15*time.Second),
		PollMaxAttempts: getInt("POLL_MAX_ATTEMPTS", 60),
	}
}

// getenv also honors a *_FILE variant pointing at a file holding the value,
// for secrets mounted by the orchestrator.
func getenv(key, fallback string) string {
	if path := os.Getenv(key + "_FILE"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
