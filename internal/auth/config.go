// Package auth provides user accounts, sessions, API keys and passkeys.
package auth

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// DefaultSessionTTL is how long a sign-in lasts without GRAMMABLE_SESSION_TTL.
const DefaultSessionTTL = 14 * 24 * time.Hour

// Config holds authentication configuration.
type Config struct {
	DevMode    bool
	BaseURL    string // e.g. http://localhost:8080
	SessionTTL time.Duration
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		DevMode:    os.Getenv("GRAMMABLE_DEV_MODE") == "true",
		BaseURL:    strings.TrimRight(envOrDefault("GRAMMABLE_BASE_URL", "http://localhost:8080"), "/"),
		SessionTTL: durationFromEnv("GRAMMABLE_SESSION_TTL", DefaultSessionTTL),
	}
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid duration", "key", key, "value", v)
		return fallback
	}
	return d
}
