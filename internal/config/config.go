// Package config loads docsum settings from the environment.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// Summarization service base URL, without trailing slash
	APIHost string

	// Durable state file holding the credential slot
	StateFile string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Gateway calls slower than this are logged at WARN
	SlowCallThreshold time.Duration

	// Interval between job list refreshes in watch mode
	PollInterval time.Duration
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		APIHost:   strings.TrimRight(getEnv("DOCSUM_API_HOST", "http://localhost:8000"), "/"),
		StateFile: getEnv("DOCSUM_STATE_FILE", defaultStateFile()),

		LogFile:  getEnv("DOCSUM_LOG_FILE", "/tmp/docsum.log"),
		LogLevel: parseLogLevel(getEnv("DOCSUM_LOG_LEVEL", "INFO")),

		SlowCallThreshold: parseDuration(getEnv("DOCSUM_SLOW_CALL", ""), 2*time.Second),
		PollInterval:      parseDuration(getEnv("DOCSUM_POLL_INTERVAL", ""), 2*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// defaultStateFile resolves $XDG_CONFIG_HOME/docsum/state.yaml, falling back
// to ~/.config and finally the working directory.
func defaultStateFile() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "docsum", "state.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "docsum", "state.yaml")
	}
	return ".docsum-state.yaml"
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseDuration returns fallback for empty, invalid or non-positive values.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
