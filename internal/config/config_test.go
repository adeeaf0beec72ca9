package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOCSUM_API_HOST", "")
	t.Setenv("DOCSUM_STATE_FILE", "")
	t.Setenv("DOCSUM_LOG_LEVEL", "")
	t.Setenv("DOCSUM_SLOW_CALL", "")
	t.Setenv("DOCSUM_POLL_INTERVAL", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	cfg := Load()

	assert.Equal(t, "http://localhost:8000", cfg.APIHost)
	assert.Equal(t, filepath.Join("/xdg", "docsum", "state.yaml"), cfg.StateFile)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.SlowCallThreshold)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DOCSUM_API_HOST", "https://api.example.com/")
	t.Setenv("DOCSUM_STATE_FILE", "/tmp/state.yaml")
	t.Setenv("DOCSUM_LOG_LEVEL", "debug")
	t.Setenv("DOCSUM_SLOW_CALL", "500ms")
	t.Setenv("DOCSUM_POLL_INTERVAL", "5s")

	cfg := Load()

	assert.Equal(t, "https://api.example.com", cfg.APIHost, "trailing slash is trimmed")
	assert.Equal(t, "/tmp/state.yaml", cfg.StateFile)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 500*time.Millisecond, cfg.SlowCallThreshold)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, time.Second, parseDuration("", time.Second))
	assert.Equal(t, time.Second, parseDuration("nonsense", time.Second))
	assert.Equal(t, time.Second, parseDuration("-3s", time.Second))
	assert.Equal(t, 3*time.Minute, parseDuration("3m", time.Second))
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("job submitted", "job_id", "42")
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "job submitted")
	assert.NotContains(t, stderr.String(), "hidden")

	line := strings.TrimSpace(file.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry), "file output must be JSON")
	assert.Equal(t, "job submitted", entry["msg"])
	assert.Equal(t, "42", entry["job_id"])
}

func TestSetupLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docsum.log")

	logger, cleanup := SetupLogger(path, slog.LevelInfo, false)
	require.NotNil(t, logger)
	logger.Info("hello")
	require.NoError(t, cleanup())

	assert.FileExists(t, path)
}

func TestSetupLoggerRedactsSensitiveAttrs(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelDebug)

	logger.Info("signed in", "token", "SECRET-TOKEN-123", "email", "a@b.co")

	for _, out := range []string{stderr.String(), file.String()} {
		assert.NotContains(t, out, "SECRET-TOKEN-123")
		assert.Contains(t, out, "REDACTED")
		assert.Contains(t, out, "a@b.co")
	}
}

func TestSetupLoggerFileIsPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docsum.log")

	_, cleanup := SetupLogger(path, slog.LevelInfo, false)
	require.NoError(t, cleanup())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSetupLoggerFallsBackToStderr(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	logger, cleanup := SetupLogger(filepath.Join(blocker, "docsum.log"), slog.LevelInfo, false)
	require.NotNil(t, logger)
	assert.NoError(t, cleanup())
}
