package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// redactedValue replaces the value of any sensitive attribute.
const redactedValue = "REDACTED"

// sensitiveKeys are attribute keys whose values never reach a log sink.
var sensitiveKeys = map[string]bool{
	"token":     true,
	"jwt_token": true,
	"password":  true,
	"otp":       true,
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[a.Key] {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// SetupLogger builds the command logger. Records go as text to stderr and as
// JSON lines to logFile. Stderr stays at WARN unless verbose is set. If the log
// file cannot be opened the logger writes to stderr alone.
func SetupLogger(logFile string, level slog.Level, verbose bool) (*slog.Logger, func() error) {
	stderrLevel := slog.LevelWarn
	if verbose {
		stderrLevel = level
	}

	file, err := openLogFile(logFile)
	if err != nil {
		logger := slog.New(newHandler(os.Stderr, stderrLevel, nil, level))
		logger.Warn("logging to stderr only", "file", logFile, "error", err)
		return logger, func() error { return nil }
	}
	return slog.New(newHandler(os.Stderr, stderrLevel, file, level)), file.Close
}

// SetupLoggerWithWriters builds the same logger over arbitrary writers, both
// at level.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return slog.New(newHandler(stderr, level, file, level))
}

// newHandler fans records out to a text sink and, when file is non-nil, a JSON
// sink. Both redact sensitive attributes.
func newHandler(stderr io.Writer, stderrLevel slog.Level, file io.Writer, fileLevel slog.Level) slog.Handler {
	text := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: stderrLevel, ReplaceAttr: redactAttr})
	if file == nil {
		return text
	}
	jsonl := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: fileLevel, ReplaceAttr: redactAttr})
	return slogmulti.Fanout(text, jsonl)
}

// openLogFile opens path for appending. The file is private to its owner since
// it records request URLs and account emails.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
