package gateway

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// defaultSlowCallThreshold is the duration above which calls are logged at WARN level.
const defaultSlowCallThreshold = 2 * time.Second

// maxURLLogLen is the maximum length for logged URLs before truncation.
const maxURLLogLen = 200

// loggingTransport logs every HTTP round trip with timing.
// Slow calls are logged at WARN, failures at ERROR.
type loggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
	slow   time.Duration
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(req)

	duration := time.Since(start)

	attrs := []any{
		"method", req.Method,
		"url", truncate(redactURL(req.URL), maxURLLogLen),
		"request_id", req.Header.Get(RequestIDHeader),
		"duration_ms", duration.Milliseconds(),
	}

	switch {
	case err != nil:
		attrs = append(attrs, "error", err.Error())
		t.logger.Error("request failed", attrs...)
	case resp.StatusCode != http.StatusOK:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Warn("request rejected", attrs...)
	case duration > t.slow:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Warn("slow request", attrs...)
	default:
		attrs = append(attrs, "status", resp.StatusCode)
		t.logger.Debug("request completed", attrs...)
	}

	return resp, err
}

// redactURL renders u with the credential query parameter masked.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	if q.Has(TokenParam) {
		q.Set(TokenParam, "REDACTED")
	}
	cp := *u
	cp.RawQuery = q.Encode()
	return cp.String()
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
