// Package gateway wraps every call to the summarization service, attaching the
// session credential and reducing each response to one of three outcomes.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/docsum/internal/credential"
	"github.com/raphaelgruber/docsum/internal/metrics"
)

// AuthMode selects how the credential is attached to a request.
type AuthMode int

const (
	// AuthNone sends no credential (login, registration, password reset).
	AuthNone AuthMode = iota
	// AuthQueryToken sends the credential as the "token" query parameter.
	AuthQueryToken
	// AuthBearerHeader sends the credential as an Authorization bearer header.
	AuthBearerHeader
)

// TokenParam is the query parameter carrying the credential.
const TokenParam = "token"

// RequestIDHeader carries a per-call identifier for log correlation.
const RequestIDHeader = "X-Request-ID"

// Endpoint describes one service route.
type Endpoint struct {
	Name   string // Stable label for logs and metrics
	Method string
	Path   string
	Auth   AuthMode
}

// FilePart is a file sent as a multipart form field.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Request carries the optional parts of a call. At most one of JSON and File
// should be set.
type Request struct {
	Query url.Values
	JSON  any
	File  *FilePart
}

// Outcome is the classification of a call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeServerError
	OutcomeTransportFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return metrics.OutcomeOK
	case OutcomeServerError:
		return metrics.OutcomeServer
	default:
		return metrics.OutcomeTransport
	}
}

// Result is the classified response of a call.
type Result struct {
	Endpoint   string
	Outcome    Outcome
	StatusCode int
	Payload    []byte // Response body for OutcomeOK
	Failure    error  // Cause for OutcomeTransportFailure
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeOK
}

// Err returns nil for OutcomeOK and an *Error otherwise.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeOK:
		return nil
	case OutcomeServerError:
		return &Error{Endpoint: r.Endpoint, Kind: KindServer, StatusCode: r.StatusCode}
	default:
		return &Error{Endpoint: r.Endpoint, Kind: KindTransport, Cause: r.Failure}
	}
}

// Decode parses the JSON payload into v. A failed call returns its error; an
// unparseable payload is reported as a transport failure.
func (r Result) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return &Error{Endpoint: r.Endpoint, Kind: KindTransport, Cause: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}

// Gateway issues calls against the service base URL.
type Gateway struct {
	baseURL    string
	session    *credential.Session
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Collector
	slowCall   time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the underlying HTTP client. Its transport is wrapped
// with call logging.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

// WithLogger sets the logger used for call logging.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics records every call in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Gateway) { g.metrics = c }
}

// WithSlowCallThreshold sets the duration above which calls are logged at WARN.
func WithSlowCallThreshold(d time.Duration) Option {
	return func(g *Gateway) { g.slowCall = d }
}

// New creates a gateway for baseURL reading credentials from session.
// The default HTTP client has no timeout; deadlines come from the caller's context.
func New(baseURL string, session *credential.Session, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:    baseURL,
		session:    session,
		httpClient: &http.Client{},
		logger:     slog.Default(),
		slowCall:   defaultSlowCallThreshold,
	}
	for _, opt := range opts {
		opt(g)
	}

	// Wrap a copy so a caller-supplied client is not mutated.
	client := *g.httpClient
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	client.Transport = &loggingTransport{next: next, logger: g.logger, slow: g.slowCall}
	g.httpClient = &client

	return g
}

// Session returns the session context the gateway reads credentials from.
func (g *Gateway) Session() *credential.Session {
	return g.session
}

// Call performs one request and classifies the response. It never returns raw
// transport errors; they are folded into OutcomeTransportFailure.
func (g *Gateway) Call(ctx context.Context, ep Endpoint, req Request) Result {
	return g.do(ctx, ep, req, nil)
}

// Fetch performs one request and parses the JSON payload into v. An
// unparseable payload counts as a transport failure, in metrics as well.
func (g *Gateway) Fetch(ctx context.Context, ep Endpoint, req Request, v any) error {
	return g.do(ctx, ep, req, v).Err()
}

func (g *Gateway) do(ctx context.Context, ep Endpoint, req Request, v any) Result {
	start := time.Now()
	res := g.call(ctx, ep, req)
	res.Endpoint = ep.Name

	if v != nil && res.OK() {
		if err := json.Unmarshal(res.Payload, v); err != nil {
			g.logger.Warn("unparseable response", "endpoint", ep.Name, "status", res.StatusCode, "error", err)
			res = transportFailure(fmt.Errorf("parse response: %w", err))
			res.Endpoint = ep.Name
		}
	}

	if g.metrics != nil {
		g.metrics.RecordCall(ep.Name, res.Outcome.String(), time.Since(start))
	}
	return res
}

func (g *Gateway) call(ctx context.Context, ep Endpoint, req Request) Result {
	u, err := url.Parse(g.baseURL + ep.Path)
	if err != nil {
		return transportFailure(fmt.Errorf("build url: %w", err))
	}

	query := u.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	var bearer string
	switch ep.Auth {
	case AuthQueryToken:
		// A missing credential is not checked locally; the server rejects it.
		token, _ := g.credential()
		query.Set(TokenParam, token)
	case AuthBearerHeader:
		if token, ok := g.credential(); ok {
			bearer = token
		}
	case AuthNone:
	}
	u.RawQuery = query.Encode()

	body, contentType, err := encodeBody(req)
	if err != nil {
		return transportFailure(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, ep.Method, u.String(), body)
	if err != nil {
		return transportFailure(fmt.Errorf("create request: %w", err))
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		// *url.Error quotes the full URL, credential included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redactURL(u)
		}
		return transportFailure(fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused; the body is not surfaced.
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{Outcome: OutcomeServerError, StatusCode: resp.StatusCode}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		g.logger.Warn("response read failed", "endpoint", ep.Name, "error", err)
		return transportFailure(fmt.Errorf("read response: %w", err))
	}
	return Result{Outcome: OutcomeOK, StatusCode: resp.StatusCode, Payload: payload}
}

func (g *Gateway) credential() (string, bool) {
	if g.session == nil {
		return "", false
	}
	return g.session.Get()
}

func transportFailure(err error) Result {
	return Result{Outcome: OutcomeTransportFailure, Failure: err}
}

// encodeBody builds the request body and its content type.
func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.File != nil:
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		field := req.File.Field
		if field == "" {
			field = "file"
		}
		part, err := mw.CreateFormFile(field, req.File.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, req.File.Content); err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, "", fmt.Errorf("finish multipart: %w", err)
		}
		return &buf, mw.FormDataContentType(), nil

	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("marshal request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil

	default:
		return nil, "", nil
	}
}
