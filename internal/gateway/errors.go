package gateway

import (
	"errors"
	"fmt"
)

// Sentinel errors for classified call failures.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrServer indicates the server answered with a non-200 status. Server
	// provided detail is deliberately not surfaced.
	ErrServer = errors.New("server processing error, please retry later")

	// ErrTransport indicates the call did not produce a usable response:
	// network failure, unreadable body, or an unparseable payload.
	ErrTransport = errors.New("transport failure")
)

// Kind distinguishes the two failure outcomes.
type Kind int

const (
	KindServer Kind = iota + 1
	KindTransport
)

// Error is a classified gateway failure.
type Error struct {
	Endpoint   string
	Kind       Kind
	StatusCode int   // Set for KindServer
	Cause      error // Set for KindTransport
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		return fmt.Sprintf("%s: %s (status %d)", e.Endpoint, ErrServer, e.StatusCode)
	default:
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return ErrTransport.Error()
	}
}

// Is matches ErrServer or ErrTransport by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrServer:
		return e.Kind == KindServer
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

func (e *Error) Unwrap() error {
	return e.Cause
}
