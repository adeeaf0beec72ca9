// Package notice holds the single user-visible error message.
package notice

import (
	"errors"
	"sync"

	"github.com/raphaelgruber/docsum/internal/gateway"
	"github.com/raphaelgruber/docsum/internal/service"
	"github.com/raphaelgruber/docsum/internal/validation"
)

// User-facing texts for the fixed error classes.
const (
	ServerErrorMessage      = "Server processing error, please retry later!"
	TaskNotCompletedMessage = "Task not completed yet!"
)

// Message renders err for display. Validation errors read "field: reason",
// server errors use a fixed retry message, and transport failures show the
// raw failure text.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if errors.Is(err, service.ErrTaskNotCompleted) {
		return TaskNotCompletedMessage
	}
	if errors.Is(err, gateway.ErrServer) {
		return ServerErrorMessage
	}
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		return gerr.Error()
	}
	return err.Error()
}

// Slot holds at most one message. Raising replaces whatever is shown.
type Slot struct {
	mu      sync.Mutex
	current string
}

// Raise replaces the current message with the rendering of err. A nil err
// leaves the slot unchanged.
func (s *Slot) Raise(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Message(err)
}

// Current returns the active message, if any.
func (s *Slot) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != ""
}

// Dismiss clears the active message.
func (s *Slot) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
}
