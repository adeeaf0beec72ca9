package notice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raphaelgruber/docsum/internal/client"
	"github.com/raphaelgruber/docsum/internal/credential"
	"github.com/raphaelgruber/docsum/internal/gateway"
	"github.com/raphaelgruber/docsum/internal/service"
	"github.com/raphaelgruber/docsum/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "validation",
			err:  validation.ValidateStrings(validation.SchemaOTP, map[string]string{"otp": "1"}).Err(),
			want: "otp: String must contain exactly 6 character(s)",
		},
		{
			name: "server error",
			err:  fmt.Errorf("login: %w", &gateway.Error{Endpoint: "login", Kind: gateway.KindServer, StatusCode: 500}),
			want: ServerErrorMessage,
		},
		{
			name: "submit server error",
			err:  fmt.Errorf("%w: %w", service.ErrInternal, &gateway.Error{Kind: gateway.KindServer, StatusCode: 400}),
			want: ServerErrorMessage,
		},
		{
			name: "transport failure",
			err: fmt.Errorf("refresh jobs: %w", &gateway.Error{
				Kind:  gateway.KindTransport,
				Cause: errors.New("execute request: connection refused"),
			}),
			want: "execute request: connection refused",
		},
		{
			name: "task not completed",
			err:  service.ErrTaskNotCompleted,
			want: TaskNotCompletedMessage,
		},
		{
			name: "other",
			err:  errors.New("open document: no such file"),
			want: "open document: no such file",
		},
		{
			name: "nil",
			err:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}

func TestSlotReplacesAndDismisses(t *testing.T) {
	var s Slot

	_, ok := s.Current()
	assert.False(t, ok)

	s.Raise(service.ErrTaskNotCompleted)
	msg, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, TaskNotCompletedMessage, msg)

	s.Raise(&gateway.Error{Kind: gateway.KindServer})
	msg, _ = s.Current()
	assert.Equal(t, ServerErrorMessage, msg)

	s.Raise(nil)
	msg, _ = s.Current()
	assert.Equal(t, ServerErrorMessage, msg)

	s.Dismiss()
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestRefreshFailureHidesCredential(t *testing.T) {
	const token = "SECRET-TOKEN-123"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	session := credential.NewSession(credential.NewMemoryStore())
	require.NoError(t, session.Set(token))
	gw := gateway.New(baseURL, session, gateway.WithLogger(logger))
	tracker := service.NewJobTracker(client.New(gw), logger)

	_, err := tracker.Refresh(context.Background())
	require.Error(t, err)

	var s Slot
	s.Raise(err)
	msg, ok := s.Current()
	require.True(t, ok)
	assert.NotContains(t, msg, token)
	assert.Contains(t, msg, "execute request")
	assert.NotContains(t, logs.String(), token)
}
