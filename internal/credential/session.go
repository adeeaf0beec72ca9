package credential

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Session.Claims when the credential cannot be
// decoded as a JWT. The credential is still usable; it is opaque to the client.
var ErrNotJWT = errors.New("credential is not a decodable JWT")

// Session is the explicit session context read by the gateway. It fronts a
// Store and caches the credential after the first load.
type Session struct {
	store Store

	mu     sync.RWMutex
	token  string
	has    bool
	loaded bool
}

// NewSession creates a session backed by store.
func NewSession(store Store) *Session {
	return &Session{store: store}
}

// Set stores token, replacing any previous credential.
func (s *Session) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(token); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	s.token, s.has, s.loaded = token, token != "", true
	return nil
}

// Get returns the credential and whether one is present. A store read error
// is reported as absent and retried on the next call.
func (s *Session) Get() (string, bool) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.token, s.has
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.token, s.has
	}

	token, ok, err := s.store.Load()
	if err != nil {
		return "", false
	}
	s.token, s.has, s.loaded = token, ok, true
	return token, ok
}

// Clear removes the credential.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	s.token, s.has, s.loaded = "", false, true
	return nil
}

// Claims describes the display-only fields of a JWT credential.
type Claims struct {
	Subject   string
	ExpiresAt *time.Time
	Extra     map[string]any
}

// Claims decodes the credential without verifying it. The server remains the
// only authority on validity; this is for display.
func (s *Session) Claims() (*Claims, error) {
	token, ok := s.Get()
	if !ok {
		return nil, errors.New("no credential stored")
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	claims := &Claims{Extra: map[string]any{}}
	if sub, err := mc.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	for k, v := range mc {
		if k == "sub" || k == "exp" {
			continue
		}
		claims.Extra[k] = v
	}
	return claims, nil
}
