// Package credential persists the session credential between runs.
package credential

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// TokenSlot is the named slot the credential is stored under.
const TokenSlot = "jwt_token"

// ErrCorruptState is returned when the state file exists but cannot be parsed.
var ErrCorruptState = errors.New("corrupt state file")

// Store persists a single credential. Save overwrites; there is no merge.
type Store interface {
	Save(token string) error
	Load() (token string, ok bool, err error)
	Clear() error
}

// stateFile is the on-disk layout: a flat map of named slots.
type stateFile struct {
	Slots map[string]string `yaml:"slots"`
}

// FileStore keeps named slots in a YAML file. It is durable across process
// runs and local to the file's owner.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used to report a corrupt state file.
func WithLogger(l *slog.Logger) FileStoreOption {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore returns a store backed by the file at path. The file and its
// directory are created on first save.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes token into the credential slot. A corrupt state file is
// replaced rather than merged into.
func (s *FileStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, _, err := s.readOrReset()
	if err != nil {
		return err
	}
	state.Slots[TokenSlot] = token
	return s.write(state)
}

// Load returns the stored credential. A missing file or slot reports ok=false.
func (s *FileStore) Load() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.read()
	if err != nil {
		return "", false, err
	}
	token, ok := state.Slots[TokenSlot]
	if !ok || token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Clear removes the credential slot, leaving other slots intact.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, reset, err := s.readOrReset()
	if err != nil {
		return err
	}
	if _, ok := state.Slots[TokenSlot]; !ok && !reset {
		return nil
	}
	delete(state.Slots, TokenSlot)
	return s.write(state)
}

// read loads the state file. Caller must hold mu.
func (s *FileStore) read() (*stateFile, error) {
	state := &stateFile{Slots: map[string]string{}}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if err := yaml.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrCorruptState, s.path, err)
	}
	if state.Slots == nil {
		state.Slots = map[string]string{}
	}
	return state, nil
}

// readOrReset is read, except that a corrupt file yields an empty state so the
// next write replaces it. Caller must hold mu.
func (s *FileStore) readOrReset() (state *stateFile, reset bool, err error) {
	state, err = s.read()
	if errors.Is(err, ErrCorruptState) {
		s.logger.Warn("replacing corrupt state file", "file", s.path, "error", err)
		return &stateFile{Slots: map[string]string{}}, true, nil
	}
	return state, false, err
}

// write replaces the state file atomically. Caller must hold mu.
func (s *FileStore) write(state *stateFile) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// MemoryStore is a non-durable Store.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = token, true
	return nil
}

func (s *MemoryStore) Load() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set || s.token == "" {
		return "", false, nil
	}
	return s.token, true, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = "", false
	return nil
}
