// Package credstore keeps the session token in a single durable slot.
package credstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"medequip/internal/client/vault"
)

// SlotName is the fixed key of the token slot.
const SlotName = "token"

var tokenAAD = []byte("medequip:" + SlotName)

// Store is the credential slot. An empty token with a nil error means no
// session is stored.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileStore persists the token sealed by the local vault key. Writes are
// serialized so concurrent callers never interleave.
type FileStore struct {
	mu    sync.Mutex
	path  string
	vault *vault.Vault
}

func NewFileStore(dir string) (*FileStore, error) {
	v, err := vault.Open(dir)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open vault")
	}
	return &FileStore{path: filepath.Join(dir, SlotName), vault: v}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(err, "read token")
	}
	plain, err := s.vault.Unseal(b, tokenAAD)
	if err != nil {
		return "", pkgerrors.Wrap(err, "unseal token")
	}
	return strings.TrimSpace(string(plain)), nil
}

func (s *FileStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.Clear()
	}
	sealed, err := s.vault.Seal([]byte(token), tokenAAD)
	if err != nil {
		return pkgerrors.Wrap(err, "seal token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return pkgerrors.Wrap(os.WriteFile(s.path, sealed, 0o600), "write token")
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return pkgerrors.Wrap(err, "remove token")
	}
	return nil
}

// Memory is a process-local slot.
type Memory struct {
	mu    sync.Mutex
	token string
}

func NewMemory(token string) *Memory { return &Memory{token: token} }

func (m *Memory) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Memory) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = strings.TrimSpace(token)
	return nil
}

func (m *Memory) Clear() error { return m.Save("") }
