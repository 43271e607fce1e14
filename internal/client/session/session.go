// Package session owns the authentication state of the client.
//
// A Manager moves between Unauthenticated, Validating and Authenticated.
// Every successful transition into Authenticated creates a new Context,
// which is the only handle other components use to reach the token. The
// Context ends when the manager leaves Authenticated, and results of
// requests started under an ended Context must be dropped.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"medequip/internal/client/credstore"
	"medequip/internal/shared/apperr"
	"medequip/internal/shared/logs"
	"medequip/internal/shared/models"
)

type Status int

const (
	Unauthenticated Status = iota
	Validating
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Validating:
		return "validating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

var (
	ErrSessionActive     = errors.New("a session is already active; log out first")
	ErrNothingToValidate = errors.New("no stored token awaiting validation")
	ErrSuperseded        = errors.New("session changed while the request was in flight")
	// ErrTokenNotCleared means the session ended locally but the slot
	// still holds its token; the next start would validate it again.
	ErrTokenNotCleared = errors.New("logged out, but the stored token could not be removed")
)

// Authenticator is the part of the backend the state machine talks to.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Me(ctx context.Context, token string) (models.UserProfile, error)
}

type Manager struct {
	mu         sync.Mutex
	store      credstore.Store
	auth       Authenticator
	logger     *slog.Logger
	status     Status
	epoch      uint64
	current    *Context
	pending    string
	validating bool
}

// NewManager reads the credential slot once. A stored token puts the
// manager in Validating; an empty or unreadable slot in Unauthenticated.
func NewManager(store credstore.Store, auth Authenticator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logs.Discard()
	}
	m := &Manager{store: store, auth: auth, logger: logger}
	token, err := store.Load()
	if err != nil {
		logger.Warn("discarding unreadable stored token", slog.Any("error", err))
		if err := store.Clear(); err != nil {
			logger.Error("clear credential slot", slog.Any("error", err))
		}
		token = ""
	}
	if token != "" {
		m.pending = token
		m.status = Validating
	}
	return m
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Current returns the live session context, or nil when not authenticated.
func (m *Manager) Current() *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Login submits credentials. It is only valid while Unauthenticated. Any
// failure leaves the manager Unauthenticated and yields a generic
// authentication error.
func (m *Manager) Login(ctx context.Context, username, password string) (*Context, error) {
	m.mu.Lock()
	if m.status != Unauthenticated {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	epoch := m.epoch
	m.mu.Unlock()

	token, err := m.auth.Login(ctx, username, password)
	if err != nil {
		m.logger.Warn("login failed", slog.Any("error", err))
		return nil, apperr.Authentication("session.Login", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch || m.status != Unauthenticated {
		return nil, ErrSuperseded
	}
	if err := m.store.Save(token); err != nil {
		return nil, errors.Wrap(err, "save token")
	}
	sc := m.beginLocked(token, models.UserProfile{})
	m.logger.Info("logged in", slog.String("username", username))
	return sc, nil
}

// ValidateStoredToken checks the token found at startup against GET /me.
// It runs at most once per stored token and never retries: any failure
// clears the slot and ends in Unauthenticated.
func (m *Manager) ValidateStoredToken(ctx context.Context) (*Context, error) {
	m.mu.Lock()
	if m.status != Validating || m.validating {
		m.mu.Unlock()
		return nil, ErrNothingToValidate
	}
	m.validating = true
	token, epoch := m.pending, m.epoch
	m.mu.Unlock()

	profile, err := m.auth.Me(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch || m.status != Validating {
		return nil, ErrSuperseded
	}
	m.pending, m.validating = "", false
	if err != nil {
		m.logger.Warn("stored token rejected", slog.Any("error", err))
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Error("clear credential slot", slog.Any("error", clearErr))
		}
		m.epoch++
		m.status = Unauthenticated
		return nil, apperr.Authentication("session.ValidateStoredToken", err)
	}
	return m.beginLocked(token, profile), nil
}

// LoadProfile fetches the profile for sc and caches it there. Failures are
// only logged; they do not end the session.
func (m *Manager) LoadProfile(ctx context.Context, sc *Context) {
	if sc == nil || !sc.Alive() {
		return
	}
	profile, err := m.auth.Me(ctx, sc.Token())
	if err != nil {
		m.logger.Warn("load user profile", slog.Any("error", err))
		return
	}
	if sc.Alive() {
		sc.setProfile(profile)
	}
}

// Logout clears the slot and ends the current context. It never calls the
// backend. The context ends even when the slot cannot be cleared; the
// error is then ErrTokenNotCleared.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.store.Clear()
	if err != nil {
		err = m.store.Clear()
	}
	m.epoch++
	if m.current != nil {
		m.current.end()
		m.current = nil
	}
	m.pending, m.validating = "", false
	m.status = Unauthenticated
	if err != nil {
		m.logger.Error("clear credential slot", slog.Any("error", err))
		return errors.Wrap(ErrTokenNotCleared, err.Error())
	}
	return nil
}

func (m *Manager) beginLocked(token string, profile models.UserProfile) *Context {
	m.epoch++
	sc := newContext(token, m.epoch, profile)
	m.current = sc
	m.status = Authenticated
	return sc
}
