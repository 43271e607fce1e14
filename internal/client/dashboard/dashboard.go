// Package dashboard ties one authenticated session to its resource mirror
// and mutation pipeline.
//
// A Workspace exists only while the session is authenticated. Logging out
// drops it, so nothing started under an old token can touch the next
// session's state.
package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"medequip/internal/client/credstore"
	"medequip/internal/client/mutation"
	"medequip/internal/client/notify"
	"medequip/internal/client/resync"
	"medequip/internal/client/session"
	"medequip/internal/shared/apperr"
	"medequip/internal/shared/logs"
)

var ErrLoginRequired = errors.New("not logged in")

// Backend is everything the client needs from the remote service.
type Backend interface {
	session.Authenticator
	resync.Fetcher
	mutation.Submitter
}

type Workspace struct {
	Session   *session.Context
	Sync      *resync.Coordinator
	Mutations *mutation.Pipeline
}

type Dashboard struct {
	sessions *session.Manager
	backend  Backend
	messages *notify.Channel
	logger   *slog.Logger

	mu sync.Mutex
	ws *Workspace
}

func New(store credstore.Store, backend Backend, messages *notify.Channel, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = logs.Discard()
	}
	return &Dashboard{
		sessions: session.NewManager(store, backend, logger),
		backend:  backend,
		messages: messages,
		logger:   logger,
	}
}

func (d *Dashboard) Status() session.Status { return d.sessions.Status() }
func (d *Dashboard) Messages() *notify.Channel { return d.messages }

// Workspace returns the workspace of the current session, or nil.
func (d *Dashboard) Workspace() *Workspace {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ws
}

// Start validates a stored token, if any, and performs the initial load.
// Without a usable token it returns ErrLoginRequired.
func (d *Dashboard) Start(ctx context.Context) (*Workspace, error) {
	if ws := d.Workspace(); ws != nil && ws.Session.Alive() {
		return ws, nil
	}
	if d.sessions.Status() != session.Validating {
		return nil, ErrLoginRequired
	}
	sc, err := d.sessions.ValidateStoredToken(ctx)
	if err != nil {
		d.logger.Info("stored token rejected", slog.Any("error", err))
		return nil, errors.Wrap(ErrLoginRequired, "session expired")
	}
	return d.open(ctx, sc)
}

// Login ends any current session, authenticates and performs the initial
// load of the new session.
func (d *Dashboard) Login(ctx context.Context, username, password string) (*Workspace, error) {
	if d.sessions.Status() != session.Unauthenticated {
		if err := d.Logout(); err != nil {
			return nil, err
		}
	}
	sc, err := d.sessions.Login(ctx, username, password)
	if err != nil {
		d.messages.Error(apperr.UserMessage(err, "Login failed"))
		return nil, err
	}
	d.sessions.LoadProfile(ctx, sc)
	return d.open(ctx, sc)
}

// Logout clears the token and drops the workspace. No backend call is made.
func (d *Dashboard) Logout() error {
	err := d.sessions.Logout()
	d.mu.Lock()
	d.ws = nil
	d.mu.Unlock()
	d.messages.Clear()
	return err
}

// open stores a workspace for sc and loads it. A session that ended
// before it could be stored yields session.ErrSuperseded.
func (d *Dashboard) open(ctx context.Context, sc *session.Context) (*Workspace, error) {
	coord := resync.New(sc, d.backend, d.logger)
	ws := &Workspace{
		Session:   sc,
		Sync:      coord,
		Mutations: mutation.New(sc, d.backend, coord, d.messages, d.logger),
	}
	d.mu.Lock()
	if !sc.Alive() {
		d.mu.Unlock()
		return nil, session.ErrSuperseded
	}
	d.ws = ws
	d.mu.Unlock()

	res := coord.LoadAll(ctx)
	if len(res.Failed) > 0 {
		d.logger.Warn("initial load incomplete", slog.Int("failed", len(res.Failed)))
	}
	return ws, nil
}
