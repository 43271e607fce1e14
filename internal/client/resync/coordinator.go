// Package resync mirrors the backend's four resource collections.
//
// All four are fetched together and applied together. There is no partial
// or optimistic update path: after any mutation the whole mirror is
// reloaded.
package resync

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"medequip/internal/client/session"
	"medequip/internal/shared/logs"
	"medequip/internal/shared/models"
)

type Resource string

const (
	ResourceEquipment     Resource = "equipamentos"
	ResourceMaintenance   Resource = "manutencoes"
	ResourceReport        Resource = "relatorios"
	ResourceNotifications Resource = "notificacoes"
)

// Resources lists every mirrored collection.
var Resources = []Resource{ResourceEquipment, ResourceMaintenance, ResourceReport, ResourceNotifications}

// Fetcher reads the collections for a bearer token.
type Fetcher interface {
	ListEquipment(ctx context.Context, token string) ([]models.Equipment, error)
	ListMaintenance(ctx context.Context, token string) ([]models.MaintenanceRecord, error)
	GetReport(ctx context.Context, token string) (models.Report, error)
	ListNotifications(ctx context.Context, token string) ([]models.Notification, error)
}

// Snapshot is a copy of the mirror. Stale names the resources whose most
// recent fetch failed and still show an older value.
type Snapshot struct {
	Equipment     []models.Equipment
	Maintenance   []models.MaintenanceRecord
	Report        *models.Report
	Notifications []models.Notification
	Stale         map[Resource]error
	Loading       bool
	LoadedAt      time.Time
	Generation    uint64
}

// Fresh is true once a load has been applied with no failed resource and
// nothing is in flight.
func (s Snapshot) Fresh() bool {
	return s.Generation > 0 && !s.Loading && len(s.Stale) == 0
}

// Result describes one LoadAll. Applied is false when the results were
// dropped because the session ended or a newer load had already landed.
type Result struct {
	Failed  map[Resource]error
	Applied bool
}

func (r Result) OK() bool { return r.Applied && len(r.Failed) == 0 }

type Coordinator struct {
	sess   *session.Context
	fetch  Fetcher
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    Snapshot
	inflight int
	started  uint64
	applied  uint64
	loads    int
}

func New(sess *session.Context, fetch Fetcher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logs.Discard()
	}
	return &Coordinator{
		sess:   sess,
		fetch:  fetch,
		logger: logger.With(slog.String("component", "resync")),
		now:    time.Now,
		state: Snapshot{
			Equipment:     []models.Equipment{},
			Maintenance:   []models.MaintenanceRecord{},
			Notifications: []models.Notification{},
		},
	}
}

// LoadAll fetches the four collections concurrently and waits for every
// one of them. A failed fetch is logged and leaves that collection as it
// was; it never aborts the others. Loading stays true until all fetches of
// every overlapping load have settled. Nothing is fetched once the session
// has ended.
func (c *Coordinator) LoadAll(ctx context.Context) Result {
	if !c.sess.Alive() {
		return Result{}
	}
	c.mu.Lock()
	c.inflight++
	c.started++
	c.loads++
	seq := c.started
	c.state.Loading = true
	c.mu.Unlock()

	token := c.sess.Token()
	var (
		equipment     []models.Equipment
		maintenance   []models.MaintenanceRecord
		report        models.Report
		notifications []models.Notification
		errs          [4]error
	)
	var g errgroup.Group
	g.Go(func() error {
		equipment, errs[0] = c.fetch.ListEquipment(ctx, token)
		return nil
	})
	g.Go(func() error {
		maintenance, errs[1] = c.fetch.ListMaintenance(ctx, token)
		return nil
	})
	g.Go(func() error {
		report, errs[2] = c.fetch.GetReport(ctx, token)
		return nil
	})
	g.Go(func() error {
		notifications, errs[3] = c.fetch.ListNotifications(ctx, token)
		return nil
	})
	_ = g.Wait()

	failed := make(map[Resource]error)
	for i, err := range errs {
		if err != nil {
			failed[Resources[i]] = err
			c.logger.Warn("resource fetch failed", slog.String("resource", string(Resources[i])), slog.Any("error", err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	c.state.Loading = c.inflight > 0

	if !c.sess.Alive() {
		c.logger.Debug("dropping load for ended session", slog.Uint64("seq", seq))
		return Result{Failed: failed}
	}
	if seq < c.applied {
		c.logger.Debug("dropping superseded load", slog.Uint64("seq", seq), slog.Uint64("applied", c.applied))
		return Result{Failed: failed}
	}

	if errs[0] == nil {
		c.state.Equipment = nonNil(equipment)
	}
	if errs[1] == nil {
		c.state.Maintenance = nonNil(maintenance)
	}
	if errs[2] == nil {
		r := report
		c.state.Report = &r
	}
	if errs[3] == nil {
		c.state.Notifications = nonNil(notifications)
	}
	c.state.Stale = failed
	c.state.LoadedAt = c.now()
	c.state.Generation++
	c.applied = seq
	return Result{Failed: failed, Applied: true}
}

// Refresh is the post-mutation resync. It is LoadAll under another name.
func (c *Coordinator) Refresh(ctx context.Context) Result {
	return c.LoadAll(ctx)
}

func (c *Coordinator) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Loading
}

// Loads counts LoadAll and Refresh calls.
func (c *Coordinator) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Equipment = slices.Clone(s.Equipment)
	s.Maintenance = slices.Clone(s.Maintenance)
	s.Notifications = slices.Clone(s.Notifications)
	s.Stale = maps.Clone(s.Stale)
	if s.Report != nil {
		r := *s.Report
		s.Report = &r
	}
	return s
}

func (c *Coordinator) Equipment() []models.Equipment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.state.Equipment)
}

func (c *Coordinator) HasEquipment() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.state.Equipment) > 0
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
