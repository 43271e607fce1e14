package mutation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medequip/internal/client/credstore"
	"medequip/internal/client/notify"
	"medequip/internal/client/resync"
	"medequip/internal/client/session"
	"medequip/internal/shared/apperr"
	"medequip/internal/shared/models"
)

type stubAuth struct{}

func (stubAuth) Login(context.Context, string, string) (string, error) { return "tok", nil }
func (stubAuth) Me(context.Context, string) (models.UserProfile, error) {
	return models.UserProfile{}, nil
}

type fakeSubmitter struct {
	mu          sync.Mutex
	equipment   []models.NewEquipment
	maintenance []models.NewMaintenance
	tokens      []string
	err         error
}

func (f *fakeSubmitter) CreateEquipment(_ context.Context, token string, eq models.NewEquipment) (models.Equipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.equipment = append(f.equipment, eq)
	if f.err != nil {
		return models.Equipment{}, f.err
	}
	return models.Equipment{ID: "eq-1", Name: eq.Name, Status: eq.Status}, nil
}

func (f *fakeSubmitter) CreateMaintenance(_ context.Context, token string, m models.NewMaintenance) (models.MaintenanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.maintenance = append(f.maintenance, m)
	if f.err != nil {
		return models.MaintenanceRecord{}, f.err
	}
	return models.MaintenanceRecord{ID: "m-1", EquipmentID: m.EquipmentID, Type: m.Type}, nil
}

func (f *fakeSubmitter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.equipment) + len(f.maintenance)
}

type fakeResync struct {
	refreshes int
	equipment bool
}

func (f *fakeResync) Refresh(context.Context) resync.Result {
	f.refreshes++
	return resync.Result{Applied: true}
}

func (f *fakeResync) HasEquipment() bool { return f.equipment }

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) observe(m notify.Message, visible bool) {
	if !visible {
		return
	}
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Kind)
	}
	return out
}

type fixture struct {
	mgr  *session.Manager
	sub  *fakeSubmitter
	rs   *fakeResync
	rec  *recorder
	pipe *Pipeline
}

func newFixture(t *testing.T, withEquipment bool) *fixture {
	t.Helper()
	mgr := session.NewManager(credstore.NewMemory(""), stubAuth{}, nil)
	sc, err := mgr.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)

	f := &fixture{mgr: mgr, sub: &fakeSubmitter{}, rs: &fakeResync{equipment: withEquipment}, rec: &recorder{}}
	ch := notify.New(time.Minute, notify.WithObserver(f.rec.observe))
	t.Cleanup(ch.Clear)
	f.pipe = New(sc, f.sub, f.rs, ch, nil)
	return f
}

func fillEquipment(d *EquipmentDraft) {
	d.Name = "Monitor"
	d.Model = "X1"
	d.Manufacturer = "Acme"
	d.SerialNumber = "SN-1"
	d.Location = "ICU"
}

func TestSubmitEquipment_Success(t *testing.T) {
	f := newFixture(t, false)
	f.pipe.OpenEquipmentForm()
	f.pipe.Equipment.Update(fillEquipment)

	created, err := f.pipe.SubmitEquipment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eq-1", created.ID)

	require.Len(t, f.sub.equipment, 1)
	assert.Equal(t, models.EquipmentOperational, f.sub.equipment[0].Status)
	assert.Equal(t, []string{"tok"}, f.sub.tokens)
	assert.Equal(t, 1, f.rs.refreshes)
	assert.False(t, f.pipe.Equipment.IsOpen())
	assert.Equal(t, DefaultEquipmentDraft(), f.pipe.Equipment.Draft())
	assert.Equal(t, []notify.Kind{notify.KindSuccess}, f.rec.kinds())
}

func TestSubmitEquipment_FailureKeepsForm(t *testing.T) {
	f := newFixture(t, false)
	f.sub.err = errors.New("boom")
	f.pipe.OpenEquipmentForm()
	f.pipe.Equipment.Update(fillEquipment)
	before := f.pipe.Equipment.Draft()

	_, err := f.pipe.SubmitEquipment(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsTransport(err))
	assert.Equal(t, MsgEquipmentFailed, apperr.UserMessage(err, ""))

	assert.Equal(t, 0, f.rs.refreshes)
	assert.True(t, f.pipe.Equipment.IsOpen())
	assert.Equal(t, before, f.pipe.Equipment.Draft())
	assert.Equal(t, []notify.Kind{notify.KindError}, f.rec.kinds())
}

func TestSubmitEquipment_MissingFieldsSkipNetwork(t *testing.T) {
	f := newFixture(t, false)
	f.pipe.OpenEquipmentForm()
	f.pipe.Equipment.Update(func(d *EquipmentDraft) { d.Name = "  Monitor " })

	_, err := f.pipe.SubmitEquipment(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	msg := apperr.UserMessage(err, "")
	assert.Contains(t, msg, "modelo")
	assert.Contains(t, msg, "localizacao")
	assert.NotContains(t, msg, "nome")

	assert.Equal(t, 0, f.sub.calls())
	assert.True(t, f.pipe.Equipment.IsOpen())
	assert.Equal(t, []notify.Kind{notify.KindError}, f.rec.kinds())
}

func TestOpenMaintenanceForm_RequiresEquipment(t *testing.T) {
	f := newFixture(t, false)

	err := f.pipe.OpenMaintenanceForm()
	require.ErrorIs(t, err, ErrNoEquipment)
	assert.True(t, apperr.IsValidation(err))
	assert.False(t, f.pipe.Maintenance.IsOpen())
	assert.Equal(t, []notify.Kind{notify.KindError}, f.rec.kinds())

	f.rs.equipment = true
	require.NoError(t, f.pipe.OpenMaintenanceForm())
	assert.True(t, f.pipe.Maintenance.IsOpen())
}

func TestSubmitMaintenance_NoEquipment(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.pipe.OpenMaintenanceForm())
	f.rs.equipment = false

	_, err := f.pipe.SubmitMaintenance(context.Background())
	require.ErrorIs(t, err, ErrNoEquipment)
	assert.Equal(t, 0, f.sub.calls())
	assert.Equal(t, 0, f.rs.refreshes)
	assert.True(t, f.pipe.Maintenance.IsOpen())
	assert.Equal(t, []notify.Kind{notify.KindError}, f.rec.kinds())
}

func TestSubmitMaintenance_Success(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.pipe.OpenMaintenanceForm())
	f.pipe.Maintenance.Update(func(d *MaintenanceDraft) {
		d.EquipmentID = "eq-1"
		d.Type = models.MaintenanceCorrective
		d.Description = "replace sensor"
		d.ScheduledDate = "2024-05-01"
	})

	_, err := f.pipe.SubmitMaintenance(context.Background())
	require.NoError(t, err)

	require.Len(t, f.sub.maintenance, 1)
	sent := f.sub.maintenance[0]
	assert.Equal(t, "2024-05-01T00:00:00.000Z", sent.ScheduledDate)
	assert.Equal(t, models.MaintenancePending, sent.Status)
	assert.Equal(t, models.MaintenanceCorrective, sent.Type)
	assert.Equal(t, 1, f.rs.refreshes)
	assert.False(t, f.pipe.Maintenance.IsOpen())
	assert.Equal(t, DefaultMaintenanceDraft(), f.pipe.Maintenance.Draft())
	assert.Equal(t, []notify.Kind{notify.KindSuccess}, f.rec.kinds())
}

func TestSubmitMaintenance_InvalidType(t *testing.T) {
	f := newFixture(t, true)
	f.pipe.Maintenance.Update(func(d *MaintenanceDraft) {
		d.EquipmentID = "eq-1"
		d.Type = "urgente"
		d.Description = "x"
		d.ScheduledDate = "2024-05-01"
	})

	_, err := f.pipe.SubmitMaintenance(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, apperr.UserMessage(err, ""), "invalid fields: tipo")
	assert.Equal(t, 0, f.sub.calls())
}

func TestSubmitMaintenance_InvalidStatus(t *testing.T) {
	f := newFixture(t, true)
	f.pipe.Maintenance.Update(func(d *MaintenanceDraft) {
		d.EquipmentID = "eq-1"
		d.Description = "x"
		d.ScheduledDate = "2024-05-01"
		d.Status = "done"
	})

	_, err := f.pipe.SubmitMaintenance(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, apperr.UserMessage(err, ""), "invalid fields: status")
	assert.Equal(t, 0, f.sub.calls())
}

func TestSubmitMaintenance_StatusIsTrimmed(t *testing.T) {
	f := newFixture(t, true)
	f.pipe.Maintenance.Update(func(d *MaintenanceDraft) {
		d.EquipmentID = "eq-1"
		d.Description = "calibration"
		d.ScheduledDate = "2024-05-01"
		d.Status = " concluida "
	})

	_, err := f.pipe.SubmitMaintenance(context.Background())
	require.NoError(t, err)
	require.Len(t, f.sub.maintenance, 1)
	assert.Equal(t, models.MaintenanceCompleted, f.sub.maintenance[0].Status)
}

func TestSubmitMaintenance_BadDate(t *testing.T) {
	f := newFixture(t, true)
	f.pipe.Maintenance.Update(func(d *MaintenanceDraft) {
		d.EquipmentID = "eq-1"
		d.Description = "x"
		d.ScheduledDate = "next tuesday"
	})

	_, err := f.pipe.SubmitMaintenance(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, 0, f.sub.calls())
}

func TestSubmitAfterLogout(t *testing.T) {
	f := newFixture(t, true)
	f.pipe.Equipment.Update(fillEquipment)
	require.NoError(t, f.mgr.Logout())

	_, err := f.pipe.SubmitEquipment(context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)
	_, err = f.pipe.SubmitMaintenance(context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, 0, f.sub.calls())
	assert.Empty(t, f.rec.kinds())
}

func TestNormalizeDate(t *testing.T) {
	local := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local).UTC().Format(WireTimeLayout)
	cases := []struct {
		in, want string
	}{
		{"2024-05-01", "2024-05-01T00:00:00.000Z"},
		{"01/05/2024", "2024-05-01T00:00:00.000Z"},
		{"2024-05-01T12:00:00Z", "2024-05-01T12:00:00.000Z"},
		{"2024-05-01T12:00:00.5+02:00", "2024-05-01T10:00:00.500Z"},
		{" 2024-05-01T09:30 ", local},
		{"2024-05-01 09:30", local},
	}
	for _, tc := range cases {
		got, err := NormalizeDate(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "tomorrow", "2024-13-01", "32/01/2024"} {
		_, err := NormalizeDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestForm(t *testing.T) {
	f := NewForm(DefaultMaintenanceDraft())
	assert.False(t, f.IsOpen())
	f.Open()
	f.Update(func(d *MaintenanceDraft) { d.Description = "x" })
	f.Set(MaintenanceDraft{Description: "y"})
	assert.Equal(t, "y", f.Draft().Description)
	f.Reset()
	assert.Equal(t, DefaultMaintenanceDraft(), f.Draft())
	assert.True(t, f.IsOpen())
}
