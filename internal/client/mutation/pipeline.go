// Package mutation submits the two user-initiated writes: registering
// equipment and scheduling maintenance.
//
// Each submission is validated locally first. A successful write closes
// and resets its form, resyncs the whole mirror and reports success; a
// failed one leaves the form as typed and reports the error. The created
// record is never inserted locally, it appears through the resync.
package mutation

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"medequip/internal/client/notify"
	"medequip/internal/client/resync"
	"medequip/internal/client/session"
	"medequip/internal/shared/apperr"
	"medequip/internal/shared/logs"
	"medequip/internal/shared/models"
)

const (
	MsgEquipmentCreated   = "Equipment added successfully!"
	MsgEquipmentFailed    = "Error adding equipment"
	MsgMaintenanceCreated = "Maintenance scheduled successfully!"
	MsgMaintenanceFailed  = "Error scheduling maintenance"
	MsgNoEquipment        = "Add at least one equipment before scheduling maintenance!"
)

var (
	ErrNoEquipment  = apperr.Validation("mutation", MsgNoEquipment)
	ErrSessionEnded = errors.New("session ended")
)

// Submitter performs the backend writes.
type Submitter interface {
	CreateEquipment(ctx context.Context, token string, eq models.NewEquipment) (models.Equipment, error)
	CreateMaintenance(ctx context.Context, token string, m models.NewMaintenance) (models.MaintenanceRecord, error)
}

// Resyncer is the coordinator as seen by the pipeline.
type Resyncer interface {
	Refresh(ctx context.Context) resync.Result
	HasEquipment() bool
}

type Pipeline struct {
	sess     *session.Context
	submit   Submitter
	resync   Resyncer
	messages *notify.Channel
	validate *validator.Validate
	logger   *slog.Logger

	Equipment   *Form[EquipmentDraft]
	Maintenance *Form[MaintenanceDraft]
}

func New(sess *session.Context, submit Submitter, rs Resyncer, messages *notify.Channel, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logs.Discard()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("form"); name != "" {
			return name
		}
		return fld.Name
	})
	return &Pipeline{
		sess:        sess,
		submit:      submit,
		resync:      rs,
		messages:    messages,
		validate:    v,
		logger:      logger.With(slog.String("component", "mutation")),
		Equipment:   NewForm(DefaultEquipmentDraft()),
		Maintenance: NewForm(DefaultMaintenanceDraft()),
	}
}

func (p *Pipeline) OpenEquipmentForm() { p.Equipment.Open() }

// OpenMaintenanceForm refuses to open while no equipment is mirrored.
func (p *Pipeline) OpenMaintenanceForm() error {
	if !p.resync.HasEquipment() {
		p.messages.Error(MsgNoEquipment)
		return ErrNoEquipment
	}
	p.Maintenance.Open()
	return nil
}

func (p *Pipeline) SubmitEquipment(ctx context.Context) (models.Equipment, error) {
	const op = "mutation.SubmitEquipment"
	if !p.sess.Alive() {
		return models.Equipment{}, ErrSessionEnded
	}
	draft := p.Equipment.Draft().trimmed()
	if err := p.check(op, draft); err != nil {
		return models.Equipment{}, err
	}

	created, err := p.submit.CreateEquipment(ctx, p.sess.Token(), draft.request())
	if err != nil {
		p.logger.Error("create equipment", slog.Any("error", err))
		if p.sess.Alive() {
			p.messages.Error(MsgEquipmentFailed)
		}
		return models.Equipment{}, apperr.Transport(op, MsgEquipmentFailed, err)
	}
	if !p.sess.Alive() {
		return created, ErrSessionEnded
	}

	p.Equipment.Close()
	p.Equipment.Reset()
	p.resync.Refresh(ctx)
	p.messages.Success(MsgEquipmentCreated)
	return created, nil
}

func (p *Pipeline) SubmitMaintenance(ctx context.Context) (models.MaintenanceRecord, error) {
	const op = "mutation.SubmitMaintenance"
	if !p.sess.Alive() {
		return models.MaintenanceRecord{}, ErrSessionEnded
	}
	if !p.resync.HasEquipment() {
		p.messages.Error(MsgNoEquipment)
		return models.MaintenanceRecord{}, ErrNoEquipment
	}
	draft := p.Maintenance.Draft().trimmed()
	if err := p.check(op, draft); err != nil {
		return models.MaintenanceRecord{}, err
	}
	when, err := NormalizeDate(draft.ScheduledDate)
	if err != nil {
		msg := "invalid date: " + draft.ScheduledDate
		p.messages.Error(msg)
		return models.MaintenanceRecord{}, apperr.Validation(op, msg)
	}
	status := draft.Status
	if status == "" {
		status = models.MaintenancePending
	}
	req := models.NewMaintenance{
		EquipmentID:   draft.EquipmentID,
		Type:          draft.Type,
		Description:   draft.Description,
		ScheduledDate: when,
		Status:        status,
	}

	created, err := p.submit.CreateMaintenance(ctx, p.sess.Token(), req)
	if err != nil {
		p.logger.Error("create maintenance", slog.Any("error", err))
		if p.sess.Alive() {
			p.messages.Error(MsgMaintenanceFailed)
		}
		return models.MaintenanceRecord{}, apperr.Transport(op, MsgMaintenanceFailed, err)
	}
	if !p.sess.Alive() {
		return created, ErrSessionEnded
	}

	p.Maintenance.Close()
	p.Maintenance.Reset()
	p.resync.Refresh(ctx)
	p.messages.Success(MsgMaintenanceCreated)
	return created, nil
}

// check runs the struct tags of draft and reports every missing or
// invalid field at once.
func (p *Pipeline) check(op string, draft any) error {
	err := p.validate.Struct(draft)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(op, err.Error())
	}
	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "required fields missing: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(invalid, ", "))
	}
	msg := strings.Join(parts, "; ")
	p.messages.Error(msg)
	return apperr.Validation(op, msg)
}
