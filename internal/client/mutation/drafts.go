package mutation

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"medequip/internal/shared/models"
)

type EquipmentDraft struct {
	Name         string `form:"nome" validate:"required"`
	Model        string `form:"modelo" validate:"required"`
	Manufacturer string `form:"fabricante" validate:"required"`
	SerialNumber string `form:"numero_serie" validate:"required"`
	Location     string `form:"localizacao" validate:"required"`
	Status       string `form:"status"`
}

func DefaultEquipmentDraft() EquipmentDraft {
	return EquipmentDraft{Status: models.EquipmentOperational}
}

func (d EquipmentDraft) trimmed() EquipmentDraft {
	d.Name = strings.TrimSpace(d.Name)
	d.Model = strings.TrimSpace(d.Model)
	d.Manufacturer = strings.TrimSpace(d.Manufacturer)
	d.SerialNumber = strings.TrimSpace(d.SerialNumber)
	d.Location = strings.TrimSpace(d.Location)
	d.Status = strings.TrimSpace(d.Status)
	return d
}

func (d EquipmentDraft) request() models.NewEquipment {
	status := d.Status
	if status == "" {
		status = models.EquipmentOperational
	}
	return models.NewEquipment{
		Name:         d.Name,
		Model:        d.Model,
		Manufacturer: d.Manufacturer,
		SerialNumber: d.SerialNumber,
		Location:     d.Location,
		Status:       status,
	}
}

// MaintenanceDraft holds the raw date as typed; it is normalized on submit.
type MaintenanceDraft struct {
	EquipmentID   string                   `form:"equipamento_id" validate:"required"`
	Type          models.MaintenanceType   `form:"tipo" validate:"required,oneof=preventiva corretiva"`
	Description   string                   `form:"descricao" validate:"required"`
	ScheduledDate string                   `form:"data_prevista" validate:"required"`
	Status        models.MaintenanceStatus `form:"status" validate:"omitempty,oneof=pendente concluida"`
}

func DefaultMaintenanceDraft() MaintenanceDraft {
	return MaintenanceDraft{Type: models.MaintenancePreventive, Status: models.MaintenancePending}
}

func (d MaintenanceDraft) trimmed() MaintenanceDraft {
	d.EquipmentID = strings.TrimSpace(d.EquipmentID)
	d.Type = models.MaintenanceType(strings.TrimSpace(string(d.Type)))
	d.Description = strings.TrimSpace(d.Description)
	d.ScheduledDate = strings.TrimSpace(d.ScheduledDate)
	d.Status = models.MaintenanceStatus(strings.TrimSpace(string(d.Status)))
	return d
}

// WireTimeLayout is the ISO-8601 instant form the backend stores, with
// millisecond precision and a Z suffix.
const WireTimeLayout = "2006-01-02T15:04:05.000Z"

// NormalizeDate converts user input into a UTC instant in WireTimeLayout.
// Bare dates (2024-05-01, 01/05/2024) mean UTC midnight; a date-time
// without zone is read in local time; RFC 3339 keeps its offset.
func NormalizeDate(input string) (string, error) {
	s := strings.TrimSpace(input)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Format(WireTimeLayout), nil
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(WireTimeLayout), nil
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC().Format(WireTimeLayout), nil
		}
	}
	return "", errors.Errorf("unrecognized date %q", input)
}
