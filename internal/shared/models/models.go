package models

import "time"

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// UserProfile is what GET /me reports for the bearer of a token.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Disabled bool   `json:"disabled"`
}

const EquipmentOperational = "operacional"

type Equipment struct {
	ID           string    `json:"id"`
	Name         string    `json:"nome"`
	Model        string    `json:"modelo"`
	Manufacturer string    `json:"fabricante"`
	SerialNumber string    `json:"numero_serie"`
	Location     string    `json:"localizacao"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	CreatedBy    string    `json:"created_by,omitempty"`
}

func (e Equipment) Operational() bool { return e.Status == EquipmentOperational }

// NewEquipment is the create-equipment request body.
type NewEquipment struct {
	Name         string `json:"nome" validate:"required"`
	Model        string `json:"modelo" validate:"required"`
	Manufacturer string `json:"fabricante" validate:"required"`
	SerialNumber string `json:"numero_serie" validate:"required"`
	Location     string `json:"localizacao" validate:"required"`
	Status       string `json:"status"`
}

type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "preventiva"
	MaintenanceCorrective MaintenanceType = "corretiva"
)

type MaintenanceStatus string

const (
	MaintenancePending   MaintenanceStatus = "pendente"
	MaintenanceCompleted MaintenanceStatus = "concluida"
)

type MaintenanceRecord struct {
	ID            string            `json:"id"`
	EquipmentID   string            `json:"equipamento_id"`
	Type          MaintenanceType   `json:"tipo"`
	Description   string            `json:"descricao"`
	ScheduledDate time.Time         `json:"data_prevista"`
	Status        MaintenanceStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at,omitempty"`
	CreatedBy     string            `json:"created_by,omitempty"`
}

// NewMaintenance is the schedule-maintenance request body. ScheduledDate is
// an ISO-8601 instant string.
type NewMaintenance struct {
	EquipmentID   string            `json:"equipamento_id" validate:"required"`
	Type          MaintenanceType   `json:"tipo" validate:"required,oneof=preventiva corretiva"`
	Description   string            `json:"descricao" validate:"required"`
	ScheduledDate string            `json:"data_prevista" validate:"required"`
	Status        MaintenanceStatus `json:"status"`
}

type ReportEquipment struct {
	Total int `json:"total"`
}

type ReportMaintenance struct {
	Total     int `json:"total"`
	Pending   int `json:"pendentes"`
	Completed int `json:"concluidas"`
}

// Report is computed by the backend; the client only displays it.
type Report struct {
	Equipment   ReportEquipment   `json:"equipamentos"`
	Maintenance ReportMaintenance `json:"manutencoes"`
	GeneratedAt time.Time         `json:"gerado_em"`
	GeneratedBy string            `json:"gerado_por"`
}

func (r Report) EquipmentTotal() int     { return r.Equipment.Total }
func (r Report) MaintenanceTotal() int   { return r.Maintenance.Total }
func (r Report) MaintenancePending() int { return r.Maintenance.Pending }

type NotificationPriority string

const (
	PriorityHigh   NotificationPriority = "alta"
	PriorityNormal NotificationPriority = "media"
)

type NotificationKind string

const (
	NotificationOverdue  NotificationKind = "vencida"
	NotificationUpcoming NotificationKind = "proxima"
)

type Notification struct {
	ID       string               `json:"id"`
	Kind     NotificationKind     `json:"tipo"`
	Title    string               `json:"titulo"`
	Message  string               `json:"mensagem"`
	Date     time.Time            `json:"data"`
	Priority NotificationPriority `json:"prioridade"`
}

// Envelopes used on the wire.
type (
	EquipmentList struct {
		Equipment []Equipment `json:"equipamentos"`
		Total     int         `json:"total"`
	}
	MaintenanceList struct {
		Maintenance []MaintenanceRecord `json:"manutencoes"`
		Total       int                 `json:"total"`
	}
	ReportEnvelope struct {
		Report Report `json:"relatorio"`
	}
	NotificationList struct {
		Notifications []Notification `json:"notificacoes"`
		Total         int            `json:"total"`
	}
	EquipmentCreated struct {
		Message   string    `json:"message"`
		Equipment Equipment `json:"equipamento"`
	}
	MaintenanceCreated struct {
		Message     string            `json:"message"`
		Maintenance MaintenanceRecord `json:"manutencao"`
	}
)
