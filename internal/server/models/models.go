package models

import (
	"time"

	sm "medequip/internal/shared/models"
)

type (
	UserProfile       = sm.UserProfile
	TokenResponse     = sm.TokenResponse
	Equipment         = sm.Equipment
	NewEquipment      = sm.NewEquipment
	MaintenanceRecord = sm.MaintenanceRecord
	NewMaintenance    = sm.NewMaintenance
	MaintenanceType   = sm.MaintenanceType
	MaintenanceStatus = sm.MaintenanceStatus
	Report            = sm.Report
	Notification      = sm.Notification
)

const (
	MaintenancePending   = sm.MaintenancePending
	MaintenanceCompleted = sm.MaintenanceCompleted
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the stored account. PasswordHash is an argon2id PHC string.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	Disabled     bool
	CreatedAt    time.Time
}

func (u User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Username: u.Username, Role: u.Role, Disabled: u.Disabled}
}
