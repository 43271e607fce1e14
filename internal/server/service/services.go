package service

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"medequip/internal/server/config"
	"medequip/internal/server/models"
	"medequip/internal/server/repository"
	"medequip/internal/shared/apperr"
	"medequip/internal/shared/logs"
	sm "medequip/internal/shared/models"
	"medequip/internal/shared/passhash"
)

const (
	bootstrapUsername = "admin"
	bootstrapPassword = "admin"
	// UpcomingWindow is how far ahead open maintenance is announced.
	UpcomingWindow = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserDisabled       = errors.New("inactive user")
)

type Repository interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	CreateEquipment(ctx context.Context, eq models.Equipment) (models.Equipment, error)
	ListEquipment(ctx context.Context) ([]models.Equipment, error)
	EquipmentExists(ctx context.Context, id string) (bool, error)
	CountEquipment(ctx context.Context) (int, error)

	CreateMaintenance(ctx context.Context, m models.MaintenanceRecord) (models.MaintenanceRecord, error)
	ListMaintenance(ctx context.Context) ([]models.MaintenanceRecord, error)
	ListOpenMaintenanceBetween(ctx context.Context, from, to time.Time) ([]models.MaintenanceRecord, error)
	CountMaintenance(ctx context.Context, status models.MaintenanceStatus) (int, error)
}

type Services struct {
	Auth          *AuthService
	Equipment     *EquipmentService
	Maintenance   *MaintenanceService
	Reports       *ReportService
	Notifications *NotificationService
}

type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock replaces time.Now for token expiry, timestamps and due-date
// windows.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func NewServices(repo Repository, cfg *config.Config, opts ...Option) *Services {
	o := options{now: time.Now, logger: logs.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	v := newValidator()
	return &Services{
		Auth: &AuthService{
			repo:      repo,
			jwtSecret: []byte(cfg.Auth.JWTSecret),
			ttl:       cfg.Auth.TokenTTL,
			now:       o.now,
			logger:    o.logger,
		},
		Equipment:     &EquipmentService{repo: repo, validate: v, now: o.now},
		Maintenance:   &MaintenanceService{repo: repo, validate: v, now: o.now},
		Reports:       &ReportService{repo: repo, now: o.now},
		Notifications: &NotificationService{repo: repo, now: o.now},
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func validationError(op string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(op, err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return apperr.Validation(op, "invalid or missing fields: "+strings.Join(fields, ", "))
}

// AuthService verifies passwords and issues and checks JWT access tokens.
// The subject of a token is the username.
type AuthService struct {
	repo      Repository
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// Login returns an access token. The very first admin/admin login creates
// the admin account.
func (a *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := a.repo.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if username != bootstrapUsername || password != bootstrapPassword {
			return "", ErrInvalidCredentials
		}
		if user, err = a.bootstrapAdmin(ctx); err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	default:
		ok, err := passhash.VerifyPassword(user.PasswordHash, password)
		if err != nil || !ok {
			return "", ErrInvalidCredentials
		}
	}
	return a.IssueAccessToken(user.Username)
}

func (a *AuthService) bootstrapAdmin(ctx context.Context) (models.User, error) {
	phc, err := passhash.HashPassword(bootstrapPassword)
	if err != nil {
		return models.User{}, errors.Wrap(err, "hash admin password")
	}
	user, err := a.repo.CreateUser(ctx, models.User{
		Username:     bootstrapUsername,
		PasswordHash: phc,
		Role:         models.RoleAdmin,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return a.repo.GetUserByUsername(ctx, bootstrapUsername)
	}
	if err != nil {
		return models.User{}, err
	}
	a.logger.Info("admin user created")
	return user, nil
}

func (a *AuthService) IssueAccessToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": a.now().Add(a.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.jwtSecret)
}

func (a *AuthService) ParseToken(_ context.Context, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.jwtSecret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// Authenticate resolves a bearer token to an active user.
func (a *AuthService) Authenticate(ctx context.Context, token string) (models.User, error) {
	username, err := a.ParseToken(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	user, err := a.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return models.User{}, ErrInvalidToken
	}
	if err != nil {
		return models.User{}, err
	}
	if user.Disabled {
		return models.User{}, ErrUserDisabled
	}
	return user, nil
}

type EquipmentService struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

func (s *EquipmentService) List(ctx context.Context) ([]models.Equipment, error) {
	return s.repo.ListEquipment(ctx)
}

func (s *EquipmentService) Create(ctx context.Context, req models.NewEquipment, by string) (models.Equipment, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.Equipment{}, validationError("equipment.Create", err)
	}
	status := req.Status
	if status == "" {
		status = sm.EquipmentOperational
	}
	return s.repo.CreateEquipment(ctx, models.Equipment{
		Name:         req.Name,
		Model:        req.Model,
		Manufacturer: req.Manufacturer,
		SerialNumber: req.SerialNumber,
		Location:     req.Location,
		Status:       status,
		CreatedAt:    s.now().UTC(),
		CreatedBy:    by,
	})
}

type MaintenanceService struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

func (s *MaintenanceService) List(ctx context.Context) ([]models.MaintenanceRecord, error) {
	return s.repo.ListMaintenance(ctx)
}

func (s *MaintenanceService) Create(ctx context.Context, req models.NewMaintenance, by string) (models.MaintenanceRecord, error) {
	const op = "maintenance.Create"
	if err := s.validate.Struct(req); err != nil {
		return models.MaintenanceRecord{}, validationError(op, err)
	}
	when, err := time.Parse(time.RFC3339Nano, req.ScheduledDate)
	if err != nil {
		return models.MaintenanceRecord{}, apperr.Validation(op, "data_prevista must be an ISO-8601 instant")
	}
	status := req.Status
	switch status {
	case "":
		status = models.MaintenancePending
	case models.MaintenancePending, models.MaintenanceCompleted:
	default:
		return models.MaintenanceRecord{}, apperr.Validation(op, fmt.Sprintf("unknown status %q", status))
	}
	ok, err := s.repo.EquipmentExists(ctx, req.EquipmentID)
	if err != nil {
		return models.MaintenanceRecord{}, err
	}
	if !ok {
		return models.MaintenanceRecord{}, apperr.Validation(op, "unknown equipamento_id")
	}
	return s.repo.CreateMaintenance(ctx, models.MaintenanceRecord{
		EquipmentID:   req.EquipmentID,
		Type:          req.Type,
		Description:   req.Description,
		ScheduledDate: when.UTC(),
		Status:        status,
		CreatedAt:     s.now().UTC(),
		CreatedBy:     by,
	})
}

type ReportService struct {
	repo Repository
	now  func() time.Time
}

func (s *ReportService) Generate(ctx context.Context, by string) (models.Report, error) {
	var (
		r   models.Report
		err error
	)
	if r.Equipment.Total, err = s.repo.CountEquipment(ctx); err != nil {
		return models.Report{}, err
	}
	if r.Maintenance.Total, err = s.repo.CountMaintenance(ctx, ""); err != nil {
		return models.Report{}, err
	}
	if r.Maintenance.Pending, err = s.repo.CountMaintenance(ctx, models.MaintenancePending); err != nil {
		return models.Report{}, err
	}
	if r.Maintenance.Completed, err = s.repo.CountMaintenance(ctx, models.MaintenanceCompleted); err != nil {
		return models.Report{}, err
	}
	r.GeneratedAt = s.now().UTC()
	r.GeneratedBy = by
	return r, nil
}

// NotificationService derives alerts from open maintenance: overdue items
// first, then items due within UpcomingWindow.
type NotificationService struct {
	repo Repository
	now  func() time.Time
}

func (s *NotificationService) List(ctx context.Context) ([]models.Notification, error) {
	now := s.now().UTC()
	overdue, err := s.repo.ListOpenMaintenanceBetween(ctx, time.Time{}, now)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.repo.ListOpenMaintenanceBetween(ctx, now, now.Add(UpcomingWindow+time.Millisecond))
	if err != nil {
		return nil, err
	}

	out := make([]models.Notification, 0, len(overdue)+len(upcoming))
	for _, m := range overdue {
		out = append(out, models.Notification{
			ID:       uuid.NewString(),
			Kind:     sm.NotificationOverdue,
			Title:    "Overdue maintenance",
			Message:  fmt.Sprintf("Maintenance %s is overdue", m.ID),
			Date:     m.ScheduledDate,
			Priority: sm.PriorityHigh,
		})
	}
	for _, m := range upcoming {
		out = append(out, models.Notification{
			ID:       uuid.NewString(),
			Kind:     sm.NotificationUpcoming,
			Title:    "Upcoming maintenance",
			Message:  fmt.Sprintf("Maintenance %s is due soon", m.ID),
			Date:     m.ScheduledDate,
			Priority: sm.PriorityNormal,
		})
	}
	return out, nil
}
