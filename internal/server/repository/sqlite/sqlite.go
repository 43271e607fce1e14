package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"medequip/internal/server/models"
	"medequip/internal/server/repository"
)

// Repository stores users, equipment and maintenance records. Instants are
// kept as unix milliseconds so range queries compare numerically.
type Repository struct {
	db *sql.DB
}

func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One connection keeps shared in-memory databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			disabled INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS equipment (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			model TEXT NOT NULL,
			manufacturer TEXT NOT NULL,
			serial_number TEXT NOT NULL,
			location TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			created_by TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS maintenance (
			id TEXT PRIMARY KEY,
			equipment_id TEXT NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL,
			scheduled_at INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			created_by TEXT NOT NULL,
			FOREIGN KEY(equipment_id) REFERENCES equipment(id)
		);
		CREATE INDEX IF NOT EXISTS maintenance_scheduled_at ON maintenance(scheduled_at);
	`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

func (r *Repository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// Users

func (r *Repository) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users(id,username,password_hash,role,disabled,created_at) VALUES(?,?,?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.Disabled, u.CreatedAt.UnixMilli())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return models.User{}, repository.ErrDuplicate
		}
		return models.User{}, errors.Wrap(err, "insert user")
	}
	return u, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id,username,password_hash,role,disabled,created_at FROM users WHERE username = ?`, username)
	var (
		u       models.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Disabled, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, repository.ErrNotFound
		}
		return models.User{}, errors.Wrap(err, "get user")
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}

// Equipment

func (r *Repository) CreateEquipment(ctx context.Context, eq models.Equipment) (models.Equipment, error) {
	if eq.ID == "" {
		eq.ID = uuid.NewString()
	}
	if eq.CreatedAt.IsZero() {
		eq.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO equipment(id,name,model,manufacturer,serial_number,location,status,created_at,created_by)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		eq.ID, eq.Name, eq.Model, eq.Manufacturer, eq.SerialNumber, eq.Location, eq.Status,
		eq.CreatedAt.UnixMilli(), eq.CreatedBy)
	if err != nil {
		return models.Equipment{}, errors.Wrap(err, "insert equipment")
	}
	return eq, nil
}

func (r *Repository) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id,name,model,manufacturer,serial_number,location,status,created_at,created_by
		FROM equipment ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list equipment")
	}
	defer rows.Close()
	out := []models.Equipment{}
	for rows.Next() {
		var (
			eq      models.Equipment
			created int64
		)
		if err := rows.Scan(&eq.ID, &eq.Name, &eq.Model, &eq.Manufacturer, &eq.SerialNumber,
			&eq.Location, &eq.Status, &created, &eq.CreatedBy); err != nil {
			return nil, errors.Wrap(err, "scan equipment")
		}
		eq.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, eq)
	}
	return out, errors.Wrap(rows.Err(), "iterate equipment")
}

func (r *Repository) EquipmentExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM equipment WHERE id = ?`, id).Scan(&n); err != nil {
		return false, errors.Wrap(err, "lookup equipment")
	}
	return n > 0, nil
}

func (r *Repository) CountEquipment(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM equipment`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count equipment")
	}
	return n, nil
}

// Maintenance

const maintenanceColumns = `id,equipment_id,type,description,scheduled_at,status,created_at,created_by`

func (r *Repository) CreateMaintenance(ctx context.Context, m models.MaintenanceRecord) (models.MaintenanceRecord, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO maintenance(`+maintenanceColumns+`) VALUES(?,?,?,?,?,?,?,?)`,
		m.ID, m.EquipmentID, string(m.Type), m.Description, m.ScheduledDate.UnixMilli(),
		string(m.Status), m.CreatedAt.UnixMilli(), m.CreatedBy)
	if err != nil {
		return models.MaintenanceRecord{}, errors.Wrap(err, "insert maintenance")
	}
	return m, nil
}

func (r *Repository) ListMaintenance(ctx context.Context) ([]models.MaintenanceRecord, error) {
	return r.queryMaintenance(ctx, `SELECT `+maintenanceColumns+` FROM maintenance ORDER BY scheduled_at, id`)
}

// ListOpenMaintenanceBetween returns records not yet completed whose
// scheduled instant lies in [from, to).
func (r *Repository) ListOpenMaintenanceBetween(ctx context.Context, from, to time.Time) ([]models.MaintenanceRecord, error) {
	return r.queryMaintenance(ctx,
		`SELECT `+maintenanceColumns+` FROM maintenance
		WHERE scheduled_at >= ? AND scheduled_at < ? AND status <> ?
		ORDER BY scheduled_at, id`,
		from.UnixMilli(), to.UnixMilli(), string(models.MaintenanceCompleted))
}

// CountMaintenance counts all records, or those with status when it is
// non-empty.
func (r *Repository) CountMaintenance(ctx context.Context, status models.MaintenanceStatus) (int, error) {
	var (
		n   int
		err error
	)
	if status == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM maintenance`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM maintenance WHERE status = ?`, string(status)).Scan(&n)
	}
	if err != nil {
		return 0, errors.Wrap(err, "count maintenance")
	}
	return n, nil
}

func (r *Repository) queryMaintenance(ctx context.Context, query string, args ...any) ([]models.MaintenanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query maintenance")
	}
	defer rows.Close()
	out := []models.MaintenanceRecord{}
	for rows.Next() {
		var (
			m                  models.MaintenanceRecord
			typ, status        string
			scheduled, created int64
		)
		if err := rows.Scan(&m.ID, &m.EquipmentID, &typ, &m.Description, &scheduled, &status, &created, &m.CreatedBy); err != nil {
			return nil, errors.Wrap(err, "scan maintenance")
		}
		m.Type = models.MaintenanceType(typ)
		m.Status = models.MaintenanceStatus(status)
		m.ScheduledDate = time.UnixMilli(scheduled).UTC()
		m.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "iterate maintenance")
}
