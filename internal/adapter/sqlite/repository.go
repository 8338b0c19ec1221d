package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/tenantctl/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// TenantRepository implements domain.TenantRepository and
// domain.BindingRepository using SQLite.
type TenantRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*TenantRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*TenantRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &TenantRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *TenantRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *TenantRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05.000Z"

const tenantColumns = `id, name, slug, status, plan, cancellation_reason,
	deletion_scheduled_at, deleted_at, created_at, updated_at`

func (r *TenantRepository) Create(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Slug, string(t.Status), string(t.Plan),
		t.CancellationReason,
		formatNullableTime(t.DeletionScheduledAt),
		formatNullableTime(t.DeletedAt),
		t.CreatedAt.Format(timeFormat),
		t.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.SlugConflictError{Slug: t.Slug}
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return r.scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants WHERE id = ? AND deleted_at IS NULL`, id,
	))
}

// GetByIDIncludingDeleted is the explicit trashed path: it also finds
// soft-deleted rows, which the purge command needs.
func (r *TenantRepository) GetByIDIncludingDeleted(ctx context.Context, id string) (domain.Tenant, error) {
	return r.scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants WHERE id = ?`, id,
	))
}

func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (domain.Tenant, error) {
	return r.scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants WHERE slug = ? AND deleted_at IS NULL`, slug,
	))
}

func (r *TenantRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants`
	var conds []string
	var args []any

	if !filter.IncludeDeleted {
		conds = append(conds, `deleted_at IS NULL`)
	}
	if filter.Status != nil {
		conds = append(conds, `status = ?`)
		args = append(args, string(*filter.Status))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	return r.queryTenants(ctx, query, args...)
}

// ListOverdue returns live tenants whose scheduled deletion date has
// passed, ordered oldest first so the longest-overdue are swept first.
func (r *TenantRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Tenant, error) {
	return r.queryTenants(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants
		 WHERE status = ?
		   AND deletion_scheduled_at IS NOT NULL
		   AND deletion_scheduled_at < ?
		   AND deleted_at IS NULL
		 ORDER BY deletion_scheduled_at ASC`,
		string(domain.StatusPendingDeletion), now.UTC().Format(timeFormat),
	)
}

// Update persists the tenant's mutable fields. The tenant's UpdatedAt
// is the optimistic concurrency token: if the row changed since it was
// read, the update loses and ErrStaleTenant is returned.
func (r *TenantRepository) Update(ctx context.Context, t domain.Tenant) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants
		 SET name = ?, slug = ?, status = ?, plan = ?,
		     cancellation_reason = ?, deletion_scheduled_at = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL AND updated_at = ?`,
		t.Name, t.Slug, string(t.Status), string(t.Plan),
		t.CancellationReason,
		formatNullableTime(t.DeletionScheduledAt),
		time.Now().UTC().Format(timeFormat),
		t.ID, t.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.SlugConflictError{Slug: t.Slug}
		}
		return fmt.Errorf("updating tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing row from a lost concurrency race.
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
		return domain.ErrStaleTenant
	}

	return nil
}

// SoftDelete sets the tombstone and the terminal persisted status. The
// row stays queryable via the including-deleted path until purged.
func (r *TenantRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET status = ?, deleted_at = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		string(domain.StatusSoftDeleted),
		at.UTC().Format(timeFormat),
		at.UTC().Format(timeFormat),
		id,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}

	return nil
}

// HardDelete removes the row permanently. Domain bindings cascade.
func (r *TenantRepository) HardDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("hard-deleting tenant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}

	return nil
}

func (r *TenantRepository) queryTenants(ctx context.Context, query string, args ...any) ([]domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		t, err := scanTenantColumns(rows.Scan)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}

// scanTenant scans a single row from QueryRow into a domain.Tenant.
func (r *TenantRepository) scanTenant(row *sql.Row) (domain.Tenant, error) {
	t, err := scanTenantColumns(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, err
}

func scanTenantColumns(scan func(...any) error) (domain.Tenant, error) {
	var t domain.Tenant
	var status, plan, createdAt, updatedAt string
	var scheduledAt, deletedAt sql.NullString

	err := scan(&t.ID, &t.Name, &t.Slug, &status, &plan,
		&t.CancellationReason, &scheduledAt, &deletedAt, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Tenant{}, err
		}
		return domain.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}

	t.Status = domain.Status(status)
	t.Plan = domain.Plan(plan)
	t.DeletionScheduledAt = parseNullableTime(scheduledAt)
	t.DeletedAt = parseNullableTime(deletedAt)
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return t, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
