// Package provision creates and destroys the physical resources backing
// a tenant: an isolated SQLite database named after the tenant id, a
// domain binding, and the tenant-scoped storage directories.
package provision

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/neomorfeo/tenantctl/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var tenantMigrations embed.FS

// Compile-time check: Provisioner implements domain.Provisioner.
var _ domain.Provisioner = (*Provisioner)(nil)

// Config holds the provisioner's filesystem and naming parameters.
type Config struct {
	// DatabasesDir holds one SQLite file per tenant database.
	DatabasesDir string
	// StorageRoot holds per-tenant file trees.
	StorageRoot string
	// BaseDomain is the hostname suffix for new domain bindings.
	BaseDomain string
	// Seed enables baseline data in freshly created tenant databases.
	Seed bool
}

// Provisioner implements domain.Provisioner on the local filesystem.
type Provisioner struct {
	cfg      Config
	bindings domain.BindingRepository
	logger   *slog.Logger
}

// New creates a provisioner. The binding repository is the control
// plane's store; the tenant row itself is never mutated here.
func New(cfg Config, bindings domain.BindingRepository, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{cfg: cfg, bindings: bindings, logger: logger}
}

// DatabasePath returns the file backing the tenant's isolated database.
// The name derives from the immutable tenant id only.
func (p *Provisioner) DatabasePath(t domain.Tenant) string {
	return filepath.Join(p.cfg.DatabasesDir, t.DatabaseName()+".db")
}

// TenantDirs returns the storage directories owned by the tenant.
func (p *Provisioner) TenantDirs(t domain.Tenant) []string {
	return []string{
		filepath.Join(p.cfg.StorageRoot, "course_materials", t.ID),
		filepath.Join(p.cfg.StorageRoot, "temp", t.ID),
		filepath.Join(p.cfg.StorageRoot, "cache", "tenants", t.ID),
	}
}

// Provision creates the tenant's database, applies the tenant schema,
// optionally seeds baseline data, creates the storage directories, and
// records the domain binding. Idempotent: an existing database is
// detected by a pre-check and skipped, not recovered from a
// duplicate-object error.
func (p *Provisioner) Provision(ctx context.Context, t domain.Tenant, progress domain.ProgressFunc) error {
	if progress == nil {
		progress = func(domain.OperationState, int, string, string) {}
	}

	progress(domain.OperationRunning, 10, "validating", "validating tenant data")
	if t.ID == "" {
		return &domain.ResourceError{TenantID: t.ID, Step: "validating", Err: fmt.Errorf("empty tenant id")}
	}

	progress(domain.OperationRunning, 30, "creating_database", "creating isolated database")
	dbPath := p.DatabasePath(t)
	created, err := p.createDatabase(ctx, dbPath)
	if err != nil {
		return &domain.ResourceError{TenantID: t.ID, Step: "creating_database", Err: err}
	}
	if !created {
		p.logger.InfoContext(ctx, "tenant database already exists, skipping creation",
			"tenant_id", t.ID, "database", t.DatabaseName())
	}

	progress(domain.OperationRunning, 55, "migrating", "applying tenant schema")
	if err := p.migrateDatabase(ctx, dbPath); err != nil {
		return &domain.ResourceError{TenantID: t.ID, Step: "migrating", Err: err}
	}

	if p.cfg.Seed {
		progress(domain.OperationRunning, 70, "seeding", "seeding baseline data")
		if err := p.seedDatabase(ctx, dbPath, t); err != nil {
			return &domain.ResourceError{TenantID: t.ID, Step: "seeding", Err: err}
		}
	}

	progress(domain.OperationRunning, 85, "creating_storage", "creating storage directories")
	for _, dir := range p.TenantDirs(t) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &domain.ResourceError{TenantID: t.ID, Step: "creating_storage", Err: err}
		}
	}

	progress(domain.OperationRunning, 95, "binding_domain", "registering domain binding")
	hostname := t.Slug + "." + p.cfg.BaseDomain
	existing, err := p.bindings.ListBindings(ctx, t.ID)
	if err != nil {
		return &domain.ResourceError{TenantID: t.ID, Step: "binding_domain", Err: err}
	}
	if !hasHostname(existing, hostname) {
		err := p.bindings.CreateBinding(ctx, domain.DomainBinding{
			Hostname:  hostname,
			TenantID:  t.ID,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return &domain.ResourceError{TenantID: t.ID, Step: "binding_domain", Err: err}
		}
	}

	return nil
}

// Deprovision removes everything Provision created. Each sub-step is
// independently best-effort: a missing resource is already satisfied,
// a present resource that fails to delete is recorded in the report
// and the remaining steps still run.
func (p *Provisioner) Deprovision(ctx context.Context, t domain.Tenant) domain.CleanupReport {
	var report domain.CleanupReport

	dbPath := p.DatabasePath(t)
	if _, err := os.Stat(dbPath); err == nil {
		if err := dropDatabase(dbPath); err != nil {
			report.AddError("drop_database", err)
		} else {
			report.DatabaseDropped = true
		}
	}

	removed, err := p.bindings.DeleteBindings(ctx, t.ID)
	if err != nil {
		report.AddError("remove_domains", err)
	} else {
		report.DomainsRemoved = removed
	}

	for _, dir := range p.TenantDirs(t) {
		n, err := removeDir(dir)
		report.FilesDeleted += n
		if err != nil {
			report.AddError("remove_files", err)
		}
	}
	// The cache subtree counts as cleared unless a removal failed.
	report.CacheCleared = len(report.Errors) == 0

	if len(report.Errors) > 0 {
		p.logger.WarnContext(ctx, "deprovision completed with errors",
			"tenant_id", t.ID, "errors", len(report.Errors))
	}

	return report
}

// createDatabase creates the SQLite file if absent. Returns true when a
// new database was created, false when it already existed.
func (p *Provisioner) createDatabase(ctx context.Context, dbPath string) (bool, error) {
	if _, err := os.Stat(dbPath); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking database: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return false, fmt.Errorf("creating databases dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return false, fmt.Errorf("opening tenant database: %w", err)
	}
	defer db.Close()

	// Force file creation and sane defaults.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return false, fmt.Errorf("setting WAL mode: %w", err)
	}

	return true, nil
}

// migrateDatabase applies the tenant schema. Uses a goose provider
// instead of the package-level SetBaseFS so it cannot clash with the
// control-plane store's migrations.
func (p *Provisioner) migrateDatabase(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening tenant database: %w", err)
	}
	defer db.Close()

	sub, err := fs.Sub(tenantMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("reading embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(database.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying tenant schema: %w", err)
	}

	return nil
}

// seedDatabase inserts the baseline admin user. Idempotent via the
// unique email constraint check.
func (p *Provisioner) seedDatabase(ctx context.Context, dbPath string, t domain.Tenant) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening tenant database: %w", err)
	}
	defer db.Close()

	email := "admin@" + t.Slug
	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, email,
	).Scan(&count); err != nil {
		return fmt.Errorf("checking seed user: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO users (email, name, role, created_at) VALUES (?, ?, 'admin', ?)`,
		email, t.Name+" Admin", time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("seeding admin user: %w", err)
	}

	return nil
}

// dropDatabase removes the database file and its WAL sidecars.
func dropDatabase(dbPath string) error {
	if err := os.Remove(dbPath); err != nil {
		return fmt.Errorf("removing database file: %w", err)
	}
	// Sidecar files may or may not exist.
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")
	return nil
}

// removeDir deletes a tenant directory tree, returning how many regular
// files were removed. A missing directory is not an error.
func removeDir(dir string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", dir)
	}

	count := 0
	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := os.RemoveAll(dir); err != nil {
		return 0, err
	}
	return count, nil
}

func hasHostname(bindings []domain.DomainBinding, hostname string) bool {
	for _, b := range bindings {
		if b.Hostname == hostname {
			return true
		}
	}
	return false
}
