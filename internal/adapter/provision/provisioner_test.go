package provision_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/neomorfeo/tenantctl/internal/adapter/provision"
	"github.com/neomorfeo/tenantctl/internal/domain"

	_ "modernc.org/sqlite"
)

type fakeBindings struct {
	bindings map[string][]domain.DomainBinding
}

func newFakeBindings() *fakeBindings {
	return &fakeBindings{bindings: make(map[string][]domain.DomainBinding)}
}

func (f *fakeBindings) CreateBinding(_ context.Context, b domain.DomainBinding) error {
	f.bindings[b.TenantID] = append(f.bindings[b.TenantID], b)
	return nil
}

func (f *fakeBindings) ListBindings(_ context.Context, tenantID string) ([]domain.DomainBinding, error) {
	return f.bindings[tenantID], nil
}

func (f *fakeBindings) DeleteBindings(_ context.Context, tenantID string) (int, error) {
	n := len(f.bindings[tenantID])
	delete(f.bindings, tenantID)
	return n, nil
}

func newTestProvisioner(t *testing.T) (*provision.Provisioner, *fakeBindings) {
	t.Helper()
	root := t.TempDir()
	bindings := newFakeBindings()
	p := provision.New(provision.Config{
		DatabasesDir: filepath.Join(root, "databases"),
		StorageRoot:  filepath.Join(root, "storage"),
		BaseDomain:   "example.com",
		Seed:         true,
	}, bindings, nil)
	return p, bindings
}

func testTenant(id, slug string) domain.Tenant {
	return domain.NewTenant(id, "Tenant "+id, slug, domain.PlanBasic)
}

func TestProvision_CreatesAllResources(t *testing.T) {
	p, bindings := newTestProvisioner(t)
	tenant := testTenant("t-1", "acme")

	var steps []string
	progress := func(_ domain.OperationState, _ int, step, _ string) {
		steps = append(steps, step)
	}

	if err := p.Provision(context.Background(), tenant, progress); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	// Database file exists and carries the schema plus the seed user.
	dbPath := p.DatabasePath(tenant)
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening tenant db: %v", err)
	}
	defer db.Close()
	var users int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		t.Fatalf("querying users: %v", err)
	}
	if users != 1 {
		t.Errorf("users = %d, want 1 seeded admin", users)
	}

	// Storage directories exist.
	for _, dir := range p.TenantDirs(tenant) {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("storage dir missing: %s", dir)
		}
	}

	// Domain binding recorded under slug.base.
	got := bindings.bindings["t-1"]
	if len(got) != 1 || got[0].Hostname != "acme.example.com" {
		t.Errorf("bindings = %v, want [acme.example.com]", got)
	}

	// Progress steps arrive in provisioning order.
	want := []string{"validating", "creating_database", "migrating", "seeding", "creating_storage", "binding_domain"}
	if len(steps) != len(want) {
		t.Fatalf("steps = %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("steps[%d] = %q, want %q", i, steps[i], want[i])
		}
	}
}

func TestProvision_Idempotent(t *testing.T) {
	p, bindings := newTestProvisioner(t)
	tenant := testTenant("t-1", "acme")
	ctx := context.Background()

	if err := p.Provision(ctx, tenant, nil); err != nil {
		t.Fatalf("first provision failed: %v", err)
	}
	if err := p.Provision(ctx, tenant, nil); err != nil {
		t.Fatalf("second provision failed: %v", err)
	}

	// Still exactly one binding and one seed user.
	if got := bindings.bindings["t-1"]; len(got) != 1 {
		t.Errorf("bindings = %d, want 1", len(got))
	}
	db, err := sql.Open("sqlite", p.DatabasePath(tenant))
	if err != nil {
		t.Fatalf("opening tenant db: %v", err)
	}
	defer db.Close()
	var users int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		t.Fatalf("querying users: %v", err)
	}
	if users != 1 {
		t.Errorf("users = %d, want 1", users)
	}
}

func TestProvision_EmptyID(t *testing.T) {
	p, _ := newTestProvisioner(t)

	err := p.Provision(context.Background(), domain.Tenant{Slug: "acme"}, nil)
	var resErr *domain.ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResourceError, got %v", err)
	}
	if resErr.Step != "validating" {
		t.Errorf("step = %q, want %q", resErr.Step, "validating")
	}
}

func TestDeprovision_RemovesEverything(t *testing.T) {
	p, bindings := newTestProvisioner(t)
	tenant := testTenant("t-1", "acme")
	ctx := context.Background()

	if err := p.Provision(ctx, tenant, nil); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	// Drop some files into the tenant's storage.
	materials := p.TenantDirs(tenant)[0]
	for _, name := range []string{"lecture1.pdf", "lecture2.pdf"} {
		if err := os.WriteFile(filepath.Join(materials, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
	}

	report := p.Deprovision(ctx, tenant)

	if len(report.Errors) != 0 {
		t.Fatalf("unexpected cleanup errors: %v", report.Errors)
	}
	if !report.DatabaseDropped {
		t.Error("database should be dropped")
	}
	if report.DomainsRemoved != 1 {
		t.Errorf("DomainsRemoved = %d, want 1", report.DomainsRemoved)
	}
	if report.FilesDeleted != 2 {
		t.Errorf("FilesDeleted = %d, want 2", report.FilesDeleted)
	}
	if !report.CacheCleared {
		t.Error("CacheCleared should be true")
	}

	if _, err := os.Stat(p.DatabasePath(tenant)); !os.IsNotExist(err) {
		t.Error("database file should be gone")
	}
	for _, dir := range p.TenantDirs(tenant) {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("storage dir should be gone: %s", dir)
		}
	}
	if len(bindings.bindings["t-1"]) != 0 {
		t.Error("bindings should be removed")
	}
}

func TestDeprovision_MissingResourcesAreFine(t *testing.T) {
	p, _ := newTestProvisioner(t)
	tenant := testTenant("never-provisioned", "ghost")

	report := p.Deprovision(context.Background(), tenant)

	if len(report.Errors) != 0 {
		t.Errorf("missing resources must not error: %v", report.Errors)
	}
	if report.DatabaseDropped {
		t.Error("nothing to drop")
	}
	if report.FilesDeleted != 0 {
		t.Errorf("FilesDeleted = %d, want 0", report.FilesDeleted)
	}
}

func TestDatabasePath_IgnoresSlug(t *testing.T) {
	p, _ := newTestProvisioner(t)

	a := p.DatabasePath(domain.Tenant{ID: "abc", Slug: "one"})
	b := p.DatabasePath(domain.Tenant{ID: "abc", Slug: "two"})
	if a != b {
		t.Errorf("database path must derive from the id only: %q vs %q", a, b)
	}
	if filepath.Base(a) != "tenant_abc.db" {
		t.Errorf("file name = %q, want tenant_abc.db", filepath.Base(a))
	}
}

func TestProvision_SeedDisabled(t *testing.T) {
	root := t.TempDir()
	p := provision.New(provision.Config{
		DatabasesDir: filepath.Join(root, "databases"),
		StorageRoot:  filepath.Join(root, "storage"),
		BaseDomain:   "example.com",
		Seed:         false,
	}, newFakeBindings(), nil)
	tenant := testTenant("t-1", "acme")

	if err := p.Provision(context.Background(), tenant, nil); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	db, err := sql.Open("sqlite", p.DatabasePath(tenant))
	if err != nil {
		t.Fatalf("opening tenant db: %v", err)
	}
	defer db.Close()
	var users int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		t.Fatalf("querying users: %v", err)
	}
	if users != 0 {
		t.Errorf("users = %d, want 0 without seeding", users)
	}
}
