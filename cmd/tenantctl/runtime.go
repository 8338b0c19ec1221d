package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/neomorfeo/tenantctl/internal/adapter/archive"
	"github.com/neomorfeo/tenantctl/internal/adapter/fsm"
	"github.com/neomorfeo/tenantctl/internal/adapter/provision"
	"github.com/neomorfeo/tenantctl/internal/adapter/sqlite"
	"github.com/neomorfeo/tenantctl/internal/adapter/statuscache"
	"github.com/neomorfeo/tenantctl/internal/app"
	"github.com/neomorfeo/tenantctl/internal/config"

	otelx "github.com/neomorfeo/tenantctl/internal/adapter/otel"
	riverx "github.com/neomorfeo/tenantctl/internal/adapter/river"
)

// runtime holds the fully wired application. Every command builds one;
// only serve starts the job client and the HTTP server on top of it.
type runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	repo       *sqlite.TenantRepository
	operations *statuscache.Store
	service    *app.TenantService
	sweeper    *app.Sweeper
	client     *riverx.Client
	providers  *otelx.Providers
}

// newRuntime wires adapters into the application service. Jobs enqueued
// by non-serve commands stay queued until a serve process drains them.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.FromEnv()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	providers, err := otelx.Setup(ctx, otelx.ConfigFromEnv())
	if err != nil {
		return nil, err
	}

	db, err := otelx.OpenDB(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	operations := statuscache.New()

	provisioner := provision.New(provision.Config{
		DatabasesDir: cfg.TenantDatabasesDir,
		StorageRoot:  cfg.StorageRoot,
		BaseDomain:   cfg.BaseDomain,
		Seed:         cfg.SeedTenantData,
	}, repo, logger)

	worker := &riverx.ProvisionWorker{}
	client, err := riverx.Setup(ctx, repo.DB(), worker)
	if err != nil {
		repo.Close()
		return nil, err
	}

	tracedRepo := otelx.NewTracingRepository(repo)
	publisher := otelx.NewTracingPublisher(riverx.NewPublisher(client))
	archiver := archive.New(filepath.Join(cfg.StorageRoot, "tenant-backups"))

	service := app.NewTenantService(app.ServiceParams{
		Repo:        tracedRepo,
		Bindings:    repo,
		Publisher:   publisher,
		Validator:   fsm.New(),
		Provisioner: provisioner,
		Queue:       riverx.NewQueue(client),
		Operations:  operations,
		Archiver:    archiver,
		GracePeriod: cfg.GracePeriod,
		Logger:      logger,
	})
	worker.Bind(tracedRepo, provisioner, operations, service)

	return &runtime{
		cfg:        cfg,
		logger:     logger,
		repo:       repo,
		operations: operations,
		service:    service,
		sweeper:    app.NewSweeper(tracedRepo, service, logger),
		client:     client,
		providers:  providers,
	}, nil
}

// close releases runtime resources in reverse wiring order.
func (r *runtime) close(ctx context.Context) error {
	var errs []error
	if err := r.repo.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.providers.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
