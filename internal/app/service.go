package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/tenantctl/internal/domain"
)

// TenantService is the single authority over the tenant status field
// and the scheduling arithmetic around it. All mutations flow through
// its transition methods; adapters treat the tenant row as read-only.
type TenantService struct {
	repo        domain.TenantRepository
	bindings    domain.BindingRepository
	publisher   domain.EventPublisher
	validator   domain.TransitionValidator
	provisioner domain.Provisioner
	queue       domain.ProvisionQueue
	operations  domain.OperationStore
	archiver    domain.Archiver
	gracePeriod time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceParams bundles the adapters and tunables the service needs.
type ServiceParams struct {
	Repo        domain.TenantRepository
	Bindings    domain.BindingRepository
	Publisher   domain.EventPublisher
	Validator   domain.TransitionValidator
	Provisioner domain.Provisioner
	Queue       domain.ProvisionQueue
	Operations  domain.OperationStore
	Archiver    domain.Archiver
	GracePeriod time.Duration
	Logger      *slog.Logger
}

// NewTenantService creates a service with the given adapters.
func NewTenantService(p ServiceParams) *TenantService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{
		repo:        p.Repo,
		bindings:    p.Bindings,
		publisher:   p.Publisher,
		validator:   p.Validator,
		provisioner: p.Provisioner,
		queue:       p.Queue,
		operations:  p.Operations,
		archiver:    p.Archiver,
		gracePeriod: p.GracePeriod,
		logger:      logger,
		now:         time.Now,
	}
}

// Create persists a new tenant in the creating state and enqueues
// asynchronous provisioning. The returned operation id keys the
// progress record pollers read while provisioning runs.
func (s *TenantService) Create(ctx context.Context, name, slug string, plan domain.Plan) (domain.Tenant, string, error) {
	if !plan.Valid() {
		return domain.Tenant{}, "", fmt.Errorf("unknown plan %q", plan)
	}

	// Check slug uniqueness before creating.
	if _, err := s.repo.GetBySlug(ctx, slug); err == nil {
		return domain.Tenant{}, "", &domain.SlugConflictError{Slug: slug}
	}

	id, err := generateID()
	if err != nil {
		return domain.Tenant{}, "", fmt.Errorf("generating tenant id: %w", err)
	}

	tenant := domain.NewTenant(id, name, slug, plan)

	if err := s.repo.Create(ctx, tenant); err != nil {
		return domain.Tenant{}, "", fmt.Errorf("creating tenant: %w", err)
	}

	opID := newOperationID()
	s.operations.Set(opID, domain.OperationStatus{
		State:       domain.OperationStarted,
		Progress:    0,
		CurrentStep: "initializing",
		Plan:        plan,
		TenantSlug:  slug,
		Message:     "provisioning queued",
	})

	if err := s.queue.EnqueueProvision(ctx, tenant, opID); err != nil {
		s.operations.Set(opID, domain.OperationStatus{
			State:       domain.OperationFailed,
			Progress:    0,
			CurrentStep: "initializing",
			Plan:        plan,
			TenantSlug:  slug,
			Message:     err.Error(),
		})
		return domain.Tenant{}, "", fmt.Errorf("enqueuing provisioning: %w", err)
	}

	return tenant, opID, nil
}

// GetByID returns a live tenant by its unique identifier.
func (s *TenantService) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns tenants matching the given filter.
func (s *TenantService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Tenant, error) {
	return s.repo.List(ctx, filter)
}

// Transition applies a lifecycle event to a tenant, changing its state.
// Used for transitions that carry no scheduling arithmetic, such as
// provision_complete.
func (s *TenantService) Transition(ctx context.Context, id string, event domain.Event) (domain.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	newStatus, err := s.validator.Apply(ctx, tenant.Status, event)
	if err != nil {
		return domain.Tenant{}, err
	}

	tenant.Status = newStatus

	if err := s.repo.Update(ctx, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("updating tenant: %w", err)
	}

	if err := s.publisher.Publish(ctx, event, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("publishing event %q: %w", event, err)
	}

	return tenant, nil
}

// ScheduleForDeletion moves an active tenant into the grace period.
// Calling it on an already-pending tenant is an idempotent no-op that
// returns the existing schedule; the window is never extended by
// repeated requests. Any other state yields a TransitionError.
func (s *TenantService) ScheduleForDeletion(ctx context.Context, id, reason string) (domain.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	if tenant.IsPendingDeletion() {
		return tenant, nil
	}

	newStatus, err := s.validator.Apply(ctx, tenant.Status, domain.EventScheduleDeletion)
	if err != nil {
		return domain.Tenant{}, err
	}

	deadline := s.now().UTC().Add(s.gracePeriod)
	tenant.Status = newStatus
	tenant.DeletionScheduledAt = &deadline
	tenant.CancellationReason = reason

	if err := s.repo.Update(ctx, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("updating tenant: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventScheduleDeletion, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("publishing event: %w", err)
	}

	s.logger.InfoContext(ctx, "tenant scheduled for deletion",
		"tenant_id", tenant.ID,
		"deletion_scheduled_at", deadline,
		"reason", reason,
	)

	return tenant, nil
}

// Restore moves a pending-deletion tenant back to active. Returns false
// without mutating anything when the grace period has expired or the
// tenant is not pending: a stale restore request is an expected race,
// not an error. Callers must check the boolean.
func (s *TenantService) Restore(ctx context.Context, id string) (domain.Tenant, bool, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, false, err
	}

	if !tenant.CanBeRestored(s.now()) {
		return tenant, false, nil
	}

	newStatus, err := s.validator.Apply(ctx, tenant.Status, domain.EventRestore)
	if err != nil {
		return domain.Tenant{}, false, err
	}

	tenant.Status = newStatus
	tenant.DeletionScheduledAt = nil
	tenant.CancellationReason = ""

	if err := s.repo.Update(ctx, tenant); err != nil {
		return domain.Tenant{}, false, fmt.Errorf("updating tenant: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventRestore, tenant); err != nil {
		return domain.Tenant{}, false, fmt.Errorf("publishing event: %w", err)
	}

	s.logger.InfoContext(ctx, "tenant restored from pending deletion", "tenant_id", tenant.ID)

	return tenant, true, nil
}

// ExecuteFinalDeletion runs the ordered, best-effort teardown of a
// pending-deletion tenant: snapshot, deprovision physical resources,
// then soft-delete the row. Cleanup step failures aggregate into the
// report; only a failure of the soft-delete itself fails the result,
// because that is the step that stops future billing and usage.
func (s *TenantService) ExecuteFinalDeletion(ctx context.Context, id string) domain.DeletionResult {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.DeletionResult{Err: err}
	}

	if _, err := s.validator.Apply(ctx, tenant.Status, domain.EventFinalizeDeletion); err != nil {
		return domain.DeletionResult{Err: err}
	}

	var report domain.CleanupReport

	// 1. Snapshot metadata. Best-effort insurance: a failed backup is
	// recorded and deletion proceeds.
	bindings, err := s.bindings.ListBindings(ctx, tenant.ID)
	if err != nil {
		report.AddError("list_domains", err)
	}
	path, err := s.archiver.Snapshot(tenant, bindings)
	if err != nil {
		report.AddError("backup", err)
		s.logger.WarnContext(ctx, "backup snapshot failed, continuing deletion",
			"tenant_id", tenant.ID, "error", err)
	} else {
		report.BackupCreated = true
		report.BackupPath = path
	}

	// 2+3. Drop the database, remove bindings, delete tenant files.
	cleanup := s.provisioner.Deprovision(ctx, tenant)
	report.DatabaseDropped = cleanup.DatabaseDropped
	report.DomainsRemoved = cleanup.DomainsRemoved
	report.FilesDeleted = cleanup.FilesDeleted
	report.CacheCleared = cleanup.CacheCleared
	report.Errors = append(report.Errors, cleanup.Errors...)

	// 4. Soft-delete the row. This is the authoritative step.
	deletedAt := s.now().UTC()
	if err := s.repo.SoftDelete(ctx, tenant.ID, deletedAt); err != nil {
		return domain.DeletionResult{Cleanup: report, Err: fmt.Errorf("soft-deleting tenant: %w", err)}
	}

	tenant.Status = domain.StatusSoftDeleted
	tenant.DeletedAt = &deletedAt
	if err := s.publisher.Publish(ctx, domain.EventFinalizeDeletion, tenant); err != nil {
		// The deletion already happened; a publish failure is logged,
		// not surfaced as a deletion failure.
		s.logger.WarnContext(ctx, "publishing finalize event failed",
			"tenant_id", tenant.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "tenant deleted",
		"tenant_id", tenant.ID,
		"backup_created", report.BackupCreated,
		"files_deleted", report.FilesDeleted,
		"cleanup_errors", len(report.Errors),
	)

	return domain.DeletionResult{Success: true, Cleanup: report, DeletedAt: deletedAt}
}

// Purge permanently removes a soft-deleted (or pending-deletion) tenant:
// any remaining physical resources and the row itself. Active tenants
// are refused; high-value plans require force.
func (s *TenantService) Purge(ctx context.Context, id string, force bool) (domain.CleanupReport, error) {
	tenant, err := s.repo.GetByIDIncludingDeleted(ctx, id)
	if err != nil {
		return domain.CleanupReport{}, err
	}

	if tenant.DeletedAt == nil && tenant.Status == domain.StatusActive {
		return domain.CleanupReport{}, domain.ErrTenantStillActive
	}
	if tenant.Plan.HighValue() && !force {
		return domain.CleanupReport{}, domain.ErrForceRequired
	}

	report := s.provisioner.Deprovision(ctx, tenant)

	if err := s.repo.HardDelete(ctx, tenant.ID); err != nil {
		return report, fmt.Errorf("purging tenant row: %w", err)
	}

	s.logger.InfoContext(ctx, "tenant purged", "tenant_id", tenant.ID)

	return report, nil
}

// PruneBackups ages out snapshots older than the retention window.
func (s *TenantService) PruneBackups(retainFor time.Duration) (domain.PruneResult, error) {
	return s.archiver.Prune(retainFor, s.now())
}
