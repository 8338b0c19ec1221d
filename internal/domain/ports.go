package domain

import (
	"context"
	"time"
)

// TenantRepository defines the persistence contract for tenants.
// Read methods exclude soft-deleted rows unless the method name says
// otherwise; the trashed path is explicit rather than an implicit
// query scope.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetByIDIncludingDeleted(ctx context.Context, id string) (Tenant, error)
	GetBySlug(ctx context.Context, slug string) (Tenant, error)
	List(ctx context.Context, filter ListFilter) ([]Tenant, error)
	// ListOverdue returns live tenants whose deletion_scheduled_at has
	// passed, the sweep's selection query.
	ListOverdue(ctx context.Context, now time.Time) ([]Tenant, error)
	// Update persists the tenant and fails with ErrStaleTenant if the
	// row's updated_at no longer matches tenant.UpdatedAt.
	Update(ctx context.Context, tenant Tenant) error
	// SoftDelete sets the deleted_at tombstone and the soft_deleted status.
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// HardDelete removes the row permanently.
	HardDelete(ctx context.Context, id string) error
}

// ListFilter holds optional criteria for listing tenants.
type ListFilter struct {
	Status         *Status
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// BindingRepository defines the persistence contract for domain
// bindings. Method names avoid colliding with TenantRepository so a
// single store can serve both ports.
type BindingRepository interface {
	CreateBinding(ctx context.Context, binding DomainBinding) error
	ListBindings(ctx context.Context, tenantID string) ([]DomainBinding, error)
	// DeleteBindings removes all bindings for a tenant and returns how
	// many were removed.
	DeleteBindings(ctx context.Context, tenantID string) (int, error)
}

// EventPublisher defines the contract for emitting domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, tenant Tenant) error
}

// ProvisionQueue enqueues asynchronous provisioning work. The operation
// id keys the progress record external pollers read while the job runs.
type ProvisionQueue interface {
	EnqueueProvision(ctx context.Context, tenant Tenant, operationID string) error
}

// TransitionValidator checks whether an event is legal from a state
// and returns the destination state.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// ProgressFunc receives provisioning progress updates. Implementations
// forward them to the operation store for external polling.
type ProgressFunc func(state OperationState, progress int, step, message string)

// Provisioner creates and destroys the physical resources backing a
// tenant: the isolated database, the domain binding, and the storage
// directories. Both operations are idempotent.
type Provisioner interface {
	Provision(ctx context.Context, tenant Tenant, progress ProgressFunc) error
	// Deprovision is best-effort: a missing resource is already
	// satisfied, a present resource that fails to delete is recorded in
	// the report. It never aborts on the first failure.
	Deprovision(ctx context.Context, tenant Tenant) CleanupReport
}

// OperationStore records in-flight operation progress for async polling.
type OperationStore interface {
	Set(id string, status OperationStatus)
	Get(id string) (OperationStatus, bool)
	List() map[string]OperationStatus
	Delete(id string)
}

// PruneResult reports what a backup retention sweep removed.
type PruneResult struct {
	FilesRemoved int
	BytesFreed   int64
}

// Archiver snapshots tenant metadata to durable storage before
// irreversible deletion and enforces the retention window.
type Archiver interface {
	Snapshot(tenant Tenant, bindings []DomainBinding) (string, error)
	Prune(retainFor time.Duration, now time.Time) (PruneResult, error)
}
