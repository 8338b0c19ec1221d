package river

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/tenantctl/internal/app"
	"github.com/neomorfeo/tenantctl/internal/domain"
)

// Compile-time check: Queue implements domain.ProvisionQueue.
var _ domain.ProvisionQueue = (*Queue)(nil)

// ProvisionJobArgs carries a provisioning request. The operation id
// keys the status record pollers read while the job runs.
type ProvisionJobArgs struct {
	TenantID    string `json:"tenant_id"`
	OperationID string `json:"operation_id"`
	Slug        string `json:"slug"`
	Plan        string `json:"plan"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (ProvisionJobArgs) Kind() string { return "tenant.provision" }

// Queue implements domain.ProvisionQueue by enqueuing River jobs.
type Queue struct {
	client *Client
}

// NewQueue creates a provisioning queue backed by the given River client.
func NewQueue(client *Client) *Queue {
	return &Queue{client: client}
}

// EnqueueProvision schedules asynchronous provisioning for a tenant.
func (q *Queue) EnqueueProvision(ctx context.Context, tenant domain.Tenant, operationID string) error {
	_, err := q.client.Insert(ctx, ProvisionJobArgs{
		TenantID:    tenant.ID,
		OperationID: operationID,
		Slug:        tenant.Slug,
		Plan:        string(tenant.Plan),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing provision job: %w", err)
	}
	return nil
}

// ProvisionWorker runs provisioning jobs: it creates the tenant's
// physical resources, reports progress into the operation store, and
// flips the tenant to active when done.
//
// Its collaborators are bound after construction because the service
// that triggers these jobs itself depends on the River client the
// worker registers with.
type ProvisionWorker struct {
	river.WorkerDefaults[ProvisionJobArgs]

	repo        domain.TenantRepository
	provisioner domain.Provisioner
	operations  domain.OperationStore
	service     *app.TenantService
}

// Bind wires the worker's collaborators. Must be called before the
// River client starts processing jobs.
func (w *ProvisionWorker) Bind(repo domain.TenantRepository, provisioner domain.Provisioner, operations domain.OperationStore, service *app.TenantService) {
	w.repo = repo
	w.provisioner = provisioner
	w.operations = operations
	w.service = service
}

// Work processes a single provisioning job.
func (w *ProvisionWorker) Work(ctx context.Context, job *river.Job[ProvisionJobArgs]) error {
	args := job.Args

	slog.InfoContext(ctx, "provisioning tenant",
		"tenant_id", args.TenantID,
		"operation_id", args.OperationID,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)

	tenant, err := w.repo.GetByID(ctx, args.TenantID)
	if errors.Is(err, domain.ErrTenantNotFound) {
		// The tenant vanished between enqueue and execution; retrying
		// cannot help.
		w.setStatus(args, domain.OperationFailed, 0, "loading", "tenant no longer exists")
		return river.JobCancel(err)
	}
	if err != nil {
		return err
	}

	progress := func(state domain.OperationState, pct int, step, message string) {
		w.setStatus(args, state, pct, step, message)
	}

	if err := w.provisioner.Provision(ctx, tenant, progress); err != nil {
		w.setStatus(args, domain.OperationFailed, 0, "provisioning", err.Error())
		return err
	}

	// A retried job may find the tenant already active.
	if tenant.Status == domain.StatusCreating {
		if _, err := w.service.Transition(ctx, tenant.ID, domain.EventProvisionComplete); err != nil {
			w.setStatus(args, domain.OperationFailed, 95, "activating", err.Error())
			return err
		}
	}

	w.setStatus(args, domain.OperationCompleted, 100, "completed", "tenant provisioned")
	return nil
}

func (w *ProvisionWorker) setStatus(args ProvisionJobArgs, state domain.OperationState, pct int, step, message string) {
	w.operations.Set(args.OperationID, domain.OperationStatus{
		State:       state,
		Progress:    pct,
		CurrentStep: step,
		Plan:        domain.Plan(args.Plan),
		TenantSlug:  args.Slug,
		Message:     message,
	})
}
