package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/tenantctl/internal/domain"
)

// ErrSweepFailures is returned when at least one tenant's deletion
// failed. The sweep itself never partial-aborts.
var ErrSweepFailures = errors.New("sweep completed with failures")

// ConfirmFunc asks for explicit sign-off before deleting a high-value
// tenant. daysOverdue is how far past the grace deadline the tenant is.
type ConfirmFunc func(tenant domain.Tenant, daysOverdue int) bool

// SweepOptions controls a single sweep run.
type SweepOptions struct {
	// DryRun selects and reports overdue tenants without mutating anything.
	DryRun bool
	// Force bypasses the high-value confirmation gate.
	Force bool
	// Confirm gates premium/enterprise deletions. When nil (unattended
	// run), high-value tenants are skipped, never auto-purged.
	Confirm ConfirmFunc
}

// SweepSummary reports a sweep's per-tenant outcomes.
type SweepSummary struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	DryRun    bool
}

// Sweeper periodically finds and deletes every tenant overdue for
// deletion. Tenants are processed sequentially and in isolation: one
// tenant's failure never aborts the batch.
type Sweeper struct {
	repo    domain.TenantRepository
	service *TenantService
	logger  *slog.Logger
	now     func() time.Time
}

// NewSweeper creates a sweeper over the given repository and service.
func NewSweeper(repo domain.TenantRepository, service *TenantService, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{repo: repo, service: service, logger: logger, now: time.Now}
}

// Run executes one sweep and returns the summary. The returned error is
// ErrSweepFailures iff at least one tenant failed; selection errors are
// returned directly.
func (s *Sweeper) Run(ctx context.Context, opts SweepOptions) (SweepSummary, error) {
	summary := SweepSummary{DryRun: opts.DryRun}

	overdue, err := s.repo.ListOverdue(ctx, s.now())
	if err != nil {
		return summary, fmt.Errorf("selecting overdue tenants: %w", err)
	}

	for _, tenant := range overdue {
		summary.Processed++

		days, _ := tenant.DaysUntilDeletion(s.now())
		daysOverdue := -days

		log := s.logger.With(
			"tenant_id", tenant.ID,
			"tenant_slug", tenant.Slug,
			"plan", tenant.Plan,
			"days_overdue", daysOverdue,
		)
		log.InfoContext(ctx, "processing overdue tenant", "reason", tenant.CancellationReason)

		if opts.DryRun {
			log.InfoContext(ctx, "dry-run: tenant would be deleted")
			continue
		}

		// High-value tenants are never auto-purged without sign-off.
		if tenant.Plan.HighValue() && !opts.Force {
			if opts.Confirm == nil || !opts.Confirm(tenant, daysOverdue) {
				summary.Skipped++
				log.WarnContext(ctx, "skipping high-value tenant without confirmation")
				continue
			}
		}

		result := s.service.ExecuteFinalDeletion(ctx, tenant.ID)
		if result.Success {
			summary.Succeeded++
			log.InfoContext(ctx, "tenant deleted",
				"files_deleted", result.Cleanup.FilesDeleted,
				"backup_created", result.Cleanup.BackupCreated,
				"cleanup_errors", len(result.Cleanup.Errors),
			)
		} else {
			summary.Failed++
			log.ErrorContext(ctx, "tenant deletion failed", "error", result.Err)
		}
	}

	s.logger.InfoContext(ctx, "sweep finished",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"dry_run", summary.DryRun,
	)

	if summary.Failed > 0 {
		return summary, fmt.Errorf("%w: %d of %d", ErrSweepFailures, summary.Failed, summary.Processed)
	}
	return summary, nil
}
