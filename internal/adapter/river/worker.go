package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/tenantctl/internal/domain"
)

// EventWorker consumes lifecycle event jobs. It writes the audit line
// for each transition; the completed job rows in River's table double
// as a durable event history. Webhook fan-out would hang off this
// worker when a consumer for it exists.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single lifecycle event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	level := slog.LevelInfo
	// Irreversible transitions stand out in the log stream.
	if job.Args.Event == string(domain.EventFinalizeDeletion) {
		level = slog.LevelWarn
	}

	slog.Log(ctx, level, "tenant lifecycle event",
		"event", job.Args.Event,
		"tenant_id", job.Args.TenantID,
		"tenant_slug", job.Args.Slug,
		"plan", job.Args.Plan,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
