package domain

import "time"

// CleanupReport aggregates the outcome of the best-effort cleanup steps
// that run during final deletion. Individual step failures are recorded
// here instead of aborting the remaining steps; the record-level
// soft-delete must happen even when physical cleanup partially fails.
type CleanupReport struct {
	BackupCreated   bool
	BackupPath      string
	DatabaseDropped bool
	DomainsRemoved  int
	FilesDeleted    int
	CacheCleared    bool
	Errors          []string
}

// AddError records a failed cleanup step.
func (r *CleanupReport) AddError(step string, err error) {
	r.Errors = append(r.Errors, step+": "+err.Error())
}

// DeletionResult is the overall outcome of ExecuteFinalDeletion.
// Success refers to the authoritative step (the soft-delete of the
// tenant row); partial cleanup failures live in the report.
type DeletionResult struct {
	Success   bool
	Cleanup   CleanupReport
	DeletedAt time.Time
	Err       error
}
