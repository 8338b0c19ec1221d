package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrOperationNotFound = errors.New("operation not found")
	// ErrStaleTenant is returned when an update loses an optimistic
	// concurrency check: the row changed since it was read.
	ErrStaleTenant = errors.New("tenant modified concurrently")
	// ErrTenantStillActive is returned when a purge targets a tenant
	// that was never scheduled for deletion.
	ErrTenantStillActive = errors.New("tenant is still active")
	// ErrForceRequired is returned when a destructive operation on a
	// high-value plan runs without the force flag.
	ErrForceRequired = errors.New("high-value tenant requires force")
)

// SlugConflictError is returned when a tenant slug is already in use
// by a live (non-purged) tenant.
type SlugConflictError struct {
	Slug string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("slug %q is already in use", e.Slug)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// ResourceError records a failed create or delete against a tenant's
// backing database or filesystem. It is aggregated into a
// CleanupReport rather than aborting the remaining cleanup steps.
type ResourceError struct {
	TenantID string
	Step     string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("tenant %s: step %s: %v", e.TenantID, e.Step, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
