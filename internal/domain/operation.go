package domain

import "time"

// OperationState is the coarse progress state of an in-flight
// provisioning operation.
type OperationState string

const (
	OperationStarted   OperationState = "started"
	OperationRunning   OperationState = "running"
	OperationCompleted OperationState = "completed"
	OperationFailed    OperationState = "failed"
)

// Finished reports whether the operation reached a terminal state.
func (s OperationState) Finished() bool {
	return s == OperationCompleted || s == OperationFailed
}

// OperationStatus is the ephemeral progress record for a provisioning
// operation, keyed by an opaque operation id and read by external
// pollers. Last-write-wins per key; no durable storage.
type OperationStatus struct {
	State       OperationState
	Progress    int // 0..100
	CurrentStep string
	Plan        Plan
	TenantSlug  string
	Message     string
	UpdatedAt   time.Time
}
