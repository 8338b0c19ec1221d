package domain

import "time"

// Status represents the lifecycle state of a tenant.
type Status string

const (
	StatusCreating        Status = "creating"
	StatusActive          Status = "active"
	StatusPendingDeletion Status = "pending_deletion"
	StatusSoftDeleted     Status = "soft_deleted"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	EventProvisionComplete Event = "provision_complete"
	EventScheduleDeletion  Event = "schedule_deletion"
	EventRestore           Event = "restore"
	EventFinalizeDeletion  Event = "finalize_deletion"
)

// Transition defines a valid state change: an event moves a tenant from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the tenant lifecycle.
// This is domain knowledge consumed by the FSM adapter. Purge (removal
// of the row itself) is terminal and therefore has no entry here.
var Transitions = []Transition{
	{Event: EventProvisionComplete, Src: StatusCreating, Dst: StatusActive},
	{Event: EventScheduleDeletion, Src: StatusActive, Dst: StatusPendingDeletion},
	{Event: EventRestore, Src: StatusPendingDeletion, Dst: StatusActive},
	{Event: EventFinalizeDeletion, Src: StatusPendingDeletion, Dst: StatusSoftDeleted},
}

// Tenant is the core domain entity representing an isolated customer
// account. Scheduling fields obey one invariant: DeletionScheduledAt is
// non-nil if and only if Status is pending_deletion.
type Tenant struct {
	ID                  string
	Name                string
	Slug                string
	Status              Status
	Plan                Plan
	CancellationReason  string
	DeletionScheduledAt *time.Time
	DeletedAt           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewTenant creates a tenant in the initial "creating" state.
func NewTenant(id, name, slug string, plan Plan) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:        id,
		Name:      name,
		Slug:      slug,
		Status:    StatusCreating,
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsPendingDeletion reports whether the tenant is in the grace period.
func (t Tenant) IsPendingDeletion() bool {
	return t.Status == StatusPendingDeletion
}

// CanBeRestored reports whether the tenant can still return to active:
// pending deletion with the scheduled date in the future.
func (t Tenant) CanBeRestored(now time.Time) bool {
	return t.IsPendingDeletion() &&
		t.DeletionScheduledAt != nil &&
		now.Before(*t.DeletionScheduledAt)
}

// OverdueForDeletion reports whether the grace period has elapsed and
// the tenant is eligible for final deletion.
func (t Tenant) OverdueForDeletion(now time.Time) bool {
	return t.IsPendingDeletion() &&
		t.DeletionScheduledAt != nil &&
		now.After(*t.DeletionScheduledAt)
}

// DaysUntilDeletion returns the whole days remaining until the
// scheduled deletion. Negative values mean the tenant is overdue.
// The second return is false when no deletion is scheduled.
func (t Tenant) DaysUntilDeletion(now time.Time) (int, bool) {
	if t.DeletionScheduledAt == nil {
		return 0, false
	}
	return int(t.DeletionScheduledAt.Sub(now).Hours() / 24), true
}

// DatabaseName returns the deterministic name of the tenant's isolated
// database. Derived from the immutable ID, never the slug: slugs can be
// reused after a purge, IDs cannot.
func (t Tenant) DatabaseName() string {
	return "tenant_" + t.ID
}
