package domain

// Plan identifies a subscription tier. Each tier carries resource
// quotas enforced outside the control plane; the lifecycle engine only
// cares about the high-value distinction for deletion gating.
type Plan string

const (
	PlanTrial      Plan = "trial"
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// Quota holds the resource limits attached to a plan.
type Quota struct {
	MaxUsers     int
	MaxCourses   int
	MaxStorageMB int
}

// Quotas is the plan catalog.
var Quotas = map[Plan]Quota{
	PlanTrial:      {MaxUsers: 1, MaxCourses: 1, MaxStorageMB: 50},
	PlanBasic:      {MaxUsers: 50, MaxCourses: 10, MaxStorageMB: 1024},
	PlanPremium:    {MaxUsers: 200, MaxCourses: 50, MaxStorageMB: 10240},
	PlanEnterprise: {MaxUsers: 999999, MaxCourses: 999999, MaxStorageMB: 102400},
}

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	_, ok := Quotas[p]
	return ok
}

// HighValue reports whether deleting a tenant on this plan requires an
// explicit confirmation. Premium and enterprise tenants are never
// purged unattended.
func (p Plan) HighValue() bool {
	return p == PlanPremium || p == PlanEnterprise
}

// Quota returns the limits for the plan. Unknown plans get the trial
// quota, the most restrictive tier.
func (p Plan) Quota() Quota {
	if q, ok := Quotas[p]; ok {
		return q
	}
	return Quotas[PlanTrial]
}
