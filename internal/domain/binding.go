package domain

import "time"

// DomainBinding maps a DNS hostname to a tenant. Bindings are children
// of the tenant row and are removed whenever the tenant is deleted.
type DomainBinding struct {
	Hostname  string
	TenantID  string
	CreatedAt time.Time
}
