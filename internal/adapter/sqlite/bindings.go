package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/tenantctl/internal/domain"
)

// Compile-time checks: the repository serves both persistence ports.
var (
	_ domain.TenantRepository  = (*TenantRepository)(nil)
	_ domain.BindingRepository = (*TenantRepository)(nil)
)

// CreateBinding alias methods live on TenantRepository: domain bindings
// share the control-plane database and are children of the tenant row.

func (r *TenantRepository) CreateBinding(ctx context.Context, b domain.DomainBinding) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO domains (hostname, tenant_id, created_at) VALUES (?, ?, ?)`,
		b.Hostname, b.TenantID, b.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting domain binding: %w", err)
	}
	return nil
}

func (r *TenantRepository) ListBindings(ctx context.Context, tenantID string) ([]domain.DomainBinding, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT hostname, tenant_id, created_at FROM domains
		 WHERE tenant_id = ? ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing domain bindings: %w", err)
	}
	defer rows.Close()

	var bindings []domain.DomainBinding
	for rows.Next() {
		var b domain.DomainBinding
		var createdAt string
		if err := rows.Scan(&b.Hostname, &b.TenantID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning domain binding: %w", err)
		}
		b.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		bindings = append(bindings, b)
	}

	return bindings, rows.Err()
}

func (r *TenantRepository) DeleteBindings(ctx context.Context, tenantID string) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM domains WHERE tenant_id = ?`, tenantID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting domain bindings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(rows), nil
}
