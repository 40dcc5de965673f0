package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides tenant-scoped catalog lookups.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithExec(db querier) *Repository {
	if db == nil {
		panic("catalog: exec required")
	}
	return &Repository{db: db}
}

// TenantExists verifies the tenant id resolves.
func (r *Repository) TenantExists(ctx context.Context, tenantID uuid.UUID) error {
	var one int
	if err := r.db.QueryRow(ctx, `SELECT 1 FROM tenants WHERE id = $1`, tenantID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("catalog: check tenant: %w", err)
	}
	return nil
}

// ServiceForTenant loads a service scoped to the tenant.
func (r *Repository) ServiceForTenant(ctx context.Context, tenantID, serviceID uuid.UUID) (*Service, error) {
	query := `
		SELECT id, tenant_id, name, duration_minutes, buffer_minutes, requires_staff, active, created_at
		FROM services
		WHERE id = $1 AND tenant_id = $2
	`
	var svc Service
	err := r.db.QueryRow(ctx, query, serviceID, tenantID).Scan(
		&svc.ID,
		&svc.TenantID,
		&svc.Name,
		&svc.DurationMinutes,
		&svc.BufferMinutes,
		&svc.RequiresStaff,
		&svc.Active,
		&svc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog: load service: %w", err)
	}
	return &svc, nil
}

// StaffForTenant loads a staff member scoped to the tenant.
func (r *Repository) StaffForTenant(ctx context.Context, tenantID, staffID uuid.UUID) (*Staff, error) {
	query := `
		SELECT id, tenant_id, name
		FROM staff
		WHERE id = $1 AND tenant_id = $2
	`
	var st Staff
	if err := r.db.QueryRow(ctx, query, staffID, tenantID).Scan(&st.ID, &st.TenantID, &st.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("catalog: load staff: %w", err)
	}
	return &st, nil
}
