package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-platform/internal/availability"
	"github.com/slotwise/booking-platform/internal/events"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads and mutates stored reservations outside the gate's
// transactional path.
type Repository struct {
	db querier
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("reservations: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithExec(db querier) *Repository {
	if db == nil {
		panic("reservations: exec required")
	}
	return &Repository{db: db}
}

// ListOccupied returns the occupied UTC windows overlapping [from, to),
// each padded on its end by the blocking reservation's service buffer.
// A staff id scopes the check to that staff member plus staff-less
// reservations, which block every calendar; nil means tenant-wide.
func (r *Repository) ListOccupied(ctx context.Context, tenantID uuid.UUID, staffID *uuid.UUID, from, to time.Time) ([]availability.OccupiedInterval, error) {
	query := `
		SELECT r.start_utc, r.end_utc + make_interval(mins => s.buffer_minutes)
		FROM reservations r
		JOIN services s ON s.id = r.service_id
		WHERE r.tenant_id = $1
		  AND r.status IN ('confirmed', 'completed')
		  AND ($2::uuid IS NULL OR r.staff_id IS NULL OR r.staff_id = $2)
		  AND r.start_utc < $4
		  AND r.end_utc + make_interval(mins => s.buffer_minutes) > $3
		ORDER BY r.start_utc
	`
	rows, err := r.db.Query(ctx, query, tenantID, staffID, from, to)
	if err != nil {
		return nil, fmt.Errorf("reservations: list occupied: %w", err)
	}
	defer rows.Close()

	var occupied []availability.OccupiedInterval
	for rows.Next() {
		var iv availability.OccupiedInterval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("reservations: scan occupied: %w", err)
		}
		occupied = append(occupied, iv)
	}
	return occupied, rows.Err()
}

// GetForTenant loads one reservation scoped to the tenant.
func (r *Repository) GetForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Reservation, error) {
	query := `
		SELECT id, tenant_id, service_id, staff_id, start_utc, end_utc, status, created_at, updated_at
		FROM reservations
		WHERE id = $1 AND tenant_id = $2
	`
	var res Reservation
	err := r.db.QueryRow(ctx, query, id, tenantID).Scan(
		&res.ID, &res.TenantID, &res.ServiceID, &res.StaffID,
		&res.StartUTC, &res.EndUTC, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reservations: get reservation: %w", err)
	}
	return &res, nil
}

// UpdateStatus transitions a confirmed reservation to the given terminal
// status. Cancelled and no-show reservations stop blocking time immediately.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error {
	if !ValidStatus(status) || status == StatusConfirmed {
		return fmt.Errorf("%w: cannot transition to %q", ErrInvalidState, status)
	}
	query := `
		UPDATE reservations
		SET status = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'confirmed'
	`
	ct, err := r.db.Exec(ctx, query, id, tenantID, status)
	if err != nil {
		return fmt.Errorf("reservations: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := r.GetForTenant(ctx, tenantID, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: reservation is not confirmed", ErrInvalidState)
	}

	evt := events.ReservationCancelledV1{
		ReservationID: id.String(),
		TenantID:      tenantID.String(),
		Status:        status,
		CancelledAt:   time.Now().UTC(),
	}
	if _, err := events.AppendCanonicalEvent(ctx, r.db, "reservation:"+id.String(), tenantID.String(), evt); err != nil {
		return err
	}
	return nil
}

// ListForTenant returns the tenant's reservations starting inside [from, to),
// newest first, for calendar and admin views.
func (r *Repository) ListForTenant(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Reservation, error) {
	query := `
		SELECT id, tenant_id, service_id, staff_id, start_utc, end_utc, status, created_at, updated_at
		FROM reservations
		WHERE tenant_id = $1 AND start_utc >= $2 AND start_utc < $3
		ORDER BY start_utc DESC
	`
	rows, err := r.db.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("reservations: list reservations: %w", err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(
			&res.ID, &res.TenantID, &res.ServiceID, &res.StaffID,
			&res.StartUTC, &res.EndUTC, &res.Status, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("reservations: scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
