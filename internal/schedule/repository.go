package schedule

import (
	"context"
	"encoding/json"
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

// Repository persists authored staff schedules and holiday exceptions.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &Repository{db: pool}
}

func newRepositoryWithExec(db querier) *Repository {
	if db == nil {
		panic("schedule: exec required")
	}
	return &Repository{db: db}
}

// WeeklyFor loads the authored weekly schedule for a staff member scoped to
// the tenant.
func (r *Repository) WeeklyFor(ctx context.Context, tenantID, staffID uuid.UUID) (*Weekly, error) {
	query := `
		SELECT weekly_schedule
		FROM staff
		WHERE id = $1 AND tenant_id = $2
	`
	var raw []byte
	if err := r.db.QueryRow(ctx, query, staffID, tenantID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("schedule: load weekly: %w", err)
	}
	var weekly Weekly
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &weekly); err != nil {
			return nil, fmt.Errorf("schedule: decode weekly: %w", err)
		}
	}
	return &weekly, nil
}

// UpsertWeekly replaces a staff member's weekly schedule. Malformed schedules
// are rejected here so slot generation never sees them.
func (r *Repository) UpsertWeekly(ctx context.Context, tenantID, staffID uuid.UUID, weekly *Weekly) error {
	if weekly == nil {
		return fmt.Errorf("%w: nil schedule", ErrMalformedSchedule)
	}
	if err := weekly.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(weekly)
	if err != nil {
		return fmt.Errorf("schedule: encode weekly: %w", err)
	}
	query := `
		UPDATE staff
		SET weekly_schedule = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`
	ct, err := r.db.Exec(ctx, query, staffID, tenantID, data)
	if err != nil {
		return fmt.Errorf("schedule: upsert weekly: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

// IsHoliday reports whether the staff member has a full-day override on date.
func (r *Repository) IsHoliday(ctx context.Context, staffID uuid.UUID, date Date) (bool, error) {
	query := `SELECT 1 FROM holiday_exceptions WHERE staff_id = $1 AND holiday_date = $2`
	var one int
	if err := r.db.QueryRow(ctx, query, staffID, date.String()).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("schedule: check holiday: %w", err)
	}
	return true, nil
}

// AddHoliday records a full-day closure for the staff member. Re-adding an
// existing date is a no-op.
func (r *Repository) AddHoliday(ctx context.Context, tenantID, staffID uuid.UUID, date Date) error {
	query := `
		INSERT INTO holiday_exceptions (staff_id, holiday_date)
		SELECT id, $3 FROM staff WHERE id = $1 AND tenant_id = $2
		ON CONFLICT DO NOTHING
	`
	ct, err := r.db.Exec(ctx, query, staffID, tenantID, date.String())
	if err != nil {
		return fmt.Errorf("schedule: add holiday: %w", err)
	}
	if ct.RowsAffected() == 0 {
		// Either the staff member is unknown or the date already exists.
		exists, err := r.staffExists(ctx, tenantID, staffID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrStaffNotFound
		}
	}
	return nil
}

// RemoveHoliday deletes a holiday override; removing an absent date is a no-op.
func (r *Repository) RemoveHoliday(ctx context.Context, tenantID, staffID uuid.UUID, date Date) error {
	query := `
		DELETE FROM holiday_exceptions
		USING staff
		WHERE holiday_exceptions.staff_id = staff.id
		  AND staff.id = $1 AND staff.tenant_id = $2
		  AND holiday_exceptions.holiday_date = $3
	`
	if _, err := r.db.Exec(ctx, query, staffID, tenantID, date.String()); err != nil {
		return fmt.Errorf("schedule: remove holiday: %w", err)
	}
	return nil
}

func (r *Repository) staffExists(ctx context.Context, tenantID, staffID uuid.UUID) (bool, error) {
	var one int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM staff WHERE id = $1 AND tenant_id = $2`, staffID, tenantID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("schedule: check staff: %w", err)
	}
	return true, nil
}
