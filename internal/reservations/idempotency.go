package reservations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyStore maps client-supplied idempotency keys to reservation ids
// so a retried reserve request returns the original reservation instead of
// double-booking.
type IdempotencyStore struct {
	db querier
}

func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	if pool == nil {
		panic("reservations: pgx pool required")
	}
	return &IdempotencyStore{db: pool}
}

func newIdempotencyStoreWithExec(db querier) *IdempotencyStore {
	if db == nil {
		panic("reservations: exec required")
	}
	return &IdempotencyStore{db: db}
}

// Lookup returns the reservation id previously recorded for the key, if any.
func (s *IdempotencyStore) Lookup(ctx context.Context, tenantID uuid.UUID, key string) (uuid.UUID, bool, error) {
	query := `SELECT reservation_id FROM idempotency_keys WHERE tenant_id = $1 AND request_key = $2`
	var id uuid.UUID
	if err := s.db.QueryRow(ctx, query, tenantID, key).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("reservations: lookup idempotency key: %w", err)
	}
	return id, true, nil
}

// Record associates the key with the reservation, returning false when the
// key was already claimed by a concurrent request.
func (s *IdempotencyStore) Record(ctx context.Context, tenantID uuid.UUID, key string, reservationID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO idempotency_keys (tenant_id, request_key, reservation_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, tenantID, key, reservationID)
	if err != nil {
		return false, fmt.Errorf("reservations: record idempotency key: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
