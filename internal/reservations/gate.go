package reservations

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/slotwise/booking-platform/internal/availability"
	"github.com/slotwise/booking-platform/internal/catalog"
	"github.com/slotwise/booking-platform/internal/events"
	"github.com/slotwise/booking-platform/internal/observability/metrics"
	"github.com/slotwise/booking-platform/pkg/logging"
)

var gateTracer = otel.Tracer("booking.internal.reservations")

// txBeginner starts transactions; satisfied by *pgxpool.Pool and pgxmock.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Gate serializes booking claims. Every claim runs in its own transaction
// under advisory locks (tenant first, then staff), re-checks conflicts against
// committed state, and appends the outbox event in the same transaction, so
// two racing claims for overlapping windows can never both commit.
type Gate struct {
	db         txBeginner
	logger     *logging.Logger
	metrics    *metrics.ReservationMetrics
	txTimeout  time.Duration
	maxRetries int
	retryDelay time.Duration
	nowFunc    func() time.Time
}

// GateOption tunes gate behavior.
type GateOption func(*Gate)

func WithTxTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.txTimeout = d
		}
	}
}

func WithRetries(max int, delay time.Duration) GateOption {
	return func(g *Gate) {
		if max >= 0 {
			g.maxRetries = max
		}
		if delay > 0 {
			g.retryDelay = delay
		}
	}
}

// NewGate constructs a reservation gate.
func NewGate(db txBeginner, logger *logging.Logger, m *metrics.ReservationMetrics, opts ...GateOption) *Gate {
	if db == nil {
		panic("reservations: tx beginner required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	g := &Gate{
		db:         db,
		logger:     logger,
		metrics:    m,
		txTimeout:  5 * time.Second,
		maxRetries: 3,
		retryDelay: 50 * time.Millisecond,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ReserveRequest describes a claim on a window. A zero EndUTC asks the gate
// to derive the end from the service duration; a non-zero EndUTC claims the
// caller's exact window, which need not match the duration.
type ReserveRequest struct {
	TenantID  uuid.UUID
	ServiceID uuid.UUID
	StaffID   *uuid.UUID
	StartUTC  time.Time
	EndUTC    time.Time
}

// Reserve claims the requested window. It returns ErrSlotUnavailable when
// the window (padded by the service buffer) collides with a committed
// occupying reservation, and ErrTransactionAborted when contention persists
// past the retry budget.
func (g *Gate) Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	ctx, span := gateTracer.Start(ctx, "reservations.reserve")
	defer span.End()
	span.SetAttributes(attribute.String("booking.tenant_id", req.TenantID.String()))

	return g.run(ctx, "reserve", func(ctx context.Context, tx pgx.Tx) (*Reservation, error) {
		return g.reserveTx(ctx, tx, req)
	})
}

// ReserveInTx runs the claim inside a transaction the caller owns, so other
// writes can commit atomically with the reservation. The caller commits or
// rolls back; no retrying happens at this level.
func (g *Gate) ReserveInTx(ctx context.Context, tx pgx.Tx, req ReserveRequest) (*Reservation, error) {
	if tx == nil {
		return nil, fmt.Errorf("reservations: tx required")
	}
	return g.reserveTx(ctx, tx, req)
}

// Reschedule atomically moves a confirmed reservation to a new window,
// releasing the old one and claiming the new one in one transaction. There
// is no intermediate state in which the reservation holds both windows or
// neither. A zero newEndUTC derives the end from the service duration.
func (g *Gate) Reschedule(ctx context.Context, tenantID, reservationID uuid.UUID, newStartUTC, newEndUTC time.Time) (*Reservation, error) {
	ctx, span := gateTracer.Start(ctx, "reservations.reschedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.tenant_id", tenantID.String()),
		attribute.String("booking.reservation_id", reservationID.String()),
	)

	return g.run(ctx, "reschedule", func(ctx context.Context, tx pgx.Tx) (*Reservation, error) {
		return g.rescheduleTx(ctx, tx, tenantID, reservationID, newStartUTC, newEndUTC)
	})
}

// RescheduleInTx is Reschedule inside a caller-owned transaction.
func (g *Gate) RescheduleInTx(ctx context.Context, tx pgx.Tx, tenantID, reservationID uuid.UUID, newStartUTC, newEndUTC time.Time) (*Reservation, error) {
	if tx == nil {
		return nil, fmt.Errorf("reservations: tx required")
	}
	return g.rescheduleTx(ctx, tx, tenantID, reservationID, newStartUTC, newEndUTC)
}

func (g *Gate) reserveTx(ctx context.Context, tx pgx.Tx, req ReserveRequest) (*Reservation, error) {
	if req.StartUTC.Before(g.nowFunc()) {
		return nil, fmt.Errorf("%w: start is in the past", ErrInvalidRange)
	}
	svc, err := serviceRow(ctx, tx, req.TenantID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if req.StaffID != nil {
		if err := staffExists(ctx, tx, req.TenantID, *req.StaffID); err != nil {
			return nil, err
		}
	} else if svc.requiresStaff {
		return nil, availability.ErrStaffRequired
	}
	endUTC := req.EndUTC
	if endUTC.IsZero() {
		endUTC = req.StartUTC.Add(svc.duration())
	} else if !endUTC.After(req.StartUTC) {
		return nil, fmt.Errorf("%w: end is not after start", ErrInvalidRange)
	}

	if err := acquireLock(ctx, tx, req.TenantID, req.StaffID); err != nil {
		return nil, err
	}
	if err := ensureFree(ctx, tx, req.TenantID, req.StaffID, req.StartUTC, endUTC.Add(svc.buffer()), uuid.Nil); err != nil {
		return nil, err
	}

	res := &Reservation{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		ServiceID: req.ServiceID,
		StaffID:   req.StaffID,
		StartUTC:  req.StartUTC.UTC(),
		EndUTC:    endUTC.UTC(),
		Status:    StatusConfirmed,
	}
	query := `
		INSERT INTO reservations (id, tenant_id, service_id, staff_id, start_utc, end_utc, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		res.ID, res.TenantID, res.ServiceID, res.StaffID, res.StartUTC, res.EndUTC, res.Status,
	).Scan(&res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, fmt.Errorf("reservations: insert reservation: %w", err)
	}

	evt := events.ReservationConfirmedV1{
		ReservationID: res.ID.String(),
		TenantID:      res.TenantID.String(),
		ServiceID:     res.ServiceID.String(),
		StaffID:       staffString(res.StaffID),
		StartUTC:      res.StartUTC,
		EndUTC:        res.EndUTC,
		ConfirmedAt:   g.nowFunc().UTC(),
	}
	if _, err := events.AppendCanonicalEvent(ctx, tx, "reservation:"+res.ID.String(), res.TenantID.String(), evt); err != nil {
		return nil, err
	}

	g.logger.Info("reservation confirmed",
		"reservation_id", res.ID, "tenant_id", res.TenantID,
		"start_utc", res.StartUTC, "end_utc", res.EndUTC)
	return res, nil
}

func (g *Gate) rescheduleTx(ctx context.Context, tx pgx.Tx, tenantID, reservationID uuid.UUID, newStartUTC, newEndUTC time.Time) (*Reservation, error) {
	if newStartUTC.Before(g.nowFunc()) {
		return nil, fmt.Errorf("%w: new start is in the past", ErrInvalidRange)
	}
	if !newEndUTC.IsZero() && !newEndUTC.After(newStartUTC) {
		return nil, fmt.Errorf("%w: end is not after start", ErrInvalidRange)
	}

	var res Reservation
	query := `
		SELECT id, tenant_id, service_id, staff_id, start_utc, end_utc, status, created_at, updated_at
		FROM reservations
		WHERE id = $1 AND tenant_id = $2
		FOR UPDATE
	`
	err := tx.QueryRow(ctx, query, reservationID, tenantID).Scan(
		&res.ID, &res.TenantID, &res.ServiceID, &res.StaffID,
		&res.StartUTC, &res.EndUTC, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reservations: load reservation: %w", err)
	}
	if res.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: cannot reschedule a %s reservation", ErrInvalidState, res.Status)
	}

	svc, err := serviceRow(ctx, tx, tenantID, res.ServiceID)
	if err != nil {
		return nil, err
	}
	prevStart := res.StartUTC
	if newEndUTC.IsZero() {
		newEndUTC = newStartUTC.Add(svc.duration())
	}

	if err := acquireLock(ctx, tx, tenantID, res.StaffID); err != nil {
		return nil, err
	}
	if err := ensureFree(ctx, tx, tenantID, res.StaffID, newStartUTC, newEndUTC.Add(svc.buffer()), res.ID); err != nil {
		return nil, err
	}

	update := `
		UPDATE reservations
		SET start_utc = $3, end_utc = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING updated_at
	`
	if err := tx.QueryRow(ctx, update, res.ID, tenantID, newStartUTC.UTC(), newEndUTC.UTC()).Scan(&res.UpdatedAt); err != nil {
		return nil, fmt.Errorf("reservations: move reservation: %w", err)
	}
	res.StartUTC = newStartUTC.UTC()
	res.EndUTC = newEndUTC.UTC()

	evt := events.ReservationRescheduledV1{
		ReservationID: res.ID.String(),
		TenantID:      res.TenantID.String(),
		StaffID:       staffString(res.StaffID),
		PrevStartUTC:  prevStart,
		StartUTC:      res.StartUTC,
		EndUTC:        res.EndUTC,
		RescheduledAt: g.nowFunc().UTC(),
	}
	if _, err := events.AppendCanonicalEvent(ctx, tx, "reservation:"+res.ID.String(), res.TenantID.String(), evt); err != nil {
		return nil, err
	}

	g.logger.Info("reservation rescheduled",
		"reservation_id", res.ID, "tenant_id", res.TenantID,
		"prev_start_utc", prevStart, "start_utc", res.StartUTC)
	return &res, nil
}

func (g *Gate) run(ctx context.Context, op string, fn func(context.Context, pgx.Tx) (*Reservation, error)) (*Reservation, error) {
	started := time.Now()
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.metrics.ObserveRetry()
			select {
			case <-ctx.Done():
				g.metrics.ObserveAttempt(op, "aborted", time.Since(started).Seconds())
				return nil, fmt.Errorf("%w: %v", ErrTransactionAborted, ctx.Err())
			case <-time.After(backoff(g.retryDelay, attempt)):
			}
		}
		res, err := g.attempt(ctx, fn)
		if err == nil {
			g.metrics.ObserveAttempt(op, "ok", time.Since(started).Seconds())
			return res, nil
		}
		if !retryable(err) {
			g.metrics.ObserveAttempt(op, outcomeFor(err), time.Since(started).Seconds())
			return nil, err
		}
		g.logger.Warn("reservation tx contended, retrying",
			"op", op, "attempt", attempt+1, "error", err)
		lastErr = err
	}
	g.metrics.ObserveAttempt(op, "aborted", time.Since(started).Seconds())
	return nil, fmt.Errorf("%w: %v", ErrTransactionAborted, lastErr)
}

func (g *Gate) attempt(ctx context.Context, fn func(context.Context, pgx.Tx) (*Reservation, error)) (*Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, g.txTimeout)
	defer cancel()

	tx, err := g.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("reservations: begin tx: %w", err)
	}
	res, err := fn(ctx, tx)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransactionAborted, err)
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: commit: %v", ErrTransactionAborted, err)
		}
		return nil, fmt.Errorf("reservations: commit tx: %w", err)
	}
	return res, nil
}

type serviceInfo struct {
	durationMinutes int
	bufferMinutes   int
	requiresStaff   bool
	active          bool
}

func (s serviceInfo) duration() time.Duration { return time.Duration(s.durationMinutes) * time.Minute }
func (s serviceInfo) buffer() time.Duration   { return time.Duration(s.bufferMinutes) * time.Minute }

func serviceRow(ctx context.Context, tx pgx.Tx, tenantID, serviceID uuid.UUID) (serviceInfo, error) {
	query := `
		SELECT duration_minutes, buffer_minutes, requires_staff, active
		FROM services
		WHERE id = $1 AND tenant_id = $2
	`
	var svc serviceInfo
	err := tx.QueryRow(ctx, query, serviceID, tenantID).Scan(
		&svc.durationMinutes, &svc.bufferMinutes, &svc.requiresStaff, &svc.active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return serviceInfo{}, catalog.ErrServiceNotFound
		}
		return serviceInfo{}, fmt.Errorf("reservations: load service: %w", err)
	}
	if !svc.active {
		return serviceInfo{}, catalog.ErrServiceInactive
	}
	return svc, nil
}

func staffExists(ctx context.Context, tx pgx.Tx, tenantID, staffID uuid.UUID) error {
	query := `SELECT 1 FROM staff WHERE id = $1 AND tenant_id = $2`
	var one int
	if err := tx.QueryRow(ctx, query, staffID, tenantID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrStaffNotFound
		}
		return fmt.Errorf("reservations: check staff: %w", err)
	}
	return nil
}

// acquireLock takes transaction-scoped advisory locks released automatically
// at commit or rollback. Every claim locks the tenant key first, so staffed
// and staff-less claims serialize against each other; staffed claims then
// also lock the (tenant, staff) key. The fixed order avoids lock inversion.
func acquireLock(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, staffID *uuid.UUID) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey(tenantID, nil)); err != nil {
		return fmt.Errorf("reservations: acquire tenant lock: %w", err)
	}
	if staffID == nil {
		return nil
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey(tenantID, staffID)); err != nil {
		return fmt.Errorf("reservations: acquire staff lock: %w", err)
	}
	return nil
}

// ensureFree re-checks the padded window against committed occupying
// reservations while holding the advisory locks. Staff-less reservations
// block every staff member, so staffed claims match them too. excludeID
// skips the reservation being moved during a reschedule.
func ensureFree(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, staffID *uuid.UUID, start, paddedEnd time.Time, excludeID uuid.UUID) error {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM reservations r
			JOIN services s ON s.id = r.service_id
			WHERE r.tenant_id = $1
			  AND r.status IN ('confirmed', 'completed')
			  AND ($2::uuid IS NULL OR r.staff_id IS NULL OR r.staff_id = $2)
			  AND r.id <> $5
			  AND r.start_utc < $4
			  AND r.end_utc + make_interval(mins => s.buffer_minutes) > $3
		)
	`
	var taken bool
	if err := tx.QueryRow(ctx, query, tenantID, staffID, start, paddedEnd, excludeID).Scan(&taken); err != nil {
		return fmt.Errorf("reservations: conflict check: %w", err)
	}
	if taken {
		return ErrSlotUnavailable
	}
	return nil
}

func lockKey(tenantID uuid.UUID, staffID *uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(tenantID[:])
	if staffID != nil {
		h.Write(staffID[:])
	}
	return int64(h.Sum64())
}

// retryable reports whether the error is a transient concurrency failure:
// serialization failure, deadlock, or lock-not-available.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrSlotUnavailable):
		return "conflict"
	case errors.Is(err, ErrTransactionAborted):
		return "aborted"
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrInvalidRange):
		return "rejected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(base)))
}

func staffString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
