package reservations

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-platform/pkg/logging"
)

// TestReserveConcurrentExclusivity races many claims for the same window
// against a real database and requires exactly one to win. Set
// TEST_DATABASE_URL to a database with migrations applied to enable it.
func TestReserveConcurrentExclusivity(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	tenantID, serviceID := uuid.New(), uuid.New()
	if _, err := pool.Exec(ctx, `INSERT INTO tenants (id, name) VALUES ($1, 'race test')`, tenantID); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO services (id, tenant_id, name, duration_minutes, buffer_minutes, requires_staff, active)
		VALUES ($1, $2, 'race service', 30, 10, false, true)
	`, serviceID, tenantID); err != nil {
		t.Fatalf("seed service: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM outbox WHERE aggregate LIKE 'reservation:%'`)
		pool.Exec(ctx, `DELETE FROM reservations WHERE tenant_id = $1`, tenantID)
		pool.Exec(ctx, `DELETE FROM services WHERE tenant_id = $1`, tenantID)
		pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, tenantID)
	})

	g := NewGate(pool, logging.NewWithWriter("error", io.Discard), nil)
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute)

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Reserve(ctx, ReserveRequest{
				TenantID: tenantID, ServiceID: serviceID, StartUTC: start,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotUnavailable):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d claims won, want exactly 1 (%d conflicts)", wins, conflicts)
	}
}

func seedIntegrationTenant(t *testing.T, ctx context.Context, pool *pgxpool.Pool) (uuid.UUID, uuid.UUID) {
	t.Helper()
	tenantID, serviceID := uuid.New(), uuid.New()
	if _, err := pool.Exec(ctx, `INSERT INTO tenants (id, name) VALUES ($1, 'gate test')`, tenantID); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO services (id, tenant_id, name, duration_minutes, buffer_minutes, requires_staff, active)
		VALUES ($1, $2, 'gate service', 30, 10, false, true)
	`, serviceID, tenantID); err != nil {
		t.Fatalf("seed service: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, `DELETE FROM outbox WHERE aggregate LIKE 'reservation:%'`)
		pool.Exec(ctx, `DELETE FROM reservations WHERE tenant_id = $1`, tenantID)
		pool.Exec(ctx, `DELETE FROM staff WHERE tenant_id = $1`, tenantID)
		pool.Exec(ctx, `DELETE FROM services WHERE tenant_id = $1`, tenantID)
		pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, tenantID)
	})
	return tenantID, serviceID
}

// TestReserveCompletedStillBlocks marks an overlapping reservation completed
// and requires a new claim for the same window to lose anyway.
func TestReserveCompletedStillBlocks(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	tenantID, serviceID := seedIntegrationTenant(t, ctx, pool)
	g := NewGate(pool, logging.NewWithWriter("error", io.Discard), nil)
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute)

	first, err := g.Reserve(ctx, ReserveRequest{
		TenantID: tenantID, ServiceID: serviceID, StartUTC: start,
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	repo := NewRepository(pool)
	if err := repo.UpdateStatus(ctx, tenantID, first.ID, StatusCompleted); err != nil {
		t.Fatalf("complete reservation: %v", err)
	}

	_, err = g.Reserve(ctx, ReserveRequest{
		TenantID: tenantID, ServiceID: serviceID, StartUTC: start,
	})
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("err = %v, want ErrSlotUnavailable", err)
	}

	occupied, err := repo.ListOccupied(ctx, tenantID, nil, start.Add(-time.Hour), start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("list occupied: %v", err)
	}
	if len(occupied) != 1 {
		t.Fatalf("got %d occupied intervals, want 1", len(occupied))
	}
}

// TestReserveStaffScopesShareCalendar claims a staff-less window, then races
// staffed claims for the same window. The staff-less reservation holds the
// whole calendar, so every staffed claim must lose.
func TestReserveStaffScopesShareCalendar(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	tenantID, serviceID := seedIntegrationTenant(t, ctx, pool)
	staffID := uuid.New()
	if _, err := pool.Exec(ctx, `
		INSERT INTO staff (id, tenant_id, name) VALUES ($1, $2, 'gate staff')
	`, staffID, tenantID); err != nil {
		t.Fatalf("seed staff: %v", err)
	}

	g := NewGate(pool, logging.NewWithWriter("error", io.Discard), nil)
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute)

	if _, err := g.Reserve(ctx, ReserveRequest{
		TenantID: tenantID, ServiceID: serviceID, StartUTC: start,
	}); err != nil {
		t.Fatalf("staff-less reserve: %v", err)
	}

	const racers = 4
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Reserve(ctx, ReserveRequest{
				TenantID: tenantID, ServiceID: serviceID, StaffID: &staffID, StartUTC: start,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if !errors.Is(err, ErrSlotUnavailable) {
			t.Fatalf("staffed claim got %v, want ErrSlotUnavailable", err)
		}
	}
}
