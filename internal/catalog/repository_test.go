package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestServiceForTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newRepositoryWithExec(mock)
	tenantID := uuid.New()
	serviceID := uuid.New()
	created := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "tenant_id", "name", "duration_minutes", "buffer_minutes", "requires_staff", "active", "created_at"}).
		AddRow(serviceID, tenantID, "Consultation", 60, 15, true, true, created)
	mock.ExpectQuery("SELECT id, tenant_id, name, duration_minutes").
		WithArgs(serviceID, tenantID).
		WillReturnRows(rows)

	svc, err := repo.ServiceForTenant(context.Background(), tenantID, serviceID)
	if err != nil {
		t.Fatalf("ServiceForTenant returned error: %v", err)
	}
	if svc.DurationMinutes != 60 || svc.BufferMinutes != 15 {
		t.Errorf("unexpected service: %+v", svc)
	}
	if svc.Duration() != time.Hour || svc.Buffer() != 15*time.Minute {
		t.Errorf("unexpected durations: %s / %s", svc.Duration(), svc.Buffer())
	}
}

func TestServiceForTenantNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := newRepositoryWithExec(mock)
	mock.ExpectQuery("SELECT id, tenant_id, name, duration_minutes").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := repo.ServiceForTenant(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestTenantExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := newRepositoryWithExec(mock)
	tenantID := uuid.New()

	mock.ExpectQuery("SELECT 1 FROM tenants").
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	if err := repo.TenantExists(context.Background(), tenantID); err != nil {
		t.Fatalf("expected tenant to exist, got %v", err)
	}

	mock.ExpectQuery("SELECT 1 FROM tenants").
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))
	if err := repo.TenantExists(context.Background(), tenantID); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestStaffForTenantNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := newRepositoryWithExec(mock)
	mock.ExpectQuery("SELECT id, tenant_id, name").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := repo.StaffForTenant(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrStaffNotFound) {
		t.Errorf("expected ErrStaffNotFound, got %v", err)
	}
}
