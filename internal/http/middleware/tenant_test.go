package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/slotwise/booking-platform/internal/tenancy"
)

func TestRequireTenant(t *testing.T) {
	var gotTenant string
	handler := RequireTenant()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, _ = tenancy.TenantIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/v1/slots", nil)
	req.Header.Set("X-Tenant-Id", id)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotTenant != id {
		t.Fatalf("tenant in context = %q, want %q", gotTenant, id)
	}
}

func TestRequireTenantMissingHeader(t *testing.T) {
	handler := RequireTenant()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/slots", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRequireTenantBadUUID(t *testing.T) {
	handler := RequireTenant()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/slots", nil)
	req.Header.Set("X-Tenant-Id", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
