package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/slotwise/booking-platform/internal/tenancy"
)

// RequireTenant extracts the tenant id from the X-Tenant-Id header, validates
// it as a UUID, and stores it in the request context. Requests without a
// usable tenant id are rejected before reaching handlers.
func RequireTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-Tenant-Id")
			if raw == "" {
				http.Error(w, "missing X-Tenant-Id header", http.StatusBadRequest)
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid X-Tenant-Id header", http.StatusBadRequest)
				return
			}
			ctx := tenancy.WithTenantID(r.Context(), id.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
