package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/slotwise/booking-platform/internal/tenancy"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// tenantID pulls the tenant from the request context, set by the tenant
// middleware. A missing tenant means the route was mounted without it.
func tenantID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
