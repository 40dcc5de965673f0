package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-platform/internal/availability"
	"github.com/slotwise/booking-platform/internal/catalog"
	"github.com/slotwise/booking-platform/internal/schedule"
	"github.com/slotwise/booking-platform/internal/schedule/tz"
	"github.com/slotwise/booking-platform/pkg/logging"
)

// AvailabilityHandler serves slot listings and point availability checks.
type AvailabilityHandler struct {
	svc    *availability.Service
	logger *logging.Logger
}

func NewAvailabilityHandler(svc *availability.Service, logger *logging.Logger) *AvailabilityHandler {
	if svc == nil {
		panic("handlers: availability service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{svc: svc, logger: logger}
}

// GetSlots lists bookable slots for a service over a date range.
// GET /v1/availability/slots?service_id=&staff_id=&from=&to=&tz=
func (h *AvailabilityHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	h.serveSlots(w, r, false)
}

// CalendarDay renders every candidate slot for internal calendar views,
// flagging occupied ones instead of hiding them.
// GET /admin/calendar?service_id=&staff_id=&from=&to=&tz=
func (h *AvailabilityHandler) CalendarDay(w http.ResponseWriter, r *http.Request) {
	h.serveSlots(w, r, true)
}

func (h *AvailabilityHandler) serveSlots(w http.ResponseWriter, r *http.Request, includeUnavailable bool) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()

	serviceID, err := uuid.Parse(q.Get("service_id"))
	if err != nil {
		jsonError(w, "invalid service_id", http.StatusBadRequest)
		return
	}
	staffID, ok := parseOptionalUUID(q.Get("staff_id"))
	if !ok {
		jsonError(w, "invalid staff_id", http.StatusBadRequest)
		return
	}
	from, err := schedule.ParseDate(q.Get("from"))
	if err != nil {
		jsonError(w, "invalid from date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to := from
	if raw := q.Get("to"); raw != "" {
		if to, err = schedule.ParseDate(raw); err != nil {
			jsonError(w, "invalid to date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	zone := strings.TrimSpace(q.Get("tz"))
	if zone == "" {
		zone = "UTC"
	}

	slots, err := h.svc.GenerateSlots(r.Context(), availability.Request{
		TenantID:           tenant,
		ServiceID:          serviceID,
		StaffID:            staffID,
		StartDate:          from,
		EndDate:            to,
		CustomerTimezone:   zone,
		IncludeUnavailable: includeUnavailable,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// Check reports whether one exact window is currently free.
// GET /v1/availability/check?service_id=&staff_id=&start=&end=
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()

	serviceID, err := uuid.Parse(q.Get("service_id"))
	if err != nil {
		jsonError(w, "invalid service_id", http.StatusBadRequest)
		return
	}
	staffID, ok := parseOptionalUUID(q.Get("staff_id"))
	if !ok {
		jsonError(w, "invalid staff_id", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		jsonError(w, "invalid start, want RFC3339", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		jsonError(w, "invalid end, want RFC3339", http.StatusBadRequest)
		return
	}

	free, err := h.svc.CheckAvailability(r.Context(), tenant, serviceID, start.UTC(), end.UTC(), staffID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": free})
}

func (h *AvailabilityHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tz.ErrInvalidTimezone),
		errors.Is(err, availability.ErrInvalidRange),
		errors.Is(err, availability.ErrRangeTooLarge):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, availability.ErrStaffRequired),
		errors.Is(err, catalog.ErrServiceInactive):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, catalog.ErrTenantNotFound),
		errors.Is(err, catalog.ErrServiceNotFound),
		errors.Is(err, catalog.ErrStaffNotFound),
		errors.Is(err, schedule.ErrStaffNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("availability query failed", "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func parseOptionalUUID(raw string) (*uuid.UUID, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}
