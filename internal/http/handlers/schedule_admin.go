package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slotwise/booking-platform/internal/schedule"
	"github.com/slotwise/booking-platform/internal/schedule/tz"
	"github.com/slotwise/booking-platform/internal/tenants"
	"github.com/slotwise/booking-platform/pkg/logging"
)

// StaffScheduleStore persists authored staff schedules; satisfied by
// *schedule.Repository.
type StaffScheduleStore interface {
	WeeklyFor(ctx context.Context, tenantID, staffID uuid.UUID) (*schedule.Weekly, error)
	UpsertWeekly(ctx context.Context, tenantID, staffID uuid.UUID, weekly *schedule.Weekly) error
	AddHoliday(ctx context.Context, tenantID, staffID uuid.UUID, date schedule.Date) error
	RemoveHoliday(ctx context.Context, tenantID, staffID uuid.UUID, date schedule.Date) error
}

// ScheduleAdminHandler manages staff weekly schedules, holiday overrides,
// and tenant scheduling settings.
type ScheduleAdminHandler struct {
	schedules StaffScheduleStore
	settings  *tenants.Store
	logger    *logging.Logger
}

func NewScheduleAdminHandler(schedules StaffScheduleStore, settings *tenants.Store, logger *logging.Logger) *ScheduleAdminHandler {
	if schedules == nil || settings == nil {
		panic("handlers: schedule repository and settings store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleAdminHandler{schedules: schedules, settings: settings, logger: logger}
}

// GetWeekly returns a staff member's authored weekly schedule.
// GET /admin/staff/{staffID}/schedule
func (h *ScheduleAdminHandler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	tenant, staffID, ok := h.staffScope(w, r)
	if !ok {
		return
	}
	weekly, err := h.schedules.WeeklyFor(r.Context(), tenant, staffID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weekly)
}

// PutWeekly replaces a staff member's weekly schedule. Malformed schedules
// (overlapping or unordered ranges, bad times) are rejected.
// PUT /admin/staff/{staffID}/schedule
func (h *ScheduleAdminHandler) PutWeekly(w http.ResponseWriter, r *http.Request) {
	tenant, staffID, ok := h.staffScope(w, r)
	if !ok {
		return
	}
	var weekly schedule.Weekly
	if err := json.NewDecoder(r.Body).Decode(&weekly); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.schedules.UpsertWeekly(r.Context(), tenant, staffID, &weekly); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weekly)
}

type holidayBody struct {
	Date string `json:"date"`
}

// AddHoliday marks a date fully closed for the staff member.
// POST /admin/staff/{staffID}/holidays
func (h *ScheduleAdminHandler) AddHoliday(w http.ResponseWriter, r *http.Request) {
	tenant, staffID, ok := h.staffScope(w, r)
	if !ok {
		return
	}
	var body holidayBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	date, err := schedule.ParseDate(body.Date)
	if err != nil {
		jsonError(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if err := h.schedules.AddHoliday(r.Context(), tenant, staffID, date); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"staff_id": staffID.String(), "date": date.String()})
}

// RemoveHoliday reopens a previously blocked date.
// DELETE /admin/staff/{staffID}/holidays/{date}
func (h *ScheduleAdminHandler) RemoveHoliday(w http.ResponseWriter, r *http.Request) {
	tenant, staffID, ok := h.staffScope(w, r)
	if !ok {
		return
	}
	date, err := schedule.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		jsonError(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if err := h.schedules.RemoveHoliday(r.Context(), tenant, staffID, date); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings returns the tenant's scheduling settings (defaults if unset).
// GET /admin/settings
func (h *ScheduleAdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return
	}
	settings, err := h.settings.Get(r.Context(), tenant.String())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSettings saves the tenant's timezone and default hours.
// PUT /admin/settings
func (h *ScheduleAdminHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return
	}
	var settings tenants.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	settings.TenantID = tenant.String()
	if err := h.settings.Set(r.Context(), &settings); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *ScheduleAdminHandler) staffScope(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	staffID, err := uuid.Parse(chi.URLParam(r, "staffID"))
	if err != nil {
		jsonError(w, "invalid staff id", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return tenant, staffID, true
}

func (h *ScheduleAdminHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, schedule.ErrStaffNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, schedule.ErrMalformedSchedule),
		errors.Is(err, tz.ErrInvalidTimezone):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("schedule admin request failed", "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
