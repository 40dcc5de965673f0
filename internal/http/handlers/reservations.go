package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slotwise/booking-platform/internal/availability"
	"github.com/slotwise/booking-platform/internal/catalog"
	"github.com/slotwise/booking-platform/internal/reservations"
	"github.com/slotwise/booking-platform/pkg/logging"
)

// ReservationGate admits booking claims; satisfied by *reservations.Gate.
type ReservationGate interface {
	Reserve(ctx context.Context, req reservations.ReserveRequest) (*reservations.Reservation, error)
	Reschedule(ctx context.Context, tenantID, reservationID uuid.UUID, newStartUTC, newEndUTC time.Time) (*reservations.Reservation, error)
}

// ReservationStore reads and transitions stored reservations; satisfied by
// *reservations.Repository.
type ReservationStore interface {
	GetForTenant(ctx context.Context, tenantID, id uuid.UUID) (*reservations.Reservation, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error
	ListForTenant(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]reservations.Reservation, error)
}

// IdempotencyStore maps idempotency keys to reservations; satisfied by
// *reservations.IdempotencyStore.
type IdempotencyStore interface {
	Lookup(ctx context.Context, tenantID uuid.UUID, key string) (uuid.UUID, bool, error)
	Record(ctx context.Context, tenantID uuid.UUID, key string, reservationID uuid.UUID) (bool, error)
}

// ReservationsHandler serves the booking lifecycle: reserve, reschedule,
// cancel, and reads.
type ReservationsHandler struct {
	gate   ReservationGate
	repo   ReservationStore
	idem   IdempotencyStore
	logger *logging.Logger
}

func NewReservationsHandler(gate ReservationGate, repo ReservationStore, idem IdempotencyStore, logger *logging.Logger) *ReservationsHandler {
	if gate == nil || repo == nil {
		panic("handlers: gate and repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReservationsHandler{gate: gate, repo: repo, idem: idem, logger: logger}
}

type reserveBody struct {
	ServiceID uuid.UUID  `json:"service_id"`
	StaffID   *uuid.UUID `json:"staff_id,omitempty"`
	StartUTC  time.Time  `json:"start_utc"`
	EndUTC    time.Time  `json:"end_utc,omitempty"`
}

// Reserve claims a slot.
// POST /v1/reservations with optional Idempotency-Key header.
func (h *ReservationsHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return
	}
	var body reserveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.ServiceID == uuid.Nil || body.StartUTC.IsZero() {
		jsonError(w, "service_id and start_utc are required", http.StatusBadRequest)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && h.idem != nil {
		if prevID, found, err := h.idem.Lookup(r.Context(), tenant, idemKey); err != nil {
			h.logger.Error("idempotency lookup failed", "tenant_id", tenant, "error", err)
		} else if found {
			res, err := h.repo.GetForTenant(r.Context(), tenant, prevID)
			if err != nil {
				h.respondError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
			return
		}
	}

	req := reservations.ReserveRequest{
		TenantID:  tenant,
		ServiceID: body.ServiceID,
		StaffID:   body.StaffID,
		StartUTC:  body.StartUTC.UTC(),
	}
	if !body.EndUTC.IsZero() {
		req.EndUTC = body.EndUTC.UTC()
	}
	res, err := h.gate.Reserve(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if idemKey != "" && h.idem != nil {
		if _, err := h.idem.Record(r.Context(), tenant, idemKey, res.ID); err != nil {
			h.logger.Error("idempotency record failed", "tenant_id", tenant, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, res)
}

type rescheduleBody struct {
	StartUTC time.Time `json:"start_utc"`
	EndUTC   time.Time `json:"end_utc,omitempty"`
}

// Reschedule moves a confirmed reservation to a new window. Omitting
// end_utc keeps the service-duration window.
// POST /v1/reservations/{reservationID}/reschedule
func (h *ReservationsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return
	}
	resID, err := uuid.Parse(chi.URLParam(r, "reservationID"))
	if err != nil {
		jsonError(w, "invalid reservation id", http.StatusBadRequest)
		return
	}
	var body rescheduleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.StartUTC.IsZero() {
		jsonError(w, "start_utc is required", http.StatusBadRequest)
		return
	}

	newEnd := body.EndUTC
	if !newEnd.IsZero() {
		newEnd = newEnd.UTC()
	}
	res, err := h.gate.Reschedule(r.Context(), tenant, resID, body.StartUTC.UTC(), newEnd)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type statusBody struct {
	Status string `json:"status"`
}

// UpdateStatus transitions a confirmed reservation to cancelled, completed,
// or no_show. POST /v1/reservations/{reservationID}/status
func (h *ReservationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return
	}
	resID, err := uuid.Parse(chi.URLParam(r, "reservationID"))
	if err != nil {
		jsonError(w, "invalid reservation id", http.StatusBadRequest)
		return
	}
	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if !reservations.ValidStatus(body.Status) {
		jsonError(w, "unknown status", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateStatus(r.Context(), tenant, resID, body.Status); err != nil {
		h.respondError(w, r, err)
		return
	}
	res, err := h.repo.GetForTenant(r.Context(), tenant, resID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Get returns one reservation. GET /v1/reservations/{reservationID}
func (h *ReservationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return
	}
	resID, err := uuid.Parse(chi.URLParam(r, "reservationID"))
	if err != nil {
		jsonError(w, "invalid reservation id", http.StatusBadRequest)
		return
	}
	res, err := h.repo.GetForTenant(r.Context(), tenant, resID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// List returns the tenant's reservations starting inside [from, to).
// GET /v1/reservations?from=&to= (RFC3339)
func (h *ReservationsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(r)
	if !ok {
		jsonError(w, "missing tenant", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		jsonError(w, "invalid from, want RFC3339", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		jsonError(w, "invalid to, want RFC3339", http.StatusBadRequest)
		return
	}
	out, err := h.repo.ListForTenant(r.Context(), tenant, from.UTC(), to.UTC())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

func (h *ReservationsHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reservations.ErrSlotUnavailable),
		errors.Is(err, reservations.ErrInvalidState):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, reservations.ErrInvalidRange):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, reservations.ErrNotFound),
		errors.Is(err, catalog.ErrServiceNotFound),
		errors.Is(err, catalog.ErrStaffNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, catalog.ErrServiceInactive),
		errors.Is(err, availability.ErrStaffRequired):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, reservations.ErrTransactionAborted):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.logger.Error("reservation request failed", "path", r.URL.Path, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
