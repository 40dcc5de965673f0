// Package reservations owns confirmed bookings and the transactional gate
// that admits or rejects new ones.
package reservations

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Reservation lifecycle statuses. Confirmed and completed reservations
// occupy time; cancelled and no-show reservations release it immediately.
const (
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

var (
	// ErrSlotUnavailable indicates the requested window collides with an
	// existing occupying reservation.
	ErrSlotUnavailable = errors.New("reservations: slot unavailable")
	// ErrTransactionAborted indicates the claim could not complete after
	// retrying serialization and lock failures.
	ErrTransactionAborted = errors.New("reservations: transaction aborted")
	// ErrInvalidState indicates a lifecycle transition the reservation's
	// current status does not permit.
	ErrInvalidState = errors.New("reservations: invalid state for operation")
	// ErrNotFound indicates the reservation does not resolve within the tenant.
	ErrNotFound = errors.New("reservations: reservation not found")
	// ErrInvalidRange indicates an inverted, empty, or past time range.
	ErrInvalidRange = errors.New("reservations: invalid time range")
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch s {
	case StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Reservation is a claimed booking window. Start and End are UTC; End does
// not include the service buffer, which is reapplied from the service row
// whenever conflicts are evaluated.
type Reservation struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	ServiceID uuid.UUID  `json:"service_id"`
	StaffID   *uuid.UUID `json:"staff_id,omitempty"`
	StartUTC  time.Time  `json:"start_utc"`
	EndUTC    time.Time  `json:"end_utc"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
