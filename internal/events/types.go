package events

import "time"

// ReservationConfirmedV1 signals a newly claimed booking window.
type ReservationConfirmedV1 struct {
	ReservationID string    `json:"reservation_id"`
	TenantID      string    `json:"tenant_id"`
	ServiceID     string    `json:"service_id"`
	StaffID       string    `json:"staff_id,omitempty"`
	StartUTC      time.Time `json:"start_utc"`
	EndUTC        time.Time `json:"end_utc"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

func (ReservationConfirmedV1) EventType() string {
	return "booking.reservation.confirmed.v1"
}

// ReservationRescheduledV1 signals a reservation moved to a new window.
type ReservationRescheduledV1 struct {
	ReservationID string    `json:"reservation_id"`
	TenantID      string    `json:"tenant_id"`
	StaffID       string    `json:"staff_id,omitempty"`
	PrevStartUTC  time.Time `json:"prev_start_utc"`
	StartUTC      time.Time `json:"start_utc"`
	EndUTC        time.Time `json:"end_utc"`
	RescheduledAt time.Time `json:"rescheduled_at"`
}

func (ReservationRescheduledV1) EventType() string {
	return "booking.reservation.rescheduled.v1"
}

// ReservationCancelledV1 signals a reservation leaving the confirmed state.
type ReservationCancelledV1 struct {
	ReservationID string    `json:"reservation_id"`
	TenantID      string    `json:"tenant_id"`
	Status        string    `json:"status"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

func (ReservationCancelledV1) EventType() string {
	return "booking.reservation.cancelled.v1"
}
