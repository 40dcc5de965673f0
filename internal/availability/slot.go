// Package availability enumerates bookable time windows for a service and
// filters them against existing reservations.
package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-platform/internal/schedule"
	"github.com/slotwise/booking-platform/internal/schedule/tz"
)

// CandidateSlot is a transient proposed booking window. It is never stored;
// its UTC values are its canonical identity, the local values are display
// representations in the customer's requested zone.
type CandidateSlot struct {
	StartUTC   time.Time    `json:"start_utc"`
	EndUTC     time.Time    `json:"end_utc"`
	StartLocal tz.WallClock `json:"start_local"`
	EndLocal   tz.WallClock `json:"end_local"`
	StaffID    *uuid.UUID   `json:"staff_id,omitempty"`
	Available  bool         `json:"available"`
}

// generate emits fixed-length candidates across one open interval, advancing
// the cursor by duration+buffer after each, and stopping once the next slot
// would run past the interval's end.
func generate(open schedule.Interval, duration, buffer time.Duration, staffID *uuid.UUID) []CandidateSlot {
	if duration <= 0 {
		return nil
	}
	var slots []CandidateSlot
	for cursor := open.Start; !cursor.Add(duration).After(open.End); cursor = cursor.Add(duration + buffer) {
		slots = append(slots, CandidateSlot{
			StartUTC: cursor,
			EndUTC:   cursor.Add(duration),
			StaffID:  staffID,
		})
	}
	return slots
}

// localize fills in the customer-zone display times. The zone is validated
// before generation starts, so conversion failures are not expected here.
func localize(slots []CandidateSlot, customerZone string) error {
	for i := range slots {
		start, err := tz.FromUTC(slots[i].StartUTC, customerZone)
		if err != nil {
			return err
		}
		end, err := tz.FromUTC(slots[i].EndUTC, customerZone)
		if err != nil {
			return err
		}
		slots[i].StartLocal = start
		slots[i].EndLocal = end
	}
	return nil
}
