package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-platform/internal/schedule/tz"
	"github.com/slotwise/booking-platform/pkg/logging"
)

// ErrStaffNotFound indicates the staff reference does not resolve within the tenant.
var ErrStaffNotFound = errors.New("schedule: staff not found")

// Interval is a half-open UTC interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Source loads authored staff schedules and holiday overrides.
type Source interface {
	WeeklyFor(ctx context.Context, tenantID, staffID uuid.UUID) (*Weekly, error)
	IsHoliday(ctx context.Context, staffID uuid.UUID, date Date) (bool, error)
}

// Model resolves which hours apply to a staff member (or the tenant default)
// on a given date and converts them to UTC intervals.
type Model struct {
	source   Source
	fallback *Weekly
	logger   *logging.Logger
}

// NewModel constructs a schedule model. The fallback schedule substitutes for
// bookings with no staff assignment; it is an explicit value so deployments
// and tests can vary it.
func NewModel(source Source, fallback *Weekly, logger *logging.Logger) *Model {
	if source == nil {
		panic("schedule: source required")
	}
	if fallback == nil {
		panic("schedule: fallback schedule required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Model{source: source, fallback: fallback, logger: logger}
}

// OpenIntervalsFor returns the UTC open intervals for the date, interpreted in
// the tenant's reference zone. A holiday or a closed weekday yields an empty
// result. A malformed stored schedule is treated as closed for the day and
// logged; it should have been rejected at write time.
func (m *Model) OpenIntervalsFor(ctx context.Context, tenantID uuid.UUID, staffID *uuid.UUID, date Date, zone string) ([]Interval, error) {
	if staffID == nil {
		return m.OpenIntervalsFromWeekly(tenantID, m.fallback, date, zone)
	}
	weekly, err := m.source.WeeklyFor(ctx, tenantID, *staffID)
	if err != nil {
		return nil, err
	}
	holiday, err := m.source.IsHoliday(ctx, *staffID, date)
	if err != nil {
		return nil, err
	}
	if holiday {
		return nil, nil
	}
	return m.OpenIntervalsFromWeekly(tenantID, weekly, date, zone)
}

// OpenIntervalsFromWeekly converts an explicit weekly schedule's ranges for
// the date into UTC intervals. Callers with tenant-specific default hours use
// this directly.
func (m *Model) OpenIntervalsFromWeekly(tenantID uuid.UUID, weekly *Weekly, date Date, zone string) ([]Interval, error) {
	ranges := weekly.ForWeekday(date.Weekday())
	if len(ranges) == 0 {
		return nil, nil
	}
	if err := weekly.Validate(); err != nil {
		m.logger.Warn("malformed stored schedule, treating day as closed",
			"tenant_id", tenantID, "date", date.String(), "error", err)
		return nil, nil
	}

	intervals := make([]Interval, 0, len(ranges))
	for _, r := range ranges {
		start, err := toUTC(date, r.Start, zone)
		if err != nil {
			return nil, err
		}
		end, err := toUTC(date, r.End, zone)
		if err != nil {
			return nil, err
		}
		// A DST gap can swallow a range entirely; never emit a backwards interval.
		if !end.After(start) {
			continue
		}
		intervals = append(intervals, Interval{Start: start, End: end})
	}
	return intervals, nil
}

func toUTC(date Date, clock string, zone string) (time.Time, error) {
	w, err := tz.ParseWallClock(date.String() + "T" + clock)
	if err != nil {
		return time.Time{}, err
	}
	return tz.ToUTC(w, zone)
}
