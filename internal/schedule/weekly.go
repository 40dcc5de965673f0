// Package schedule models recurring staff availability: weekly open hours
// authored in the tenant's reference timezone plus full-day holiday overrides.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedSchedule indicates an authored schedule that violates the
// sorted/non-overlapping invariant. It is rejected at write time.
var ErrMalformedSchedule = errors.New("schedule: malformed weekly schedule")

// TimeRange is a wall-clock open interval within one day, minute precision,
// "15:04" format. End is exclusive.
type TimeRange struct {
	Start string `json:"start"` // "09:00"
	End   string `json:"end"`   // "17:00"
}

func parseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad time %q", ErrMalformedSchedule, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Minutes returns the range as minutes-from-midnight.
func (r TimeRange) Minutes() (start, end int, err error) {
	if start, err = parseMinute(r.Start); err != nil {
		return 0, 0, err
	}
	if end, err = parseMinute(r.End); err != nil {
		return 0, 0, err
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: %s-%s is not a forward range", ErrMalformedSchedule, r.Start, r.End)
	}
	return start, end, nil
}

// Weekly maps each weekday to its ordered open ranges. An empty (or nil)
// list means closed that day.
type Weekly struct {
	Monday    []TimeRange `json:"monday,omitempty"`
	Tuesday   []TimeRange `json:"tuesday,omitempty"`
	Wednesday []TimeRange `json:"wednesday,omitempty"`
	Thursday  []TimeRange `json:"thursday,omitempty"`
	Friday    []TimeRange `json:"friday,omitempty"`
	Saturday  []TimeRange `json:"saturday,omitempty"`
	Sunday    []TimeRange `json:"sunday,omitempty"`
}

// ForWeekday returns the open ranges for a weekday.
func (w *Weekly) ForWeekday(day time.Weekday) []TimeRange {
	switch day {
	case time.Sunday:
		return w.Sunday
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	default:
		return nil
	}
}

// Validate checks every day's ranges parse, run forward, and are sorted
// without overlaps. Authored schedules failing this are configuration errors
// and must be rejected before they reach slot generation.
func (w *Weekly) Validate() error {
	for day := time.Sunday; day <= time.Saturday; day++ {
		prevEnd := -1
		for _, r := range w.ForWeekday(day) {
			start, end, err := r.Minutes()
			if err != nil {
				return fmt.Errorf("%s: %w", day, err)
			}
			if start < prevEnd {
				return fmt.Errorf("%s: %w: %s-%s overlaps previous range", day, ErrMalformedSchedule, r.Start, r.End)
			}
			prevEnd = end
		}
	}
	return nil
}

// EveryDay builds a schedule opening the same single range all seven days.
// Used for the tenant-wide default fallback.
func EveryDay(open, close string) (*Weekly, error) {
	r := TimeRange{Start: open, End: close}
	if _, _, err := r.Minutes(); err != nil {
		return nil, err
	}
	day := []TimeRange{r}
	return &Weekly{
		Monday:    day,
		Tuesday:   day,
		Wednesday: day,
		Thursday:  day,
		Friday:    day,
		Saturday:  day,
		Sunday:    day,
	}, nil
}

// Date is a civil calendar date, interpreted in the tenant's reference zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("schedule: invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Weekday returns the calendar weekday; a civil date's weekday does not
// depend on the zone it is later interpreted in.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Next returns the following calendar date.
func (d Date) Next() Date {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// After reports whether d is after other.
func (d Date) After(other Date) bool {
	if d.Year != other.Year {
		return d.Year > other.Year
	}
	if d.Month != other.Month {
		return d.Month > other.Month
	}
	return d.Day > other.Day
}
