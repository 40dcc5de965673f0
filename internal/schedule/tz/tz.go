// Package tz converts between wall-clock times in named zones and UTC instants.
package tz

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTimezone indicates an unrecognized IANA zone identifier.
	ErrInvalidTimezone = errors.New("tz: invalid timezone")
	// ErrInvalidInput indicates a wall-clock value that is not a real calendar time.
	ErrInvalidInput = errors.New("tz: invalid wall-clock time")
)

// WallClock is a calendar date plus a minute-precision time of day, carrying
// no offset. It is meaningful only together with a zone identifier.
type WallClock struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

const wallClockLayout = "2006-01-02T15:04"

// ParseWallClock parses "2006-01-02T15:04" into a WallClock.
func ParseWallClock(s string) (WallClock, error) {
	t, err := time.Parse(wallClockLayout, s)
	if err != nil {
		return WallClock{}, fmt.Errorf("%w: %q", ErrInvalidInput, s)
	}
	return WallClock{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}, nil
}

func (w WallClock) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", w.Year, w.Month, w.Day, w.Hour, w.Minute)
}

// MarshalText renders the wall clock as "2006-01-02T15:04".
func (w WallClock) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText parses "2006-01-02T15:04".
func (w *WallClock) UnmarshalText(b []byte) error {
	parsed, err := ParseWallClock(string(b))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Validate reports whether the wall clock denotes a real calendar date/time.
// Overflowed dates such as February 30 are rejected rather than normalized.
func (w WallClock) Validate() error {
	if w.Month < time.January || w.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidInput, w.Month)
	}
	if w.Hour < 0 || w.Hour > 23 || w.Minute < 0 || w.Minute > 59 {
		return fmt.Errorf("%w: time %02d:%02d", ErrInvalidInput, w.Hour, w.Minute)
	}
	norm := time.Date(w.Year, w.Month, w.Day, 0, 0, 0, 0, time.UTC)
	if norm.Year() != w.Year || norm.Month() != w.Month || norm.Day() != w.Day {
		return fmt.Errorf("%w: date %04d-%02d-%02d", ErrInvalidInput, w.Year, w.Month, w.Day)
	}
	return nil
}

// IsValidTimezone reports whether zone is a loadable zone identifier. It never
// returns an error; unknown and empty identifiers are simply invalid.
func IsValidTimezone(zone string) bool {
	if zone == "" {
		return false
	}
	_, err := time.LoadLocation(zone)
	return err == nil
}

func load(zone string) (*time.Location, error) {
	if zone == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, zone)
	}
	return loc, nil
}

// ToUTC interprets the wall clock as occurring in zone and returns the
// equivalent UTC instant.
//
// Near DST transitions the result is deterministic: a wall clock that occurs
// twice resolves to the earlier of the two UTC instants, and a wall clock
// skipped by a forward transition resolves to the first valid instant after
// the gap (the transition instant itself).
func ToUTC(w WallClock, zone string) (time.Time, error) {
	loc, err := load(zone)
	if err != nil {
		return time.Time{}, err
	}
	if err := w.Validate(); err != nil {
		return time.Time{}, err
	}

	// Treat the wall clock as if it were UTC, then shift by each plausible
	// zone offset around that instant. A candidate is real when mapping it
	// back into the zone reproduces the requested wall clock.
	naive := time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, 0, 0, time.UTC)

	offsets := probeOffsets(naive, loc)
	var valid []time.Time
	var candidates []time.Time
	for _, off := range offsets {
		cand := naive.Add(-time.Duration(off) * time.Second)
		candidates = append(candidates, cand)
		local := cand.In(loc)
		if local.Year() == w.Year && local.Month() == w.Month && local.Day() == w.Day &&
			local.Hour() == w.Hour && local.Minute() == w.Minute {
			valid = append(valid, cand)
		}
	}

	if len(valid) > 0 {
		earliest := valid[0]
		for _, v := range valid[1:] {
			if v.Before(earliest) {
				earliest = v
			}
		}
		return earliest.UTC(), nil
	}

	// The wall clock falls inside a forward-transition gap. The candidates
	// straddle the transition; bisect for its exact instant.
	lo, hi := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		if c.Before(lo) {
			lo = c
		}
		if c.After(hi) {
			hi = c
		}
	}
	return firstInstantAfterTransition(lo, hi, loc), nil
}

// FromUTC localizes a UTC instant into a wall clock in zone, truncating to
// minute precision.
func FromUTC(t time.Time, zone string) (WallClock, error) {
	loc, err := load(zone)
	if err != nil {
		return WallClock{}, err
	}
	local := t.In(loc)
	return WallClock{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
	}, nil
}

// probeOffsets collects the distinct zone offsets in effect around the naive
// instant. One day on each side covers DST shifts; one week catches rarer
// base-offset changes.
func probeOffsets(naive time.Time, loc *time.Location) []int {
	probes := []time.Duration{-7 * 24 * time.Hour, -24 * time.Hour, 0, 24 * time.Hour, 7 * 24 * time.Hour}
	seen := map[int]struct{}{}
	var offsets []int
	for _, d := range probes {
		_, off := naive.Add(d).In(loc).Zone()
		if _, ok := seen[off]; !ok {
			seen[off] = struct{}{}
			offsets = append(offsets, off)
		}
	}
	return offsets
}

// firstInstantAfterTransition bisects (lo, hi] for the first instant whose
// offset differs from lo's, i.e. the moment the clocks jumped.
func firstInstantAfterTransition(lo, hi time.Time, loc *time.Location) time.Time {
	_, loOff := lo.In(loc).Zone()
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2).Truncate(time.Second)
		if !mid.After(lo) {
			mid = lo.Add(time.Second)
		}
		if _, off := mid.In(loc).Zone(); off == loOff {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi.UTC()
}
