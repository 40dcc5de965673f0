package availability

import "time"

// OccupiedInterval is the half-open UTC window an existing reservation blocks
// out. End already includes that reservation's own service buffer.
type OccupiedInterval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Half-open semantics: back-to-back windows do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// collides reports whether the candidate, padded on its end by the service
// buffer it would introduce, intersects any occupied interval. Padding both
// sides keeps the no-overlap invariant symmetric: a claimed slot must leave
// its own buffer free before any later reservation.
func collides(slot CandidateSlot, candidateBuffer time.Duration, occupied []OccupiedInterval) bool {
	end := slot.EndUTC.Add(candidateBuffer)
	for _, o := range occupied {
		if Overlaps(slot.StartUTC, end, o.Start, o.End) {
			return true
		}
	}
	return false
}

// Filter drops candidates colliding with occupied intervals. Used for
// customer-facing availability listings.
func Filter(candidates []CandidateSlot, candidateBuffer time.Duration, occupied []OccupiedInterval) []CandidateSlot {
	kept := make([]CandidateSlot, 0, len(candidates))
	for _, c := range candidates {
		if collides(c, candidateBuffer, occupied) {
			continue
		}
		c.Available = true
		kept = append(kept, c)
	}
	return kept
}

// Flag keeps every candidate but marks colliding ones unavailable. Used for
// internal calendar views that render the full day.
func Flag(candidates []CandidateSlot, candidateBuffer time.Duration, occupied []OccupiedInterval) []CandidateSlot {
	out := make([]CandidateSlot, 0, len(candidates))
	for _, c := range candidates {
		c.Available = !collides(c, candidateBuffer, occupied)
		out = append(out, c)
	}
	return out
}
