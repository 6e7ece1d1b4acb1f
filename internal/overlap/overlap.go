package overlap

import "time"

// SlotsPerDay is the number of half-hour slots in one calendar day.
const SlotsPerDay = 48

// Interval is a half-open [Start, End) range of half-hour slots on a single
// calendar day. Start is inclusive, End is exclusive.
type Interval struct {
	Date  time.Time
	Start int
	End   int
}

// Valid reports whether the interval is well formed: slots within the day and
// a strictly positive length.
func (i Interval) Valid() bool {
	return i.Start >= 0 && i.End <= SlotsPerDay && i.Start < i.End
}

// SameDay reports whether two intervals fall on the same calendar day.
func SameDay(a, b Interval) bool {
	ay, am, ad := a.Date.Date()
	by, bm, bd := b.Date.Date()
	return ay == by && am == bm && ad == bd
}

// Overlaps reports whether two intervals on the same calendar day intersect.
// Half-open semantics: touching endpoints do not overlap, so [9,10) and
// [10,11) are disjoint while [9,12) and [10,11) intersect. Intervals on
// different days never overlap.
func Overlaps(candidate, existing Interval) bool {
	if !SameDay(candidate, existing) {
		return false
	}
	return candidate.Start < existing.End && existing.Start < candidate.End
}

// Booking pairs an interval with the reservation and resource it belongs to.
type Booking struct {
	ID         string
	ResourceID string
	Interval   Interval
}

// DetectConflicts returns the existing bookings whose intervals overlap the
// candidate on the candidate's resource-day. Bookings for other resources are
// ignored. The candidate itself is skipped when it appears in existing, so an
// updated booking does not conflict with its own stored interval.
func DetectConflicts(existing []Booking, candidate Booking) []Booking {
	var conflicts []Booking
	for _, booking := range existing {
		if booking.ID == candidate.ID {
			continue
		}
		if booking.ResourceID != candidate.ResourceID {
			continue
		}
		if Overlaps(candidate.Interval, booking.Interval) {
			conflicts = append(conflicts, booking)
		}
	}
	return conflicts
}

// DateOf normalizes a timestamp to its canonical calendar day in UTC.
func DateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
