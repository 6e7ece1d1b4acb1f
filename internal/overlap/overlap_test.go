package overlap

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIntervalValid(t *testing.T) {
	cases := []struct {
		name     string
		interval Interval
		want     bool
	}{
		{"regular slot range", Interval{Date: day(2024, time.January, 10), Start: 36, End: 38}, true},
		{"full day", Interval{Date: day(2024, time.January, 10), Start: 0, End: SlotsPerDay}, true},
		{"zero length", Interval{Date: day(2024, time.January, 10), Start: 10, End: 10}, false},
		{"inverted", Interval{Date: day(2024, time.January, 10), Start: 12, End: 10}, false},
		{"negative start", Interval{Date: day(2024, time.January, 10), Start: -1, End: 4}, false},
		{"past end of day", Interval{Date: day(2024, time.January, 10), Start: 40, End: SlotsPerDay + 1}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.interval.Valid(); got != tc.want {
				t.Fatalf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	d := day(2024, time.January, 10)

	cases := []struct {
		name      string
		candidate Interval
		existing  Interval
		want      bool
	}{
		{"identical intervals", Interval{d, 18, 20}, Interval{d, 18, 20}, true},
		{"partial overlap", Interval{d, 36, 38}, Interval{d, 37, 40}, true},
		{"candidate nested inside existing", Interval{d, 20, 22}, Interval{d, 18, 24}, true},
		{"existing nested inside candidate", Interval{d, 18, 24}, Interval{d, 20, 22}, true},
		{"touching at candidate end", Interval{d, 18, 20}, Interval{d, 20, 22}, false},
		{"touching at candidate start", Interval{d, 20, 22}, Interval{d, 18, 20}, false},
		{"disjoint", Interval{d, 2, 4}, Interval{d, 10, 12}, false},
		{"same slots on another day", Interval{d, 18, 20}, Interval{day(2024, time.January, 11), 18, 20}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.candidate, tc.existing); got != tc.want {
				t.Fatalf("Overlaps(%+v, %+v) = %v, want %v", tc.candidate, tc.existing, got, tc.want)
			}
		})
	}

	t.Run("predicate is symmetric", func(t *testing.T) {
		for _, tc := range cases {
			forward := Overlaps(tc.candidate, tc.existing)
			backward := Overlaps(tc.existing, tc.candidate)
			if forward != backward {
				t.Fatalf("asymmetric result for %+v vs %+v: %v != %v", tc.candidate, tc.existing, forward, backward)
			}
		}
	})
}

func TestDetectConflicts(t *testing.T) {
	d := day(2024, time.January, 10)

	existing := []Booking{
		{ID: "res-1", ResourceID: "room-1", Interval: Interval{d, 36, 38}},
		{ID: "res-2", ResourceID: "room-1", Interval: Interval{d, 10, 12}},
		{ID: "res-3", ResourceID: "room-2", Interval: Interval{d, 36, 38}},
	}

	t.Run("overlapping booking on the same resource-day conflicts", func(t *testing.T) {
		conflicts := DetectConflicts(existing, Booking{ID: "new", ResourceID: "room-1", Interval: Interval{d, 37, 39}})
		if len(conflicts) != 1 || conflicts[0].ID != "res-1" {
			t.Fatalf("expected conflict with res-1, got %+v", conflicts)
		}
	})

	t.Run("other resources are ignored", func(t *testing.T) {
		conflicts := DetectConflicts(existing, Booking{ID: "new", ResourceID: "room-3", Interval: Interval{d, 36, 38}})
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("touching bookings do not conflict", func(t *testing.T) {
		conflicts := DetectConflicts(existing, Booking{ID: "new", ResourceID: "room-1", Interval: Interval{d, 38, 40}})
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("nested candidate conflicts", func(t *testing.T) {
		conflicts := DetectConflicts(existing, Booking{ID: "new", ResourceID: "room-1", Interval: Interval{d, 36, 37}})
		if len(conflicts) != 1 || conflicts[0].ID != "res-1" {
			t.Fatalf("expected conflict with res-1, got %+v", conflicts)
		}
	})

	t.Run("candidate skips itself", func(t *testing.T) {
		conflicts := DetectConflicts(existing, existing[0])
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts for self, got %+v", conflicts)
		}
	})

	t.Run("multiple overlaps are all reported", func(t *testing.T) {
		conflicts := DetectConflicts(existing, Booking{ID: "new", ResourceID: "room-1", Interval: Interval{d, 0, SlotsPerDay}})
		if len(conflicts) != 2 {
			t.Fatalf("expected two conflicts, got %+v", conflicts)
		}
	})
}

func TestDateOf(t *testing.T) {
	stamp := time.Date(2024, time.January, 10, 18, 30, 15, 0, time.UTC)
	got := DateOf(stamp)
	want := day(2024, time.January, 10)
	if !got.Equal(want) {
		t.Fatalf("DateOf(%v) = %v, want %v", stamp, got, want)
	}
}
