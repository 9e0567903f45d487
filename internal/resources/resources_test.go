package resources

import (
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2024, time.January, 1, hour, 0, 0, 0, time.UTC)
}

func TestAvailable(t *testing.T) {
	t.Parallel()

	now := at(9)

	t.Run("available resource accepts any interval", func(t *testing.T) {
		t.Parallel()
		resource := MeetingResource{ID: "r1", Status: StatusAvailable}
		if !Available(resource, at(10), at(11), now) {
			t.Fatal("expected available")
		}
	})

	t.Run("maintenance resource rejects every interval", func(t *testing.T) {
		t.Parallel()
		resource := MeetingResource{ID: "r1", Status: StatusMaintenance}
		if Available(resource, at(10), at(11), now) {
			t.Fatal("expected unavailable during maintenance")
		}
	})

	t.Run("reserved resource rejects overlapping interval", func(t *testing.T) {
		t.Parallel()
		resource := MeetingResource{
			ID:     "r1",
			Status: StatusReserved,
			CurrentReservation: &Reservation{
				SessionID: "s1", Start: at(10), End: at(11),
			},
		}
		if Available(resource, at(10), at(11), now) {
			t.Fatal("identical interval must conflict")
		}
		if Available(resource, at(10).Add(30*time.Minute), at(11).Add(30*time.Minute), now) {
			t.Fatal("partially overlapping interval must conflict")
		}
	})

	t.Run("reserved resource accepts adjacent interval", func(t *testing.T) {
		t.Parallel()
		resource := MeetingResource{
			ID:     "r1",
			Status: StatusReserved,
			CurrentReservation: &Reservation{
				SessionID: "s1", Start: at(10), End: at(11),
			},
		}
		// Half-open intervals: back-to-back bookings do not conflict.
		if !Available(resource, at(11), at(12), now) {
			t.Fatal("adjacent interval must not conflict")
		}
		if !Available(resource, at(8), at(10), now) {
			t.Fatal("interval ending at reservation start must not conflict")
		}
	})

	t.Run("elapsed reservation is lazily expired", func(t *testing.T) {
		t.Parallel()
		resource := MeetingResource{
			ID:     "r1",
			Status: StatusReserved,
			CurrentReservation: &Reservation{
				SessionID: "s1", Start: at(6), End: at(7),
			},
		}
		// Status still reads reserved, but the interval has elapsed.
		if !Available(resource, at(6), at(7), at(12)) {
			t.Fatal("elapsed reservation must be treated as vacated")
		}
	})

	t.Run("reserved without reservation record is usable", func(t *testing.T) {
		t.Parallel()
		resource := MeetingResource{ID: "r1", Status: StatusReserved}
		if !Available(resource, at(10), at(11), now) {
			t.Fatal("expected available when no reservation is recorded")
		}
	})
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical", at(10), at(11), at(10), at(11), true},
		{"nested", at(10), at(12), at(10).Add(15 * time.Minute), at(11), true},
		{"partial", at(10), at(11), at(10).Add(30 * time.Minute), at(12), true},
		{"adjacent", at(10), at(11), at(11), at(12), false},
		{"disjoint", at(8), at(9), at(10), at(11), false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("orders by id and deep copies", func(t *testing.T) {
		t.Parallel()
		pool := []MeetingResource{
			{ID: "link-b", Status: StatusReserved, CurrentReservation: &Reservation{SessionID: "s1", Start: at(10), End: at(11)}},
			{ID: "link-a", Status: StatusAvailable},
		}
		snap := Snapshot(pool)
		if snap[0].ID != "link-a" || snap[1].ID != "link-b" {
			t.Fatalf("expected id ordering, got %s, %s", snap[0].ID, snap[1].ID)
		}

		snap[1].CurrentReservation.SessionID = "mutated"
		if pool[0].CurrentReservation.SessionID != "s1" {
			t.Fatal("snapshot mutation leaked into the source pool")
		}
	})
}
