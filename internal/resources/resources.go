// Package resources models the shared pool of meeting resources and the
// availability decision applied to reservation candidates.
package resources

import (
	"slices"
	"time"
)

// Status tracks a meeting resource's lifecycle state.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusReserved    Status = "reserved"
	StatusMaintenance Status = "maintenance"
)

// Reservation binds a resource to one session for one time interval.
type Reservation struct {
	SessionID  string
	CohortID   string
	Start      time.Time
	End        time.Time
	ReservedAt time.Time
}

// MeetingResource is a shared, time-limited virtual meeting identity. It
// holds at most one active reservation; Version guards reservation writes so
// concurrent allocator runs cannot double-book an interval.
type MeetingResource struct {
	ID                 string
	Name               string
	Platform           string
	Credentials        string
	Status             Status
	CurrentReservation *Reservation
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Clone returns a deep copy of the resource.
func (r MeetingResource) Clone() MeetingResource {
	out := r
	if r.CurrentReservation != nil {
		reservation := *r.CurrentReservation
		out.CurrentReservation = &reservation
	}
	return out
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) share any instant.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Available decides whether the resource can host the candidate interval
// [start,end) as of now.
//
// A reservation whose end has already elapsed is treated as vacated even when
// the stored status still reads reserved: there is no background
// reconciliation pass, so lazy expiry is the documented rule rather than an
// accident of timing.
func Available(resource MeetingResource, start, end, now time.Time) bool {
	switch resource.Status {
	case StatusAvailable:
		return true
	case StatusMaintenance:
		return false
	case StatusReserved:
		reservation := resource.CurrentReservation
		if reservation == nil {
			return true
		}
		if reservation.End.Before(now) {
			return true
		}
		return !Overlaps(start, end, reservation.Start, reservation.End)
	default:
		return false
	}
}

// SortPool orders resources ascending by ID in place. The ordering is a
// load-bearing contract: the allocator and the pre-flight simulator must
// traverse the pool identically for their verdicts to agree, and IDs are the
// only immutable key.
func SortPool(pool []MeetingResource) {
	slices.SortFunc(pool, func(a, b MeetingResource) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
}

// Snapshot is a point-in-time deep copy of the pool in its contractual
// order. Mutating a snapshot never touches the records it was taken from.
func Snapshot(pool []MeetingResource) []MeetingResource {
	out := make([]MeetingResource, 0, len(pool))
	for _, resource := range pool {
		out = append(out, resource.Clone())
	}
	SortPool(out)
	return out
}
