// Package allocation assigns meeting resources to session occurrences and
// answers, ahead of activation, whether the pool can satisfy a cohort.
//
// The allocator and the pre-flight simulator share one scan: the same
// chronological session order, the same pool traversal, the same availability
// decision. Only the binding step differs, which is what makes the
// simulator's verdict trustworthy.
package allocation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/example/cohort-scheduler/internal/persistence"
	"github.com/example/cohort-scheduler/internal/resources"
	"github.com/example/cohort-scheduler/internal/sessions"
)

// Assignment pairs a session with the resource reserved for it.
type Assignment struct {
	SessionID  string
	ResourceID string
}

// Result accumulates the per-session outcome of an allocation run. A
// non-empty Unassigned list is a resource shortage, not a failure: processing
// is best-effort and never aborts on the first unsatisfiable session.
type Result struct {
	Assigned   []Assignment
	Unassigned []string
}

// FullyAssigned reports whether every processed session received a resource.
func (r Result) FullyAssigned() bool {
	return len(r.Unassigned) == 0
}

// bindFunc commits a reservation for the chosen resource. It returns false
// when the resource was lost to a concurrent writer and the scan should move
// on to the next candidate.
type bindFunc func(ctx context.Context, resource *resources.MeetingResource, reservation resources.Reservation) (bool, error)

// scan walks sessions chronologically and picks, for each, the first resource
// in pool order that the availability decision approves. The pool slice is
// the scan's working state: successful binds update it in place so later
// sessions observe earlier reservations.
func scan(ctx context.Context, list []sessions.Occurrence, pool []resources.MeetingResource, cohortID string, now func() time.Time, bind bindFunc) (Result, error) {
	ordered := make([]sessions.Occurrence, 0, len(list))
	for _, occ := range list {
		if occ.Status != sessions.StatusScheduled || occ.DeletedAt != nil {
			continue
		}
		ordered = append(ordered, occ)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].Start.Before(ordered[j].Start)
		}
		if ordered[i].ModuleIndex != ordered[j].ModuleIndex {
			return ordered[i].ModuleIndex < ordered[j].ModuleIndex
		}
		return ordered[i].SessionNumber < ordered[j].SessionNumber
	})

	result := Result{Assigned: make([]Assignment, 0, len(ordered)), Unassigned: make([]string, 0)}

	for _, occ := range ordered {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		bound := false
		for i := range pool {
			if !resources.Available(pool[i], occ.Start, occ.End, now()) {
				continue
			}
			reservation := resources.Reservation{
				SessionID:  occ.ID,
				CohortID:   cohortID,
				Start:      occ.Start,
				End:        occ.End,
				ReservedAt: now(),
			}
			ok, err := bind(ctx, &pool[i], reservation)
			if err != nil {
				return result, err
			}
			if !ok {
				continue
			}
			result.Assigned = append(result.Assigned, Assignment{SessionID: occ.ID, ResourceID: pool[i].ID})
			bound = true
			break
		}
		if !bound {
			result.Unassigned = append(result.Unassigned, occ.ID)
		}
	}

	return result, nil
}

// ReservationWriter commits reservations against the resource store. The
// expectedVersion check is the serialization point: two concurrent runs that
// both observed an available resource cannot both win the write.
type ReservationWriter interface {
	Reserve(ctx context.Context, resourceID string, reservation resources.Reservation, expectedVersion int64) (resources.MeetingResource, error)
}

// Allocator binds real reservations for a cohort's sessions.
type Allocator struct {
	writer ReservationWriter
	now    func() time.Time
}

// NewAllocator constructs an allocator committing through the given writer.
func NewAllocator(writer ReservationWriter, now func() time.Time) *Allocator {
	if now == nil {
		now = time.Now
	}
	return &Allocator{writer: writer, now: now}
}

// Allocate reserves a resource for each scheduled session, earliest first.
// Sessions no resource can satisfy are reported in Result.Unassigned; the
// caller decides whether partial coverage is acceptable. The pool slice is a
// snapshot owned by the run and is updated in place as reservations land.
func (a *Allocator) Allocate(ctx context.Context, list []sessions.Occurrence, pool []resources.MeetingResource, cohortID string) (Result, error) {
	resources.SortPool(pool)
	return scan(ctx, list, pool, cohortID, a.now, func(ctx context.Context, resource *resources.MeetingResource, reservation resources.Reservation) (bool, error) {
		updated, err := a.writer.Reserve(ctx, resource.ID, reservation, resource.Version)
		if err != nil {
			if errors.Is(err, persistence.ErrVersionConflict) {
				// Lost the race for this resource; the next candidate may
				// still satisfy the session.
				return false, nil
			}
			return false, err
		}
		*resource = updated
		return true, nil
	})
}

// DefaultSessionsPerResourceHint is the reference heuristic divisor for the
// advisory minimum-pool-size figure.
const DefaultSessionsPerResourceHint = 4

// sampleAssignmentLimit caps the assignment sample included in reports.
const sampleAssignmentLimit = 10

// Report is the structured pre-flight verdict consumed by the activation
// approval workflow.
type Report struct {
	// SessionsNeedingResources counts sessions the simulated run could not
	// satisfy with the current pool.
	SessionsNeedingResources int
	// HasEnoughResources is the authoritative gate: the exact simulated
	// outcome, not the heuristic below.
	HasEnoughResources bool
	// MinimumResourcesRequired is an explanatory hint only,
	// ceil(sessions / sessionsPerResourceHint). Callers must not gate on it.
	MinimumResourcesRequired int
	// SampleAssignments shows the first few simulated bindings.
	SampleAssignments []Assignment
	// UnassignedSessionIDs lists the specific sessions lacking a resource,
	// for manual remediation.
	UnassignedSessionIDs []string
}

// Simulator answers "is the pool large enough" without mutating anything.
type Simulator struct {
	now  func() time.Time
	hint int
}

// NewSimulator constructs a simulator. sessionsPerResourceHint <= 0 falls
// back to the reference heuristic of four sessions per resource.
func NewSimulator(now func() time.Time, sessionsPerResourceHint int) *Simulator {
	if now == nil {
		now = time.Now
	}
	if sessionsPerResourceHint <= 0 {
		sessionsPerResourceHint = DefaultSessionsPerResourceHint
	}
	return &Simulator{now: now, hint: sessionsPerResourceHint}
}

// Simulate runs the allocator's exact algorithm against a deep snapshot of
// the pool. The stored pool is never touched, so the call is idempotent: the
// same inputs always yield the same report.
func (s *Simulator) Simulate(ctx context.Context, list []sessions.Occurrence, pool []resources.MeetingResource, cohortID string) (Report, error) {
	snapshot := resources.Snapshot(pool)

	scheduled := 0
	for _, occ := range list {
		if occ.Status == sessions.StatusScheduled && occ.DeletedAt == nil {
			scheduled++
		}
	}

	result, err := scan(ctx, list, snapshot, cohortID, s.now, func(_ context.Context, resource *resources.MeetingResource, reservation resources.Reservation) (bool, error) {
		r := reservation
		resource.Status = resources.StatusReserved
		resource.CurrentReservation = &r
		resource.Version++
		return true, nil
	})
	if err != nil {
		return Report{}, err
	}

	sample := result.Assigned
	if len(sample) > sampleAssignmentLimit {
		sample = sample[:sampleAssignmentLimit]
	}

	return Report{
		SessionsNeedingResources: len(result.Unassigned),
		HasEnoughResources:       result.FullyAssigned(),
		MinimumResourcesRequired: (scheduled + s.hint - 1) / s.hint,
		SampleAssignments:        sample,
		UnassignedSessionIDs:     result.Unassigned,
	}, nil
}
