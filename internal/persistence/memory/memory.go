// Package memory provides a map-backed implementation of every repository
// contract. It backs service tests and small deployments that do not need a
// database file; the store-wide mutex gives the same reservation
// serialization guarantee the SQLite layer gets from version checks.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/cohort-scheduler/internal/cohorts"
	"github.com/example/cohort-scheduler/internal/curriculum"
	"github.com/example/cohort-scheduler/internal/persistence"
	"github.com/example/cohort-scheduler/internal/resources"
	"github.com/example/cohort-scheduler/internal/sessions"
)

// Store holds all records in process memory.
type Store struct {
	mu        sync.RWMutex
	resources map[string]resources.MeetingResource
	sessions  map[string]sessions.Occurrence
	cohorts   map[string]cohorts.Cohort
	curricula map[string]curriculum.Curriculum
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		resources: make(map[string]resources.MeetingResource),
		sessions:  make(map[string]sessions.Occurrence),
		cohorts:   make(map[string]cohorts.Cohort),
		curricula: make(map[string]curriculum.Curriculum),
	}
}

// --- persistence.ResourceRepository ---

// CreateResource stores a new meeting resource.
func (s *Store) CreateResource(ctx context.Context, resource resources.MeetingResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resource.ID]; ok {
		return persistence.ErrDuplicate
	}
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}
	s.resources[resource.ID] = resource.Clone()
	return nil
}

// UpdateResource replaces an existing resource record.
func (s *Store) UpdateResource(ctx context.Context, resource resources.MeetingResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resource.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.resources[resource.ID] = resource.Clone()
	return nil
}

// GetResource retrieves a resource by ID.
func (s *Store) GetResource(ctx context.Context, id string) (resources.MeetingResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource, ok := s.resources[id]
	if !ok {
		return resources.MeetingResource{}, persistence.ErrNotFound
	}
	return resource.Clone(), nil
}

// ListResources returns the pool ordered ascending by ID.
func (s *Store) ListResources(ctx context.Context) ([]resources.MeetingResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool := make([]resources.MeetingResource, 0, len(s.resources))
	for _, resource := range s.resources {
		pool = append(pool, resource.Clone())
	}
	resources.SortPool(pool)
	return pool, nil
}

// DeleteResource removes a resource from the pool.
func (s *Store) DeleteResource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.resources, id)
	return nil
}

// Reserve writes a reservation guarded by an optimistic version check.
func (s *Store) Reserve(ctx context.Context, resourceID string, reservation resources.Reservation, expectedVersion int64) (resources.MeetingResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resource, ok := s.resources[resourceID]
	if !ok {
		return resources.MeetingResource{}, persistence.ErrNotFound
	}
	if resource.Version != expectedVersion {
		return resources.MeetingResource{}, persistence.ErrVersionConflict
	}

	r := reservation
	resource.Status = resources.StatusReserved
	resource.CurrentReservation = &r
	resource.Version++
	resource.UpdatedAt = reservation.ReservedAt
	s.resources[resourceID] = resource
	return resource.Clone(), nil
}

// Release clears the current reservation; releasing an unreserved resource
// is a no-op so lifecycle teardown stays idempotent.
func (s *Store) Release(ctx context.Context, resourceID string) (resources.MeetingResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resource, ok := s.resources[resourceID]
	if !ok {
		return resources.MeetingResource{}, persistence.ErrNotFound
	}
	if resource.Status == resources.StatusReserved {
		resource.Status = resources.StatusAvailable
	}
	resource.CurrentReservation = nil
	resource.Version++
	s.resources[resourceID] = resource
	return resource.Clone(), nil
}

// --- persistence.SessionRepository ---

// CreateSessions bulk-inserts session occurrences.
func (s *Store) CreateSessions(ctx context.Context, occurrences []sessions.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, occ := range occurrences {
		if occ.ID == "" {
			return persistence.ErrConstraintViolation
		}
		if _, ok := s.sessions[occ.ID]; ok {
			return persistence.ErrDuplicate
		}
	}
	for _, occ := range occurrences {
		s.sessions[occ.ID] = cloneSession(occ)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (sessions.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	occ, ok := s.sessions[id]
	if !ok {
		return sessions.Occurrence{}, persistence.ErrNotFound
	}
	return cloneSession(occ), nil
}

// ListSessionsForCohort returns a cohort's sessions ordered by start time.
func (s *Store) ListSessionsForCohort(ctx context.Context, cohortID string, includeDeleted bool) ([]sessions.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]sessions.Occurrence, 0)
	for _, occ := range s.sessions {
		if occ.CohortID != cohortID {
			continue
		}
		if !includeDeleted && occ.DeletedAt != nil {
			continue
		}
		list = append(list, cloneSession(occ))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Start.Equal(list[j].Start) {
			return list[i].Start.Before(list[j].Start)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// UpdateSessionStatus transitions a session's lifecycle status.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status sessions.Status, at time.Time) (sessions.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	occ, ok := s.sessions[id]
	if !ok {
		return sessions.Occurrence{}, persistence.ErrNotFound
	}
	occ.Status = status
	occ.UpdatedAt = at
	s.sessions[id] = occ
	return cloneSession(occ), nil
}

// BindSessionResource sets or clears a session's resource reference.
func (s *Store) BindSessionResource(ctx context.Context, sessionID string, resourceID *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	occ, ok := s.sessions[sessionID]
	if !ok {
		return persistence.ErrNotFound
	}
	if resourceID != nil {
		id := *resourceID
		occ.ResourceID = &id
	} else {
		occ.ResourceID = nil
	}
	occ.UpdatedAt = at
	s.sessions[sessionID] = occ
	return nil
}

// SoftDeleteSessionsForCohort tombstones every live session of the cohort.
func (s *Store) SoftDeleteSessionsForCohort(ctx context.Context, cohortID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	affected := 0
	for id, occ := range s.sessions {
		if occ.CohortID != cohortID || occ.DeletedAt != nil {
			continue
		}
		deletedAt := at
		occ.Status = sessions.StatusCancelled
		occ.DeletedAt = &deletedAt
		occ.UpdatedAt = at
		s.sessions[id] = occ
		affected++
	}
	return affected, nil
}

// --- persistence.CohortRepository ---

// CreateCohort stores a new cohort.
func (s *Store) CreateCohort(ctx context.Context, cohort cohorts.Cohort) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cohorts[cohort.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.cohorts[cohort.ID] = cloneCohort(cohort)
	return nil
}

// UpdateCohort replaces an existing cohort record.
func (s *Store) UpdateCohort(ctx context.Context, cohort cohorts.Cohort) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cohorts[cohort.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.cohorts[cohort.ID] = cloneCohort(cohort)
	return nil
}

// GetCohort retrieves a cohort by ID.
func (s *Store) GetCohort(ctx context.Context, id string) (cohorts.Cohort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cohort, ok := s.cohorts[id]
	if !ok {
		return cohorts.Cohort{}, persistence.ErrNotFound
	}
	return cloneCohort(cohort), nil
}

// ListCohorts returns all cohorts ordered by ID.
func (s *Store) ListCohorts(ctx context.Context) ([]cohorts.Cohort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]cohorts.Cohort, 0, len(s.cohorts))
	for _, cohort := range s.cohorts {
		list = append(list, cloneCohort(cohort))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// --- persistence.CurriculumRepository ---

// CreateCurriculum stores a curriculum for seeding and tests.
func (s *Store) CreateCurriculum(ctx context.Context, cur curriculum.Curriculum) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.curricula[cur.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.curricula[cur.ID] = cloneCurriculum(cur)
	return nil
}

// GetCurriculum retrieves a curriculum by ID.
func (s *Store) GetCurriculum(ctx context.Context, id string) (curriculum.Curriculum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.curricula[id]
	if !ok {
		return curriculum.Curriculum{}, persistence.ErrNotFound
	}
	return cloneCurriculum(cur), nil
}

// ListCurricula returns all curricula ordered by ID.
func (s *Store) ListCurricula(ctx context.Context) ([]curriculum.Curriculum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]curriculum.Curriculum, 0, len(s.curricula))
	for _, cur := range s.curricula {
		list = append(list, cloneCurriculum(cur))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func cloneSession(occ sessions.Occurrence) sessions.Occurrence {
	out := occ
	if occ.ResourceID != nil {
		id := *occ.ResourceID
		out.ResourceID = &id
	}
	if occ.DeletedAt != nil {
		t := *occ.DeletedAt
		out.DeletedAt = &t
	}
	return out
}

func cloneCohort(cohort cohorts.Cohort) cohorts.Cohort {
	out := cohort
	out.Rule.Weekdays = append([]time.Weekday(nil), cohort.Rule.Weekdays...)
	return out
}

func cloneCurriculum(cur curriculum.Curriculum) curriculum.Curriculum {
	out := cur
	out.Modules = make([]curriculum.Module, len(cur.Modules))
	for i, module := range cur.Modules {
		cloned := module
		cloned.Lessons = append([]curriculum.LessonUnit(nil), module.Lessons...)
		out.Modules[i] = cloned
	}
	return out
}
