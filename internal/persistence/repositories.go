// Package persistence defines the repository contracts the scheduling core
// reads from and writes to, plus the sentinel errors implementations map
// their storage failures onto.
package persistence

import (
	"context"
	"time"

	"github.com/example/cohort-scheduler/internal/cohorts"
	"github.com/example/cohort-scheduler/internal/curriculum"
	"github.com/example/cohort-scheduler/internal/resources"
	"github.com/example/cohort-scheduler/internal/sessions"
)

// ResourceRepository stores the shared meeting resource pool.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource resources.MeetingResource) error
	UpdateResource(ctx context.Context, resource resources.MeetingResource) error
	GetResource(ctx context.Context, id string) (resources.MeetingResource, error)
	// ListResources returns the pool in its contractual order, ascending by ID.
	ListResources(ctx context.Context) ([]resources.MeetingResource, error)
	DeleteResource(ctx context.Context, id string) error

	// Reserve writes a reservation if and only if the stored version still
	// matches expectedVersion, returning ErrVersionConflict otherwise.
	Reserve(ctx context.Context, resourceID string, reservation resources.Reservation, expectedVersion int64) (resources.MeetingResource, error)
	// Release clears the current reservation and returns the resource to the
	// available state. Releasing an unreserved resource is a no-op.
	Release(ctx context.Context, resourceID string) (resources.MeetingResource, error)
}

// SessionRepository stores a cohort's session occurrences.
type SessionRepository interface {
	// CreateSessions bulk-inserts the occurrences produced by the factory.
	CreateSessions(ctx context.Context, occurrences []sessions.Occurrence) error
	GetSession(ctx context.Context, id string) (sessions.Occurrence, error)
	ListSessionsForCohort(ctx context.Context, cohortID string, includeDeleted bool) ([]sessions.Occurrence, error)
	UpdateSessionStatus(ctx context.Context, id string, status sessions.Status, at time.Time) (sessions.Occurrence, error)
	// BindSessionResource sets or clears (nil) a session's resource reference.
	BindSessionResource(ctx context.Context, sessionID string, resourceID *string, at time.Time) error
	// SoftDeleteSessionsForCohort tombstones every live session of the cohort
	// and reports how many were affected.
	SoftDeleteSessionsForCohort(ctx context.Context, cohortID string, at time.Time) (int, error)
}

// CohortRepository stores cohort records and their recurrence rules.
type CohortRepository interface {
	CreateCohort(ctx context.Context, cohort cohorts.Cohort) error
	UpdateCohort(ctx context.Context, cohort cohorts.Cohort) error
	GetCohort(ctx context.Context, id string) (cohorts.Cohort, error)
	ListCohorts(ctx context.Context) ([]cohorts.Cohort, error)
}

// CurriculumRepository exposes read access to course storage. The scheduler
// never mutates curricula; Create exists for seeding and tests.
type CurriculumRepository interface {
	CreateCurriculum(ctx context.Context, cur curriculum.Curriculum) error
	GetCurriculum(ctx context.Context, id string) (curriculum.Curriculum, error)
	ListCurricula(ctx context.Context) ([]curriculum.Curriculum, error)
}
