package application

import (
	"context"
	"time"

	"github.com/example/cohort-scheduler/internal/cohorts"
	"github.com/example/cohort-scheduler/internal/curriculum"
	"github.com/example/cohort-scheduler/internal/resources"
	"github.com/example/cohort-scheduler/internal/sessions"
)

// CohortStore captures the cohort persistence interactions the services need.
type CohortStore interface {
	GetCohort(ctx context.Context, id string) (cohorts.Cohort, error)
	UpdateCohort(ctx context.Context, cohort cohorts.Cohort) error
}

// CurriculumSource exposes read-only access to course storage.
type CurriculumSource interface {
	GetCurriculum(ctx context.Context, id string) (curriculum.Curriculum, error)
}

// ResourceStore captures the resource pool interactions the services need.
type ResourceStore interface {
	CreateResource(ctx context.Context, resource resources.MeetingResource) error
	UpdateResource(ctx context.Context, resource resources.MeetingResource) error
	GetResource(ctx context.Context, id string) (resources.MeetingResource, error)
	ListResources(ctx context.Context) ([]resources.MeetingResource, error)
	Reserve(ctx context.Context, resourceID string, reservation resources.Reservation, expectedVersion int64) (resources.MeetingResource, error)
	Release(ctx context.Context, resourceID string) (resources.MeetingResource, error)
}

// SessionStore captures the session persistence interactions the services need.
type SessionStore interface {
	CreateSessions(ctx context.Context, occurrences []sessions.Occurrence) error
	GetSession(ctx context.Context, id string) (sessions.Occurrence, error)
	ListSessionsForCohort(ctx context.Context, cohortID string, includeDeleted bool) ([]sessions.Occurrence, error)
	UpdateSessionStatus(ctx context.Context, id string, status sessions.Status, at time.Time) (sessions.Occurrence, error)
	BindSessionResource(ctx context.Context, sessionID string, resourceID *string, at time.Time) error
	SoftDeleteSessionsForCohort(ctx context.Context, cohortID string, at time.Time) (int, error)
}
