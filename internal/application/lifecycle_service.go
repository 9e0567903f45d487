package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/cohort-scheduler/internal/persistence"
	"github.com/example/cohort-scheduler/internal/sessions"
)

// LifecycleService releases reservations when sessions finish and rebuilds a
// cohort's schedule from scratch on regeneration.
type LifecycleService struct {
	cohorts    CohortStore
	pool       ResourceStore
	sessions   SessionStore
	activation *ActivationService
	now        func() time.Time
	logger     *slog.Logger
}

// NewLifecycleService wires the lifecycle manager. The activation service is
// reused for the rebuild half of regeneration so both paths share one
// pipeline.
func NewLifecycleService(cohortStore CohortStore, pool ResourceStore, sessionStore SessionStore, activation *ActivationService, now func() time.Time, logger *slog.Logger) *LifecycleService {
	if now == nil {
		now = time.Now
	}
	return &LifecycleService{
		cohorts:    cohortStore,
		pool:       pool,
		sessions:   sessionStore,
		activation: activation,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

func (s *LifecycleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LifecycleService", operation, attrs...)
}

// Release frees the resource bound to a session and clears the session's
// resource reference. Unknown sessions and sessions with nothing bound are
// no-ops, which keeps regeneration and repeated notifications idempotent.
func (s *LifecycleService) Release(ctx context.Context, sessionID string) error {
	if s == nil {
		return fmt.Errorf("LifecycleService is nil")
	}

	logger := s.loggerWith(ctx, "Release", "session_id", sessionID)

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.DebugContext(ctx, "release skipped, session unknown")
			return nil
		}
		return mapRepoError(err)
	}
	if session.ResourceID == nil {
		logger.DebugContext(ctx, "release skipped, no resource bound")
		return nil
	}

	resourceID := *session.ResourceID
	if _, err := s.pool.Release(ctx, resourceID); err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return mapRepoError(err)
	}
	if err := s.sessions.BindSessionResource(ctx, sessionID, nil, s.now()); err != nil {
		return mapRepoError(err)
	}

	logger.InfoContext(ctx, "resource released",
		"resource_id", resourceID,
		"elapsed", session.End.Sub(session.Start).String(),
	)
	return nil
}

// HandleStatusChange applies a session status transition and releases the
// bound resource when the session leaves the scheduled state for good.
func (s *LifecycleService) HandleStatusChange(ctx context.Context, sessionID string, status sessions.Status) error {
	if s == nil {
		return fmt.Errorf("LifecycleService is nil")
	}

	logger := s.loggerWith(ctx, "HandleStatusChange", "session_id", sessionID, "status", string(status))

	if _, err := s.sessions.UpdateSessionStatus(ctx, sessionID, status, s.now()); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.DebugContext(ctx, "status change skipped, session unknown")
			return nil
		}
		return mapRepoError(err)
	}

	if status == sessions.StatusCompleted || status == sessions.StatusCancelled {
		return s.Release(ctx, sessionID)
	}
	return nil
}

// RegenerateCohort tears down and rebuilds a cohort's schedule: every bound
// resource is released, existing sessions are soft-deleted, then the
// activation pipeline runs again. Release fully precedes re-allocation so
// the new run never mistakes the cohort's own stale reservations for
// conflicts.
func (s *LifecycleService) RegenerateCohort(ctx context.Context, principal Principal, cohortID string) (result ActivationResult, err error) {
	if s == nil {
		return ActivationResult{}, fmt.Errorf("LifecycleService is nil")
	}
	if s.activation == nil {
		return ActivationResult{}, fmt.Errorf("activation service not configured")
	}

	logger := s.loggerWith(ctx, "RegenerateCohort", "cohort_id", cohortID, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "regeneration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cohort regenerated",
			"sessions", len(result.Sessions),
			"unassigned", len(result.Allocation.Unassigned),
		)
	}()

	cohort, err := s.cohorts.GetCohort(ctx, cohortID)
	if err != nil {
		return ActivationResult{}, mapRepoError(err)
	}

	live, err := s.sessions.ListSessionsForCohort(ctx, cohortID, false)
	if err != nil {
		return ActivationResult{}, mapRepoError(err)
	}
	for _, session := range live {
		if err := s.Release(ctx, session.ID); err != nil {
			return ActivationResult{}, err
		}
	}

	deleted, err := s.sessions.SoftDeleteSessionsForCohort(ctx, cohortID, s.now())
	if err != nil {
		return ActivationResult{}, mapRepoError(err)
	}
	logger.InfoContext(ctx, "previous sessions torn down", "released", len(live), "tombstoned", deleted)

	return s.activation.activate(ctx, cohort, false)
}
