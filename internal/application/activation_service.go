package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/cohort-scheduler/internal/allocation"
	"github.com/example/cohort-scheduler/internal/cohorts"
	"github.com/example/cohort-scheduler/internal/persistence"
	"github.com/example/cohort-scheduler/internal/sessions"
)

// PreflightResult is the structured report handed to the activation-approval
// workflow.
type PreflightResult struct {
	CohortID       string
	SessionCount   int
	SkippedModules []sessions.SkippedModule
	NoSessions     bool
	Report         allocation.Report
}

// ActivationService runs the cohort activation pipeline: generate sessions,
// gate on the pre-flight simulation, persist, then bind real reservations.
type ActivationService struct {
	cohorts   CohortStore
	curricula CurriculumSource
	pool      ResourceStore
	sessions  SessionStore
	factory   *sessions.Factory
	allocator *allocation.Allocator
	simulator *allocation.Simulator
	cache     *reportCache
	now       func() time.Time
	logger    *slog.Logger
}

// ActivationConfig tunes optional activation behavior.
type ActivationConfig struct {
	PreflightCacheTTL       time.Duration
	PreflightCacheSize      int
	SessionsPerResourceHint int
}

// NewActivationService wires the activation pipeline.
func NewActivationService(cohortStore CohortStore, curricula CurriculumSource, pool ResourceStore, sessionStore SessionStore, factory *sessions.Factory, cfg ActivationConfig, now func() time.Time, logger *slog.Logger) *ActivationService {
	if now == nil {
		now = time.Now
	}
	return &ActivationService{
		cohorts:   cohortStore,
		curricula: curricula,
		pool:      pool,
		sessions:  sessionStore,
		factory:   factory,
		allocator: allocation.NewAllocator(pool, now),
		simulator: allocation.NewSimulator(now, cfg.SessionsPerResourceHint),
		cache:     newReportCache(cfg.PreflightCacheTTL, cfg.PreflightCacheSize),
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *ActivationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ActivationService", operation, attrs...)
}

// PreflightCohort simulates allocation for the cohort without touching any
// stored state. The verdict is advisory: a concurrent activation can win pool
// capacity between this call and a later ActivateCohort.
func (s *ActivationService) PreflightCohort(ctx context.Context, params PreflightParams) (result PreflightResult, err error) {
	if s == nil {
		return PreflightResult{}, fmt.Errorf("ActivationService is nil")
	}

	logger := s.loggerWith(ctx, "PreflightCohort", "cohort_id", params.CohortID, "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "pre-flight failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "pre-flight complete",
			"sessions", result.SessionCount,
			"has_enough_resources", result.Report.HasEnoughResources,
			"shortfall", result.Report.SessionsNeedingResources,
		)
	}()

	cohort, err := s.cohorts.GetCohort(ctx, params.CohortID)
	if err != nil {
		return PreflightResult{}, mapRepoError(err)
	}

	built, err := s.buildSessions(ctx, cohort)
	if err != nil {
		return PreflightResult{}, err
	}
	if built.NoSessions() {
		return PreflightResult{
			CohortID:       cohort.ID,
			SkippedModules: built.SkippedModules,
			NoSessions:     true,
			Report:         allocation.Report{HasEnoughResources: true},
		}, nil
	}

	pool, err := s.pool.ListResources(ctx)
	if err != nil {
		return PreflightResult{}, mapRepoError(err)
	}

	key := fmt.Sprintf("%s/%d/%s", cohort.CurriculumID, len(built.Sessions), poolRevisionKey(cohort.ID, pool))
	if report, ok := s.cache.Get(key); ok {
		return PreflightResult{
			CohortID:       cohort.ID,
			SessionCount:   len(built.Sessions),
			SkippedModules: built.SkippedModules,
			Report:         report,
		}, nil
	}

	report, err := s.simulator.Simulate(ctx, built.Sessions, pool, cohort.ID)
	if err != nil {
		return PreflightResult{}, err
	}
	s.cache.Add(key, report)

	return PreflightResult{
		CohortID:       cohort.ID,
		SessionCount:   len(built.Sessions),
		SkippedModules: built.SkippedModules,
		Report:         report,
	}, nil
}

// ActivateCohort generates the cohort's sessions, persists them, and binds
// meeting resources. Even after a positive pre-flight the allocation result
// is authoritative: callers must inspect Allocation.Unassigned.
func (s *ActivationService) ActivateCohort(ctx context.Context, params ActivateParams) (result ActivationResult, err error) {
	if s == nil {
		return ActivationResult{}, fmt.Errorf("ActivationService is nil")
	}

	logger := s.loggerWith(ctx, "ActivateCohort", "cohort_id", params.CohortID, "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "activation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cohort activated",
			"sessions", len(result.Sessions),
			"assigned", len(result.Allocation.Assigned),
			"unassigned", len(result.Allocation.Unassigned),
		)
	}()

	cohort, err := s.cohorts.GetCohort(ctx, params.CohortID)
	if err != nil {
		return ActivationResult{}, mapRepoError(err)
	}
	if cohort.Status == cohorts.StatusArchived {
		return ActivationResult{}, ErrCohortNotActivatable
	}
	if cohort.Status == cohorts.StatusActive {
		// Re-running activation on a live cohort goes through regeneration so
		// stale reservations are released first.
		return ActivationResult{}, ErrCohortNotActivatable
	}

	result, err = s.activate(ctx, cohort, params.RequireFullCoverage)
	if err != nil {
		return ActivationResult{}, err
	}

	cohort.Status = cohorts.StatusActive
	cohort.UpdatedAt = s.now()
	if err := s.cohorts.UpdateCohort(ctx, cohort); err != nil {
		return ActivationResult{}, mapRepoError(err)
	}

	return result, nil
}

// activate runs generation, the pre-flight gate, persistence, and allocation
// for a cohort. Regeneration reuses it after teardown.
func (s *ActivationService) activate(ctx context.Context, cohort cohorts.Cohort, requireFullCoverage bool) (ActivationResult, error) {
	logger := s.loggerWith(ctx, "activate", "cohort_id", cohort.ID)

	built, err := s.buildSessions(ctx, cohort)
	if err != nil {
		return ActivationResult{}, err
	}
	for _, skipped := range built.SkippedModules {
		logger.WarnContext(ctx, "module skipped", "module_index", skipped.Index, "reason", skipped.Reason)
	}
	if built.NoSessions() {
		return ActivationResult{}, ErrNoSessionsToSchedule
	}

	pool, err := s.pool.ListResources(ctx)
	if err != nil {
		return ActivationResult{}, mapRepoError(err)
	}

	preflight, err := s.simulator.Simulate(ctx, built.Sessions, pool, cohort.ID)
	if err != nil {
		return ActivationResult{}, err
	}
	if requireFullCoverage && !preflight.HasEnoughResources {
		return ActivationResult{}, fmt.Errorf("%w: %d sessions lack a resource", ErrPreflightRejected, preflight.SessionsNeedingResources)
	}

	if err := s.sessions.CreateSessions(ctx, built.Sessions); err != nil {
		return ActivationResult{}, mapRepoError(err)
	}

	allocated, err := s.allocator.Allocate(ctx, built.Sessions, pool, cohort.ID)
	if err != nil {
		return ActivationResult{}, err
	}

	boundAt := s.now()
	byID := make(map[string]int, len(built.Sessions))
	for i := range built.Sessions {
		byID[built.Sessions[i].ID] = i
	}
	for _, assignment := range allocated.Assigned {
		resourceID := assignment.ResourceID
		if err := s.sessions.BindSessionResource(ctx, assignment.SessionID, &resourceID, boundAt); err != nil {
			return ActivationResult{}, mapRepoError(err)
		}
		if i, ok := byID[assignment.SessionID]; ok {
			built.Sessions[i].ResourceID = &resourceID
		}
	}
	for _, sessionID := range allocated.Unassigned {
		logger.WarnContext(ctx, "session has no resource", "session_id", sessionID)
	}

	return ActivationResult{
		CohortID:       cohort.ID,
		Sessions:       built.Sessions,
		SkippedModules: built.SkippedModules,
		Preflight:      preflight,
		Allocation:     allocated,
	}, nil
}

func (s *ActivationService) buildSessions(ctx context.Context, cohort cohorts.Cohort) (sessions.BuildResult, error) {
	cur, err := s.curricula.GetCurriculum(ctx, cohort.CurriculumID)
	if err != nil {
		return sessions.BuildResult{}, mapRepoError(err)
	}
	built, err := s.factory.Build(cur, cohort.Rule, cohort.ID)
	if err != nil {
		return sessions.BuildResult{}, err
	}
	return built, nil
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("record", "violates a storage constraint")
		return vErr
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("record", "references a missing record")
		return vErr
	}
	return err
}
