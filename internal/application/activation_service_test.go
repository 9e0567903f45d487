package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/cohort-scheduler/internal/cohorts"
	"github.com/example/cohort-scheduler/internal/persistence/memory"
	"github.com/example/cohort-scheduler/internal/recurrence"
	"github.com/example/cohort-scheduler/internal/resources"
	"github.com/example/cohort-scheduler/internal/sessions"
	"github.com/example/cohort-scheduler/internal/testfixtures"
)

type activationHarness struct {
	store      *memory.Store
	clock      *testfixtures.Clock
	activation *ActivationService
	lifecycle  *LifecycleService
}

func newActivationHarness(t *testing.T, moduleCount, poolSize int) *activationHarness {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator("id")

	cur := testfixtures.Curriculum("curriculum-1", moduleCount)
	if err := store.CreateCurriculum(ctx, cur); err != nil {
		t.Fatalf("seed curriculum: %v", err)
	}
	if err := store.CreateCohort(ctx, testfixtures.DraftCohort("cohort-1", "curriculum-1")); err != nil {
		t.Fatalf("seed cohort: %v", err)
	}
	for _, resource := range testfixtures.Pool(poolSize) {
		if err := store.CreateResource(ctx, resource); err != nil {
			t.Fatalf("seed resource: %v", err)
		}
	}

	factory := sessions.NewFactory(recurrence.NewGenerator(time.UTC), ids.NextFunc(), clock.NowFunc())
	activation := NewActivationService(store, store, store, store, factory, ActivationConfig{}, clock.NowFunc(), nil)
	lifecycle := NewLifecycleService(store, store, store, activation, clock.NowFunc(), nil)
	return &activationHarness{store: store, clock: clock, activation: activation, lifecycle: lifecycle}
}

func (h *activationHarness) setPoolMaintenance(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	pool, err := h.store.ListResources(ctx)
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	for _, resource := range pool {
		resource.Status = resources.StatusMaintenance
		if err := h.store.UpdateResource(ctx, resource); err != nil {
			t.Fatalf("UpdateResource: %v", err)
		}
	}
}

func TestActivationServicePreflightCohort(t *testing.T) {
	t.Parallel()

	t.Run("reports enough resources for a disjoint schedule", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 2, 2)

		result, err := h.activation.PreflightCohort(context.Background(), PreflightParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("PreflightCohort: %v", err)
		}
		if result.SessionCount != 6 {
			t.Fatalf("expected 6 sessions, got %d", result.SessionCount)
		}
		if !result.Report.HasEnoughResources {
			t.Fatalf("expected enough resources: %+v", result.Report)
		}
		if result.Report.MinimumResourcesRequired != 2 {
			t.Fatalf("expected heuristic 2, got %d", result.Report.MinimumResourcesRequired)
		}
	})

	t.Run("reports exact shortage when the pool is down", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 2, 1)
		h.setPoolMaintenance(t)

		result, err := h.activation.PreflightCohort(context.Background(), PreflightParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("PreflightCohort: %v", err)
		}
		if result.Report.HasEnoughResources {
			t.Fatal("expected shortage")
		}
		if result.Report.SessionsNeedingResources != 6 {
			t.Fatalf("expected 6 sessions needing resources, got %d", result.Report.SessionsNeedingResources)
		}
		if len(result.Report.UnassignedSessionIDs) != 6 {
			t.Fatalf("expected 6 unassigned ids, got %d", len(result.Report.UnassignedSessionIDs))
		}
	})

	t.Run("simulation leaves the stored pool untouched", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 2, 2)

		if _, err := h.activation.PreflightCohort(context.Background(), PreflightParams{CohortID: "cohort-1"}); err != nil {
			t.Fatalf("PreflightCohort: %v", err)
		}
		pool, err := h.store.ListResources(context.Background())
		if err != nil {
			t.Fatalf("ListResources: %v", err)
		}
		for _, resource := range pool {
			if resource.Status != resources.StatusAvailable || resource.CurrentReservation != nil {
				t.Fatalf("pre-flight mutated stored resource: %+v", resource)
			}
		}
	})

	t.Run("curriculum with no valid modules yields explicit empty result", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 0, 1)

		result, err := h.activation.PreflightCohort(context.Background(), PreflightParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("PreflightCohort: %v", err)
		}
		if !result.NoSessions {
			t.Fatal("expected NoSessions result")
		}
	})

	t.Run("unknown cohort maps to not found", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)

		if _, err := h.activation.PreflightCohort(context.Background(), PreflightParams{CohortID: "ghost"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("repeated pre-flight is idempotent", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 2, 2)

		first, err := h.activation.PreflightCohort(context.Background(), PreflightParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("PreflightCohort: %v", err)
		}
		second, err := h.activation.PreflightCohort(context.Background(), PreflightParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("PreflightCohort: %v", err)
		}
		if first.Report.HasEnoughResources != second.Report.HasEnoughResources ||
			first.Report.SessionsNeedingResources != second.Report.SessionsNeedingResources ||
			first.SessionCount != second.SessionCount {
			t.Fatalf("pre-flight diverged: %+v vs %+v", first, second)
		}
	})
}

func TestActivationServiceActivateCohort(t *testing.T) {
	t.Parallel()

	t.Run("persists sessions and binds resources", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 2, 2)

		result, err := h.activation.ActivateCohort(context.Background(), ActivateParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("ActivateCohort: %v", err)
		}
		if len(result.Sessions) != 6 {
			t.Fatalf("expected 6 sessions, got %d", len(result.Sessions))
		}
		if !result.Allocation.FullyAssigned() {
			t.Fatalf("expected full assignment, unassigned: %v", result.Allocation.Unassigned)
		}

		stored, err := h.store.ListSessionsForCohort(context.Background(), "cohort-1", false)
		if err != nil {
			t.Fatalf("ListSessionsForCohort: %v", err)
		}
		if len(stored) != 6 {
			t.Fatalf("expected 6 stored sessions, got %d", len(stored))
		}
		for _, session := range stored {
			if session.ResourceID == nil {
				t.Fatalf("session %s has no bound resource", session.ID)
			}
		}

		cohort, err := h.store.GetCohort(context.Background(), "cohort-1")
		if err != nil {
			t.Fatalf("GetCohort: %v", err)
		}
		if cohort.Status != cohorts.StatusActive {
			t.Fatalf("expected active cohort, got %s", cohort.Status)
		}
	})

	t.Run("rejects re-activation of an active cohort", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)

		if _, err := h.activation.ActivateCohort(context.Background(), ActivateParams{CohortID: "cohort-1"}); err != nil {
			t.Fatalf("first activation: %v", err)
		}
		if _, err := h.activation.ActivateCohort(context.Background(), ActivateParams{CohortID: "cohort-1"}); !errors.Is(err, ErrCohortNotActivatable) {
			t.Fatalf("expected ErrCohortNotActivatable, got %v", err)
		}
	})

	t.Run("full coverage policy rejects shortage before creating state", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 2, 1)
		h.setPoolMaintenance(t)

		_, err := h.activation.ActivateCohort(context.Background(), ActivateParams{CohortID: "cohort-1", RequireFullCoverage: true})
		if !errors.Is(err, ErrPreflightRejected) {
			t.Fatalf("expected ErrPreflightRejected, got %v", err)
		}
		stored, err := h.store.ListSessionsForCohort(context.Background(), "cohort-1", true)
		if err != nil {
			t.Fatalf("ListSessionsForCohort: %v", err)
		}
		if len(stored) != 0 {
			t.Fatalf("expected no persisted sessions after rejection, got %d", len(stored))
		}
	})

	t.Run("best effort activation tolerates shortage", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)
		h.setPoolMaintenance(t)

		result, err := h.activation.ActivateCohort(context.Background(), ActivateParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("ActivateCohort: %v", err)
		}
		if len(result.Allocation.Unassigned) != 3 {
			t.Fatalf("expected 3 unassigned sessions, got %v", result.Allocation.Unassigned)
		}
		stored, err := h.store.ListSessionsForCohort(context.Background(), "cohort-1", false)
		if err != nil {
			t.Fatalf("ListSessionsForCohort: %v", err)
		}
		for _, session := range stored {
			if session.ResourceID != nil {
				t.Fatalf("session %s unexpectedly bound", session.ID)
			}
		}
	})

	t.Run("empty curriculum is not activatable", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 0, 1)

		if _, err := h.activation.ActivateCohort(context.Background(), ActivateParams{CohortID: "cohort-1"}); !errors.Is(err, ErrNoSessionsToSchedule) {
			t.Fatalf("expected ErrNoSessionsToSchedule, got %v", err)
		}
	})

	t.Run("invalid rule fails with configuration error before any state", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)

		cohort, err := h.store.GetCohort(context.Background(), "cohort-1")
		if err != nil {
			t.Fatalf("GetCohort: %v", err)
		}
		cohort.Rule.Weekdays = []time.Weekday{time.Wednesday} // Monday start no longer listed
		if err := h.store.UpdateCohort(context.Background(), cohort); err != nil {
			t.Fatalf("UpdateCohort: %v", err)
		}

		_, err = h.activation.ActivateCohort(context.Background(), ActivateParams{CohortID: "cohort-1"})
		if !errors.Is(err, recurrence.ErrStartNotOnWeekday) {
			t.Fatalf("expected ErrStartNotOnWeekday, got %v", err)
		}
		stored, err := h.store.ListSessionsForCohort(context.Background(), "cohort-1", true)
		if err != nil {
			t.Fatalf("ListSessionsForCohort: %v", err)
		}
		if len(stored) != 0 {
			t.Fatalf("expected no sessions after configuration error, got %d", len(stored))
		}
	})
}
