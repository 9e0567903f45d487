package application

import (
	"context"
	"testing"

	"github.com/example/cohort-scheduler/internal/resources"
	"github.com/example/cohort-scheduler/internal/sessions"
)

func TestLifecycleServiceRelease(t *testing.T) {
	t.Parallel()

	t.Run("releases the bound resource and clears the reference", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)
		ctx := context.Background()

		result, err := h.activation.ActivateCohort(ctx, ActivateParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("ActivateCohort: %v", err)
		}
		target := result.Sessions[0]

		if err := h.lifecycle.Release(ctx, target.ID); err != nil {
			t.Fatalf("Release: %v", err)
		}

		session, err := h.store.GetSession(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if session.ResourceID != nil {
			t.Fatalf("expected resource reference cleared, got %v", *session.ResourceID)
		}
		resource, err := h.store.GetResource(ctx, "link-01")
		if err != nil {
			t.Fatalf("GetResource: %v", err)
		}
		if resource.Status != resources.StatusAvailable || resource.CurrentReservation != nil {
			t.Fatalf("expected resource available, got %+v", resource)
		}
	})

	t.Run("unknown session is a no-op", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)
		if err := h.lifecycle.Release(context.Background(), "ghost"); err != nil {
			t.Fatalf("expected no-op, got %v", err)
		}
	})

	t.Run("session without a bound resource is a no-op", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)
		ctx := context.Background()
		h.setPoolMaintenance(t)

		result, err := h.activation.ActivateCohort(ctx, ActivateParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("ActivateCohort: %v", err)
		}
		if err := h.lifecycle.Release(ctx, result.Sessions[0].ID); err != nil {
			t.Fatalf("expected no-op, got %v", err)
		}
	})

	t.Run("release twice stays idempotent", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)
		ctx := context.Background()

		result, err := h.activation.ActivateCohort(ctx, ActivateParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("ActivateCohort: %v", err)
		}
		if err := h.lifecycle.Release(ctx, result.Sessions[0].ID); err != nil {
			t.Fatalf("first release: %v", err)
		}
		if err := h.lifecycle.Release(ctx, result.Sessions[0].ID); err != nil {
			t.Fatalf("second release: %v", err)
		}
	})
}

func TestLifecycleServiceHandleStatusChange(t *testing.T) {
	t.Parallel()

	t.Run("completion releases the resource", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)
		ctx := context.Background()

		result, err := h.activation.ActivateCohort(ctx, ActivateParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("ActivateCohort: %v", err)
		}
		target := result.Sessions[0]

		if err := h.lifecycle.HandleStatusChange(ctx, target.ID, sessions.StatusCompleted); err != nil {
			t.Fatalf("HandleStatusChange: %v", err)
		}

		session, err := h.store.GetSession(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if session.Status != sessions.StatusCompleted {
			t.Fatalf("expected completed, got %s", session.Status)
		}
		if session.ResourceID != nil {
			t.Fatal("expected resource reference cleared")
		}
	})

	t.Run("postponement keeps the reservation", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)
		ctx := context.Background()

		result, err := h.activation.ActivateCohort(ctx, ActivateParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("ActivateCohort: %v", err)
		}
		target := result.Sessions[2]

		if err := h.lifecycle.HandleStatusChange(ctx, target.ID, sessions.StatusPostponed); err != nil {
			t.Fatalf("HandleStatusChange: %v", err)
		}
		session, err := h.store.GetSession(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetSession: %v", err)
		}
		if session.Status != sessions.StatusPostponed {
			t.Fatalf("expected postponed, got %s", session.Status)
		}
		if session.ResourceID == nil {
			t.Fatal("expected resource reference kept")
		}
	})

	t.Run("unknown session is a no-op", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)
		if err := h.lifecycle.HandleStatusChange(context.Background(), "ghost", sessions.StatusCancelled); err != nil {
			t.Fatalf("expected no-op, got %v", err)
		}
	})
}

func TestLifecycleServiceRegenerateCohort(t *testing.T) {
	t.Parallel()

	t.Run("tears down and rebuilds with the same resource pool", func(t *testing.T) {
		t.Parallel()
		// A single resource pool proves release precedes re-allocation: the
		// new run re-reserves the same intervals the old run held, which only
		// works if the old reservations were vacated first.
		h := newActivationHarness(t, 1, 1)
		ctx := context.Background()

		first, err := h.activation.ActivateCohort(ctx, ActivateParams{CohortID: "cohort-1"})
		if err != nil {
			t.Fatalf("ActivateCohort: %v", err)
		}
		if !first.Allocation.FullyAssigned() {
			t.Fatalf("first run unassigned: %v", first.Allocation.Unassigned)
		}

		second, err := h.lifecycle.RegenerateCohort(ctx, Principal{UserID: "ops"}, "cohort-1")
		if err != nil {
			t.Fatalf("RegenerateCohort: %v", err)
		}
		if !second.Allocation.FullyAssigned() {
			t.Fatalf("regenerated run unassigned: %v", second.Allocation.Unassigned)
		}
		if len(second.Sessions) != len(first.Sessions) {
			t.Fatalf("session count changed: %d vs %d", len(first.Sessions), len(second.Sessions))
		}
		for i := range second.Sessions {
			if !second.Sessions[i].Date.Equal(first.Sessions[i].Date) {
				t.Fatalf("session %d date changed: %v vs %v", i, first.Sessions[i].Date, second.Sessions[i].Date)
			}
		}

		// Originals are tombstoned, replacements are live.
		all, err := h.store.ListSessionsForCohort(ctx, "cohort-1", true)
		if err != nil {
			t.Fatalf("ListSessionsForCohort: %v", err)
		}
		live, err := h.store.ListSessionsForCohort(ctx, "cohort-1", false)
		if err != nil {
			t.Fatalf("ListSessionsForCohort: %v", err)
		}
		if len(all) != 2*len(first.Sessions) || len(live) != len(first.Sessions) {
			t.Fatalf("expected %d total / %d live, got %d / %d", 2*len(first.Sessions), len(first.Sessions), len(all), len(live))
		}
		for _, session := range all {
			if session.DeletedAt != nil && session.Status != sessions.StatusCancelled {
				t.Fatalf("tombstoned session %s not cancelled: %s", session.ID, session.Status)
			}
		}
	})

	t.Run("regeneration twice yields the same schedule", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 2, 2)
		ctx := context.Background()

		if _, err := h.activation.ActivateCohort(ctx, ActivateParams{CohortID: "cohort-1"}); err != nil {
			t.Fatalf("ActivateCohort: %v", err)
		}
		first, err := h.lifecycle.RegenerateCohort(ctx, Principal{UserID: "ops"}, "cohort-1")
		if err != nil {
			t.Fatalf("first RegenerateCohort: %v", err)
		}
		second, err := h.lifecycle.RegenerateCohort(ctx, Principal{UserID: "ops"}, "cohort-1")
		if err != nil {
			t.Fatalf("second RegenerateCohort: %v", err)
		}

		if len(first.Sessions) != len(second.Sessions) {
			t.Fatalf("session counts differ: %d vs %d", len(first.Sessions), len(second.Sessions))
		}
		boundFirst, boundSecond := 0, 0
		for i := range first.Sessions {
			if !first.Sessions[i].Date.Equal(second.Sessions[i].Date) {
				t.Fatalf("session %d dates differ: %v vs %v", i, first.Sessions[i].Date, second.Sessions[i].Date)
			}
			if first.Sessions[i].ResourceID != nil {
				boundFirst++
			}
			if second.Sessions[i].ResourceID != nil {
				boundSecond++
			}
		}
		if boundFirst != boundSecond {
			t.Fatalf("bound resource counts differ: %d vs %d", boundFirst, boundSecond)
		}
	})

	t.Run("unknown cohort maps to not found", func(t *testing.T) {
		t.Parallel()
		h := newActivationHarness(t, 1, 1)
		if _, err := h.lifecycle.RegenerateCohort(context.Background(), Principal{UserID: "ops"}, "ghost"); err == nil {
			t.Fatal("expected error for unknown cohort")
		}
	})
}
