package application

import (
	"time"

	"github.com/example/cohort-scheduler/internal/allocation"
	"github.com/example/cohort-scheduler/internal/resources"
	"github.com/example/cohort-scheduler/internal/sessions"
)

// Principal represents the authenticated operator invoking a service method.
// Authentication itself lives outside this core; services only consult the
// flags carried here.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// PreflightParams wraps the data required to simulate a cohort's allocation.
type PreflightParams struct {
	Principal Principal
	CohortID  string
}

// ActivateParams wraps the data required to activate a cohort.
type ActivateParams struct {
	Principal Principal
	CohortID  string
	// RequireFullCoverage makes a pre-flight shortage fatal. When false the
	// activation proceeds best-effort and reports unassigned sessions.
	RequireFullCoverage bool
}

// ActivationResult is the batch outcome of a cohort activation.
type ActivationResult struct {
	CohortID       string
	Sessions       []sessions.Occurrence
	SkippedModules []sessions.SkippedModule
	Preflight      allocation.Report
	Allocation     allocation.Result
}

// ResourceInput captures caller provided meeting resource fields.
type ResourceInput struct {
	Name        string
	Platform    string
	Credentials string
}

// CreateResourceParams wraps the data required to add a pool resource.
type CreateResourceParams struct {
	Principal Principal
	Input     ResourceInput
}

// UpdateResourceParams wraps the data required to update a pool resource.
type UpdateResourceParams struct {
	Principal  Principal
	ResourceID string
	Input      ResourceInput
}

// SetMaintenanceParams wraps the data required to toggle maintenance state.
type SetMaintenanceParams struct {
	Principal   Principal
	ResourceID  string
	Maintenance bool
}

// ResourceView is a resource as surfaced to operators, with credentials
// unsealed only for administrators.
type ResourceView struct {
	ID                 string
	Name               string
	Platform           string
	Credentials        string
	Status             resources.Status
	CurrentReservation *resources.Reservation
	UpdatedAt          time.Time
}
