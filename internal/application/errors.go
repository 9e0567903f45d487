package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a record with the same identity exists.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrCohortNotActivatable is returned when activation is requested for a
	// cohort that is not in a state that permits it.
	ErrCohortNotActivatable = errors.New("application: cohort cannot be activated")
	// ErrNoSessionsToSchedule is returned when a curriculum yields no valid
	// modules, so there is nothing to activate.
	ErrNoSessionsToSchedule = errors.New("application: curriculum has no sessions to schedule")
	// ErrPreflightRejected is returned when activation requires full coverage
	// and the pre-flight simulation reports a shortage.
	ErrPreflightRejected = errors.New("application: pre-flight simulation reported a resource shortage")
)

// ValidationError captures field level validation issues that callers can
// surface to operators.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
