// Package cohorts models a group of learners following one curriculum on one
// recurring schedule.
package cohorts

import (
	"time"

	"github.com/example/cohort-scheduler/internal/recurrence"
)

// Status tracks a cohort through its activation lifecycle.
type Status string

const (
	// StatusDraft marks a cohort whose schedule has not been committed.
	StatusDraft Status = "draft"
	// StatusActive marks a cohort with generated sessions. The recurrence
	// rule is immutable from this point on.
	StatusActive Status = "active"
	// StatusArchived marks a cohort no longer running.
	StatusArchived Status = "archived"
)

// Cohort binds a curriculum to a recurrence rule.
type Cohort struct {
	ID           string
	Name         string
	CurriculumID string
	Rule         recurrence.Rule
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
