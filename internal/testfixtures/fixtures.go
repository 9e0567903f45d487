// Package testfixtures provides deterministic clocks, identifier generators,
// and domain fixtures shared by service and persistence tests.
package testfixtures

import (
	"fmt"
	"time"

	"github.com/example/cohort-scheduler/internal/cohorts"
	"github.com/example/cohort-scheduler/internal/curriculum"
	"github.com/example/cohort-scheduler/internal/recurrence"
	"github.com/example/cohort-scheduler/internal/resources"
)

// SixLessonModule builds a schedulable module with the required lesson count.
func SixLessonModule(title string) curriculum.Module {
	module := curriculum.Module{ID: "module-" + title, Title: title}
	for i := 0; i < 6; i++ {
		module.Lessons = append(module.Lessons, curriculum.LessonUnit{
			ID:    fmt.Sprintf("lesson-%s-%d", title, i+1),
			Title: fmt.Sprintf("%s lesson %d", title, i+1),
		})
	}
	return module
}

// Curriculum builds a curriculum of n six-lesson modules.
func Curriculum(id string, moduleCount int) curriculum.Curriculum {
	cur := curriculum.Curriculum{ID: id, Title: "Curriculum " + id}
	for i := 0; i < moduleCount; i++ {
		cur.Modules = append(cur.Modules, SixLessonModule(fmt.Sprintf("M%d", i+1)))
	}
	return cur
}

// MondayWednesdayRule is the canonical two-day weekly rule starting on
// Monday 2024-01-01 with a 10:00-11:00 window.
func MondayWednesdayRule() recurrence.Rule {
	return recurrence.Rule{
		StartDate:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Weekdays:   []time.Weekday{time.Monday, time.Wednesday},
		DailyStart: recurrence.TimeOfDay{Hour: 10},
		DailyEnd:   recurrence.TimeOfDay{Hour: 11},
	}
}

// DraftCohort builds a draft cohort bound to the given curriculum.
func DraftCohort(id, curriculumID string) cohorts.Cohort {
	return cohorts.Cohort{
		ID:           id,
		Name:         "Cohort " + id,
		CurriculumID: curriculumID,
		Rule:         MondayWednesdayRule(),
		Status:       cohorts.StatusDraft,
		CreatedAt:    ReferenceTime(),
		UpdatedAt:    ReferenceTime(),
	}
}

// Pool builds n available meeting resources with stable ordered identifiers.
func Pool(n int) []resources.MeetingResource {
	pool := make([]resources.MeetingResource, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, resources.MeetingResource{
			ID:        fmt.Sprintf("link-%02d", i+1),
			Name:      fmt.Sprintf("Link %02d", i+1),
			Platform:  "zoom",
			Status:    resources.StatusAvailable,
			CreatedAt: ReferenceTime(),
			UpdatedAt: ReferenceTime(),
		})
	}
	return pool
}
