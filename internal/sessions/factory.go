// Package sessions builds the ordered session occurrences for a cohort by
// mapping curriculum modules onto the dates emitted by the recurrence cycle.
package sessions

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/cohort-scheduler/internal/curriculum"
	"github.com/example/cohort-scheduler/internal/recurrence"
)

// Status tracks a session occurrence through its lifecycle.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusPostponed Status = "postponed"
)

const (
	// LessonsPerModule is the lesson count a module must have to be scheduled.
	LessonsPerModule = 6
	// SessionsPerModule is the number of sessions a valid module yields.
	SessionsPerModule = 3
)

// lessonPairs fixes how a module's six lessons fold into three sessions.
var lessonPairs = [SessionsPerModule][2]int{{0, 1}, {2, 3}, {4, 5}}

// Occurrence is one scheduled session of a cohort.
type Occurrence struct {
	ID            string
	CohortID      string
	ModuleIndex   int
	SessionNumber int // 1..SessionsPerModule within the module
	LessonIndexes [2]int
	Title         string
	Description   string
	Date          time.Time
	Start         time.Time
	End           time.Time
	Status        Status
	ResourceID    *string
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SkippedModule records a module excluded from scheduling and why.
type SkippedModule struct {
	Index  int
	Reason string
}

// BuildResult is the full outcome of a factory run. SkippedModules carries
// data-quality warnings; an empty Sessions slice with no error means the
// curriculum had nothing schedulable and the caller decides whether that is
// fatal for the cohort.
type BuildResult struct {
	Sessions       []Occurrence
	SkippedModules []SkippedModule
}

// NoSessions reports whether the run produced nothing to schedule.
func (r BuildResult) NoSessions() bool {
	return len(r.Sessions) == 0
}

// Factory pairs curriculum lessons into sessions and assigns them dates.
type Factory struct {
	generator   *recurrence.Generator
	idGenerator func() string
	now         func() time.Time
}

// NewFactory wires the factory's collaborators. A nil generator defaults to
// UTC; a nil idGenerator yields empty identifiers for callers that assign
// their own.
func NewFactory(generator *recurrence.Generator, idGenerator func() string, now func() time.Time) *Factory {
	if generator == nil {
		generator = recurrence.NewGenerator(nil)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &Factory{generator: generator, idGenerator: idGenerator, now: now}
}

// Build maps the curriculum onto the rule's calendar cycle.
//
// Each module with exactly six lessons yields three sessions pairing
// consecutive lessons; any other lesson count records the module in
// SkippedModules and contributes zero sessions without consuming a calendar
// slot. Dates are consumed in module order, session-number order, so the
// first valid module's first session receives the earliest date.
func (f *Factory) Build(cur curriculum.Curriculum, rule recurrence.Rule, cohortID string) (BuildResult, error) {
	if err := rule.Validate(); err != nil {
		return BuildResult{}, err
	}

	valid := make([]int, 0, len(cur.Modules))
	skipped := make([]SkippedModule, 0)
	for i, module := range cur.Modules {
		if len(module.Lessons) != LessonsPerModule {
			skipped = append(skipped, SkippedModule{
				Index:  i,
				Reason: fmt.Sprintf("module has %d lessons, expected %d", len(module.Lessons), LessonsPerModule),
			})
			continue
		}
		valid = append(valid, i)
	}

	if len(valid) == 0 {
		return BuildResult{Sessions: []Occurrence{}, SkippedModules: skipped}, nil
	}

	dates, err := f.generator.Generate(rule, len(valid)*SessionsPerModule)
	if err != nil {
		return BuildResult{}, err
	}

	loc := f.generator.Location()
	createdAt := f.now()
	occurrences := make([]Occurrence, 0, len(dates))
	slot := 0
	for _, moduleIndex := range valid {
		module := cur.Modules[moduleIndex]
		for sessionNumber := 1; sessionNumber <= SessionsPerModule; sessionNumber++ {
			pair := lessonPairs[sessionNumber-1]
			date := dates[slot]
			slot++

			occurrences = append(occurrences, Occurrence{
				ID:            f.idGenerator(),
				CohortID:      cohortID,
				ModuleIndex:   moduleIndex,
				SessionNumber: sessionNumber,
				LessonIndexes: pair,
				Title:         sessionTitle(module, pair),
				Description:   sessionDescription(module, pair),
				Date:          date,
				Start:         rule.DailyStart.On(date, loc),
				End:           rule.DailyEnd.On(date, loc),
				Status:        StatusScheduled,
				CreatedAt:     createdAt,
				UpdatedAt:     createdAt,
			})
		}
	}

	return BuildResult{Sessions: occurrences, SkippedModules: skipped}, nil
}

func sessionTitle(module curriculum.Module, pair [2]int) string {
	titles := make([]string, 0, 2)
	for _, idx := range pair {
		lesson := strings.TrimSpace(module.Lessons[idx].Title)
		if lesson != "" {
			titles = append(titles, lesson)
		}
	}
	if len(titles) == 0 {
		return strings.TrimSpace(module.Title)
	}
	return fmt.Sprintf("%s: %s", strings.TrimSpace(module.Title), strings.Join(titles, " / "))
}

func sessionDescription(module curriculum.Module, pair [2]int) string {
	// Lesson numbers are 1-based in everything surfaced to operators.
	return fmt.Sprintf("Covers lessons %d-%d of %s", pair[0]+1, pair[1]+1, strings.TrimSpace(module.Title))
}
