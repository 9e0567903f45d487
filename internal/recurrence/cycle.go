// Package recurrence expands a cohort's weekly recurrence rule into the
// ordered sequence of calendar dates its sessions occupy.
package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// MaxWeekdays bounds the number of distinct weekdays a rule may select.
const MaxWeekdays = 3

// TimeOfDay is a wall-clock time within a day. All schedule times are
// interpreted in one fixed location; no timezone conversion is performed.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// On anchors the time of day to the supplied date in the given location.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
}

// Minutes returns the offset from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// MinutesOfDay constructs a TimeOfDay from a minutes-from-midnight offset.
func MinutesOfDay(minutes int) TimeOfDay {
	return TimeOfDay{Hour: minutes / 60, Minute: minutes % 60}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Rule describes the weekly repeating pattern driving session generation:
// a start date, one to three weekdays, and the daily session window.
// A rule is immutable once its cohort has been activated.
type Rule struct {
	StartDate  time.Time
	Weekdays   []time.Weekday
	DailyStart TimeOfDay
	DailyEnd   TimeOfDay
}

var (
	// ErrNoWeekdays indicates the rule selects no weekdays.
	ErrNoWeekdays = errors.New("recurrence: rule selects no weekdays")
	// ErrTooManyWeekdays indicates the rule selects more weekdays than supported.
	ErrTooManyWeekdays = errors.New("recurrence: rule selects more than three weekdays")
	// ErrDuplicateWeekday indicates the rule lists the same weekday twice.
	ErrDuplicateWeekday = errors.New("recurrence: rule lists a duplicate weekday")
	// ErrStartNotOnWeekday indicates the start date does not fall on a selected weekday.
	ErrStartNotOnWeekday = errors.New("recurrence: start date must fall on one of the selected weekdays")
	// ErrInvalidDailyWindow indicates the daily window does not start before it ends.
	ErrInvalidDailyWindow = errors.New("recurrence: daily window start must be before end")
	// ErrMissingStartDate indicates the rule has no start date.
	ErrMissingStartDate = errors.New("recurrence: start date is required")
)

// Validate reports the first configuration error in the rule. Rules are
// rejected before any generation begins, so no partial state is created.
func (r Rule) Validate() error {
	if r.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	if len(r.Weekdays) == 0 {
		return ErrNoWeekdays
	}
	if len(r.Weekdays) > MaxWeekdays {
		return ErrTooManyWeekdays
	}
	seen := make(map[time.Weekday]struct{}, len(r.Weekdays))
	for _, day := range r.Weekdays {
		if _, ok := seen[day]; ok {
			return ErrDuplicateWeekday
		}
		seen[day] = struct{}{}
	}
	if _, ok := seen[r.StartDate.Weekday()]; !ok {
		return ErrStartNotOnWeekday
	}
	if r.DailyStart.Minutes() >= r.DailyEnd.Minutes() {
		return ErrInvalidDailyWindow
	}
	return nil
}

// Generator expands rules into concrete dates, normalized to midnight in its
// location.
type Generator struct {
	location *time.Location
}

// NewGenerator constructs a Generator anchored to the provided location.
// A nil location defaults to UTC.
func NewGenerator(loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{location: loc}
}

// Location returns the location dates are generated in.
func (g *Generator) Location() *time.Location {
	if g == nil || g.location == nil {
		return time.UTC
	}
	return g.location
}

// Generate returns exactly count dates satisfying the rule, earliest first.
//
// The weekday cycle is the rule's weekdays sorted ascending. The start date is
// shifted forward to the first date whose weekday matches the cycle's first
// entry; occurrence i then lands weeksElapsed(i) weeks after that anchor, on
// the cycle weekday for i. The computation is pure and deterministic: the
// allocator and the pre-flight simulator both consume dates from this exact
// algorithm so their orderings agree.
func (g *Generator) Generate(rule Rule, count int) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("recurrence: count must not be negative, got %d", count)
	}
	if count == 0 {
		return []time.Time{}, nil
	}

	loc := g.Location()
	cycle := slices.Clone(rule.Weekdays)
	slices.Sort(cycle)
	k := len(cycle)

	anchor := midnight(rule.StartDate, loc)
	anchor = anchor.AddDate(0, 0, dayOffset(anchor.Weekday(), cycle[0]))

	dates := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		weeksElapsed := i / k
		dayInCycle := i % k
		date := anchor.AddDate(0, 0, weeksElapsed*7+dayOffset(cycle[0], cycle[dayInCycle]))
		dates = append(dates, date)
	}
	return dates, nil
}

// dayOffset is the circular forward distance in days from weekday a to b.
func dayOffset(a, b time.Weekday) int {
	return (int(b) - int(a) + 7) % 7
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
