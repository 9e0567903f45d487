package sqlite

import (
	"context"
	"time"

	"github.com/example/cohort-scheduler/internal/cohorts"
	"github.com/example/cohort-scheduler/internal/persistence"
	"github.com/example/cohort-scheduler/internal/recurrence"
)

const cohortColumns = `id, name, curriculum_id, rule_start_date,
	rule_weekdays, rule_daily_start, rule_daily_end, status, created_at,
	updated_at`

// CohortRepository implements persistence.CohortRepository on SQLite. The
// recurrence rule is flattened into columns: the weekday set as a bitmask and
// the daily window as minutes from midnight.
type CohortRepository struct {
	pool *ConnectionPool
}

// NewCohortRepository returns a repository backed by the given pool.
func NewCohortRepository(pool *ConnectionPool) *CohortRepository {
	return &CohortRepository{pool: pool}
}

// CreateCohort stores a new cohort.
func (r *CohortRepository) CreateCohort(ctx context.Context, cohort cohorts.Cohort) error {
	if cohort.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO cohorts (`+cohortColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cohort.ID,
		cohort.Name,
		cohort.CurriculumID,
		formatTime(cohort.Rule.StartDate),
		encodeWeekdays(cohort.Rule.Weekdays),
		cohort.Rule.DailyStart.Minutes(),
		cohort.Rule.DailyEnd.Minutes(),
		string(cohort.Status),
		formatTime(cohort.CreatedAt),
		formatTime(cohort.UpdatedAt),
	)
	return mapError(err)
}

// UpdateCohort replaces an existing cohort record.
func (r *CohortRepository) UpdateCohort(ctx context.Context, cohort cohorts.Cohort) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE cohorts
		SET name = ?, curriculum_id = ?, rule_start_date = ?, rule_weekdays = ?,
			rule_daily_start = ?, rule_daily_end = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		cohort.Name,
		cohort.CurriculumID,
		formatTime(cohort.Rule.StartDate),
		encodeWeekdays(cohort.Rule.Weekdays),
		cohort.Rule.DailyStart.Minutes(),
		cohort.Rule.DailyEnd.Minutes(),
		string(cohort.Status),
		formatTime(cohort.UpdatedAt),
		cohort.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowsAffected(result)
}

// GetCohort retrieves a cohort by ID.
func (r *CohortRepository) GetCohort(ctx context.Context, id string) (cohorts.Cohort, error) {
	row := r.pool.db.QueryRowContext(ctx,
		"SELECT "+cohortColumns+" FROM cohorts WHERE id = ?", id)
	return scanCohort(row)
}

// ListCohorts returns all cohorts ordered by ID.
func (r *CohortRepository) ListCohorts(ctx context.Context) ([]cohorts.Cohort, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT "+cohortColumns+" FROM cohorts ORDER BY id ASC")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	list := make([]cohorts.Cohort, 0)
	for rows.Next() {
		cohort, err := scanCohort(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, cohort)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return list, nil
}

func scanCohort(row rowScanner) (cohorts.Cohort, error) {
	var (
		cohort               cohorts.Cohort
		status               string
		startDate            string
		weekdayMask          int64
		dailyStart, dailyEnd int
		createdAt, updatedAt string
	)
	err := row.Scan(
		&cohort.ID,
		&cohort.Name,
		&cohort.CurriculumID,
		&startDate,
		&weekdayMask,
		&dailyStart,
		&dailyEnd,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return cohorts.Cohort{}, mapError(err)
	}

	cohort.Status = cohorts.Status(status)
	cohort.Rule.Weekdays = decodeWeekdays(weekdayMask)
	cohort.Rule.DailyStart = recurrence.MinutesOfDay(dailyStart)
	cohort.Rule.DailyEnd = recurrence.MinutesOfDay(dailyEnd)
	if cohort.Rule.StartDate, err = parseTime(startDate); err != nil {
		return cohorts.Cohort{}, err
	}
	if cohort.CreatedAt, err = parseTime(createdAt); err != nil {
		return cohorts.Cohort{}, err
	}
	if cohort.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return cohorts.Cohort{}, err
	}
	return cohort, nil
}

func encodeWeekdays(weekdays []time.Weekday) int64 {
	var mask int64
	for _, day := range weekdays {
		if day >= time.Sunday && day <= time.Saturday {
			mask |= 1 << uint(day)
		}
	}
	return mask
}

func decodeWeekdays(mask int64) []time.Weekday {
	var weekdays []time.Weekday
	for day := time.Sunday; day <= time.Saturday; day++ {
		if mask&(1<<uint(day)) != 0 {
			weekdays = append(weekdays, day)
		}
	}
	return weekdays
}
