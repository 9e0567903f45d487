package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/cohort-scheduler/internal/persistence"
	"github.com/example/cohort-scheduler/internal/sessions"
)

const sessionColumns = `id, cohort_id, module_index, session_number,
	lesson_first, lesson_second, title, description, date, start_at, end_at,
	status, resource_id, deleted_at, created_at, updated_at`

// SessionRepository implements persistence.SessionRepository on SQLite.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository returns a repository backed by the given pool.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSessions bulk-inserts the occurrences produced by the factory. The
// batch is a single transaction: either the whole schedule lands or none of
// it does.
func (r *SessionRepository) CreateSessions(ctx context.Context, occurrences []sessions.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO sessions (` + sessionColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("sqlite: prepare session insert: %w", err)
		}
		defer stmt.Close()

		for _, occ := range occurrences {
			if occ.ID == "" {
				return persistence.ErrConstraintViolation
			}
			var resourceID sql.NullString
			if occ.ResourceID != nil {
				resourceID = sql.NullString{String: *occ.ResourceID, Valid: true}
			}
			_, err := stmt.Exec(
				occ.ID,
				occ.CohortID,
				occ.ModuleIndex,
				occ.SessionNumber,
				occ.LessonIndexes[0],
				occ.LessonIndexes[1],
				occ.Title,
				occ.Description,
				formatTime(occ.Date),
				formatTime(occ.Start),
				formatTime(occ.End),
				string(occ.Status),
				resourceID,
				formatTimePtr(occ.DeletedAt),
				formatTime(occ.CreatedAt),
				formatTime(occ.UpdatedAt),
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (sessions.Occurrence, error) {
	row := r.pool.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	return scanSession(row)
}

// ListSessionsForCohort returns a cohort's sessions ordered by start time.
func (r *SessionRepository) ListSessionsForCohort(ctx context.Context, cohortID string, includeDeleted bool) ([]sessions.Occurrence, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE cohort_id = ?"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	query += " ORDER BY start_at ASC, id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, cohortID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	list := make([]sessions.Occurrence, 0)
	for rows.Next() {
		occ, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return list, nil
}

// UpdateSessionStatus transitions a session's lifecycle status.
func (r *SessionRepository) UpdateSessionStatus(ctx context.Context, id string, status sessions.Status, at time.Time) (sessions.Occurrence, error) {
	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?",
		string(status), formatTime(at), id)
	if err != nil {
		return sessions.Occurrence{}, mapError(err)
	}
	if err := requireRowsAffected(result); err != nil {
		return sessions.Occurrence{}, err
	}
	return r.GetSession(ctx, id)
}

// BindSessionResource sets or clears (nil) a session's resource reference.
func (r *SessionRepository) BindSessionResource(ctx context.Context, sessionID string, resourceID *string, at time.Time) error {
	var value sql.NullString
	if resourceID != nil {
		value = sql.NullString{String: *resourceID, Valid: true}
	}
	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE sessions SET resource_id = ?, updated_at = ? WHERE id = ?",
		value, formatTime(at), sessionID)
	if err != nil {
		return mapError(err)
	}
	return requireRowsAffected(result)
}

// SoftDeleteSessionsForCohort tombstones every live session of the cohort and
// reports how many were affected.
func (r *SessionRepository) SoftDeleteSessionsForCohort(ctx context.Context, cohortID string, at time.Time) (int, error) {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, deleted_at = ?, updated_at = ?
		WHERE cohort_id = ? AND deleted_at IS NULL`,
		string(sessions.StatusCancelled), formatTime(at), formatTime(at), cohortID)
	if err != nil {
		return 0, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return int(affected), nil
}

func scanSession(row rowScanner) (sessions.Occurrence, error) {
	var (
		occ                  sessions.Occurrence
		status               string
		resourceID           sql.NullString
		deletedAt            sql.NullString
		date, startAt, endAt string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&occ.ID,
		&occ.CohortID,
		&occ.ModuleIndex,
		&occ.SessionNumber,
		&occ.LessonIndexes[0],
		&occ.LessonIndexes[1],
		&occ.Title,
		&occ.Description,
		&date,
		&startAt,
		&endAt,
		&status,
		&resourceID,
		&deletedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return sessions.Occurrence{}, mapError(err)
	}

	occ.Status = sessions.Status(status)
	if resourceID.Valid {
		id := resourceID.String
		occ.ResourceID = &id
	}
	if occ.DeletedAt, err = parseTimePtr(deletedAt); err != nil {
		return sessions.Occurrence{}, err
	}
	if occ.Date, err = parseTime(date); err != nil {
		return sessions.Occurrence{}, err
	}
	if occ.Start, err = parseTime(startAt); err != nil {
		return sessions.Occurrence{}, err
	}
	if occ.End, err = parseTime(endAt); err != nil {
		return sessions.Occurrence{}, err
	}
	if occ.CreatedAt, err = parseTime(createdAt); err != nil {
		return sessions.Occurrence{}, err
	}
	if occ.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return sessions.Occurrence{}, err
	}
	return occ, nil
}
