package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/cohort-scheduler/internal/persistence"
	"github.com/example/cohort-scheduler/internal/resources"
)

const resourceColumns = `id, name, platform, credentials, status,
	reservation_session_id, reservation_cohort_id, reservation_start,
	reservation_end, reservation_reserved_at, version, created_at, updated_at`

// ResourceRepository implements persistence.ResourceRepository on SQLite.
type ResourceRepository struct {
	pool *ConnectionPool
}

// NewResourceRepository returns a repository backed by the given pool.
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{pool: pool}
}

// CreateResource inserts a new meeting resource.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource resources.MeetingResource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}

	reservation := reservationColumns(resource.CurrentReservation)
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO resources (`+resourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resource.ID,
		resource.Name,
		resource.Platform,
		resource.Credentials,
		string(resource.Status),
		reservation.sessionID,
		reservation.cohortID,
		reservation.start,
		reservation.end,
		reservation.reservedAt,
		resource.Version,
		formatTime(resource.CreatedAt),
		formatTime(resource.UpdatedAt),
	)
	return mapError(err)
}

// UpdateResource replaces an existing resource record.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource resources.MeetingResource) error {
	reservation := reservationColumns(resource.CurrentReservation)
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE resources
		SET name = ?, platform = ?, credentials = ?, status = ?,
			reservation_session_id = ?, reservation_cohort_id = ?,
			reservation_start = ?, reservation_end = ?, reservation_reserved_at = ?,
			version = ?, updated_at = ?
		WHERE id = ?`,
		resource.Name,
		resource.Platform,
		resource.Credentials,
		string(resource.Status),
		reservation.sessionID,
		reservation.cohortID,
		reservation.start,
		reservation.end,
		reservation.reservedAt,
		resource.Version,
		formatTime(resource.UpdatedAt),
		resource.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowsAffected(result)
}

// GetResource retrieves a resource by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (resources.MeetingResource, error) {
	row := r.pool.db.QueryRowContext(ctx,
		"SELECT "+resourceColumns+" FROM resources WHERE id = ?", id)
	return scanResource(row)
}

// ListResources returns the pool ordered ascending by ID.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]resources.MeetingResource, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT "+resourceColumns+" FROM resources ORDER BY id ASC")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	pool := make([]resources.MeetingResource, 0)
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		pool = append(pool, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return pool, nil
}

// DeleteResource removes a resource from the pool.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	return requireRowsAffected(result)
}

// Reserve writes a reservation guarded by an optimistic version check. The
// conditional UPDATE is the serialization point: of two racing writers only
// one matches the stored version, the other gets ErrVersionConflict.
func (r *ResourceRepository) Reserve(ctx context.Context, resourceID string, reservation resources.Reservation, expectedVersion int64) (resources.MeetingResource, error) {
	var updated resources.MeetingResource
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var stored int64
		err := tx.QueryRow("SELECT version FROM resources WHERE id = ?", resourceID).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrNotFound
		}
		if err != nil {
			return mapError(err)
		}
		if stored != expectedVersion {
			return persistence.ErrVersionConflict
		}

		result, err := tx.Exec(`
			UPDATE resources
			SET status = ?, reservation_session_id = ?, reservation_cohort_id = ?,
				reservation_start = ?, reservation_end = ?, reservation_reserved_at = ?,
				version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			string(resources.StatusReserved),
			reservation.SessionID,
			reservation.CohortID,
			formatTime(reservation.Start),
			formatTime(reservation.End),
			formatTime(reservation.ReservedAt),
			formatTime(reservation.ReservedAt),
			resourceID,
			expectedVersion,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrVersionConflict
		}

		row := tx.QueryRow("SELECT "+resourceColumns+" FROM resources WHERE id = ?", resourceID)
		updated, err = scanResource(row)
		return err
	})
	if err != nil {
		return resources.MeetingResource{}, err
	}
	return updated, nil
}

// Release clears the current reservation and returns the resource to the
// available state. Resources in maintenance keep their status; releasing an
// unreserved resource only bumps the version.
func (r *ResourceRepository) Release(ctx context.Context, resourceID string) (resources.MeetingResource, error) {
	var updated resources.MeetingResource
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE resources
			SET status = CASE status WHEN ? THEN ? ELSE status END,
				reservation_session_id = NULL, reservation_cohort_id = NULL,
				reservation_start = NULL, reservation_end = NULL,
				reservation_reserved_at = NULL,
				version = version + 1
			WHERE id = ?`,
			string(resources.StatusReserved),
			string(resources.StatusAvailable),
			resourceID,
		)
		if err != nil {
			return mapError(err)
		}
		if err := requireRowsAffected(result); err != nil {
			return err
		}

		row := tx.QueryRow("SELECT "+resourceColumns+" FROM resources WHERE id = ?", resourceID)
		updated, err = scanResource(row)
		return err
	})
	if err != nil {
		return resources.MeetingResource{}, err
	}
	return updated, nil
}

type reservationFields struct {
	sessionID  sql.NullString
	cohortID   sql.NullString
	start      sql.NullString
	end        sql.NullString
	reservedAt sql.NullString
}

func reservationColumns(reservation *resources.Reservation) reservationFields {
	if reservation == nil {
		return reservationFields{}
	}
	return reservationFields{
		sessionID:  sql.NullString{String: reservation.SessionID, Valid: true},
		cohortID:   sql.NullString{String: reservation.CohortID, Valid: true},
		start:      sql.NullString{String: formatTime(reservation.Start), Valid: true},
		end:        sql.NullString{String: formatTime(reservation.End), Valid: true},
		reservedAt: sql.NullString{String: formatTime(reservation.ReservedAt), Valid: true},
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (resources.MeetingResource, error) {
	var (
		resource             resources.MeetingResource
		status               string
		reservation          reservationFields
		createdAt, updatedAt string
	)
	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&resource.Platform,
		&resource.Credentials,
		&status,
		&reservation.sessionID,
		&reservation.cohortID,
		&reservation.start,
		&reservation.end,
		&reservation.reservedAt,
		&resource.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return resources.MeetingResource{}, mapError(err)
	}

	resource.Status = resources.Status(status)
	if resource.CreatedAt, err = parseTime(createdAt); err != nil {
		return resources.MeetingResource{}, err
	}
	if resource.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return resources.MeetingResource{}, err
	}

	if reservation.sessionID.Valid {
		current := resources.Reservation{
			SessionID: reservation.sessionID.String,
			CohortID:  reservation.cohortID.String,
		}
		if current.Start, err = parseTime(reservation.start.String); err != nil {
			return resources.MeetingResource{}, err
		}
		if current.End, err = parseTime(reservation.end.String); err != nil {
			return resources.MeetingResource{}, err
		}
		if current.ReservedAt, err = parseTime(reservation.reservedAt.String); err != nil {
			return resources.MeetingResource{}, err
		}
		resource.CurrentReservation = &current
	}
	return resource, nil
}

func requireRowsAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
