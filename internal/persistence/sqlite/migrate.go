package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is the ordered schema history. Entries are append-only; the
// version recorded in schema_migrations is the index of the last entry
// applied.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		id                      TEXT PRIMARY KEY,
		name                    TEXT NOT NULL,
		platform                TEXT NOT NULL,
		credentials             TEXT NOT NULL DEFAULT '',
		status                  TEXT NOT NULL,
		reservation_session_id  TEXT,
		reservation_cohort_id   TEXT,
		reservation_start       TEXT,
		reservation_end         TEXT,
		reservation_reserved_at TEXT,
		version                 INTEGER NOT NULL DEFAULT 0,
		created_at              TEXT NOT NULL,
		updated_at              TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cohorts (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		curriculum_id    TEXT NOT NULL,
		rule_start_date  TEXT NOT NULL,
		rule_weekdays    INTEGER NOT NULL,
		rule_daily_start INTEGER NOT NULL,
		rule_daily_end   INTEGER NOT NULL,
		status           TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		cohort_id      TEXT NOT NULL,
		module_index   INTEGER NOT NULL,
		session_number INTEGER NOT NULL,
		lesson_first   INTEGER NOT NULL,
		lesson_second  INTEGER NOT NULL,
		title          TEXT NOT NULL,
		description    TEXT NOT NULL,
		date           TEXT NOT NULL,
		start_at       TEXT NOT NULL,
		end_at         TEXT NOT NULL,
		status         TEXT NOT NULL,
		resource_id    TEXT,
		deleted_at     TEXT,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_cohort ON sessions (cohort_id)`,
	`CREATE TABLE IF NOT EXISTS curricula (
		id    TEXT PRIMARY KEY,
		title TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS curriculum_modules (
		curriculum_id TEXT NOT NULL REFERENCES curricula (id) ON DELETE CASCADE,
		position      INTEGER NOT NULL,
		id            TEXT NOT NULL,
		title         TEXT NOT NULL,
		PRIMARY KEY (curriculum_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS curriculum_lessons (
		curriculum_id   TEXT NOT NULL,
		module_position INTEGER NOT NULL,
		position        INTEGER NOT NULL,
		id              TEXT NOT NULL,
		title           TEXT NOT NULL,
		PRIMARY KEY (curriculum_id, module_position, position),
		FOREIGN KEY (curriculum_id, module_position)
			REFERENCES curriculum_modules (curriculum_id, position) ON DELETE CASCADE
	)`,
}

// Migrate brings the schema up to the current version. It is safe to call on
// every startup.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`,
	); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	var current int
	err := cp.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations",
	).Scan(&current)
	if err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	for version := current + 1; version <= len(migrations); version++ {
		statement := migrations[version-1]
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statement); err != nil {
				return fmt.Errorf("sqlite: apply migration %d: %w", version, err)
			}
			if _, err := tx.Exec(
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))",
				version,
			); err != nil {
				return fmt.Errorf("sqlite: record migration %d: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
