package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/cohort-scheduler/internal/curriculum"
	"github.com/example/cohort-scheduler/internal/persistence"
)

// CurriculumRepository implements persistence.CurriculumRepository on SQLite.
// Modules and lessons live in child tables keyed by position so reads come
// back in authoring order.
type CurriculumRepository struct {
	pool *ConnectionPool
}

// NewCurriculumRepository returns a repository backed by the given pool.
func NewCurriculumRepository(pool *ConnectionPool) *CurriculumRepository {
	return &CurriculumRepository{pool: pool}
}

// CreateCurriculum stores a curriculum with its full module tree.
func (r *CurriculumRepository) CreateCurriculum(ctx context.Context, cur curriculum.Curriculum) error {
	if cur.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"INSERT INTO curricula (id, title) VALUES (?, ?)", cur.ID, cur.Title,
		); err != nil {
			return mapError(err)
		}

		for modulePos, module := range cur.Modules {
			if _, err := tx.Exec(`
				INSERT INTO curriculum_modules (curriculum_id, position, id, title)
				VALUES (?, ?, ?, ?)`,
				cur.ID, modulePos, module.ID, module.Title,
			); err != nil {
				return mapError(err)
			}
			for lessonPos, lesson := range module.Lessons {
				if _, err := tx.Exec(`
					INSERT INTO curriculum_lessons (curriculum_id, module_position, position, id, title)
					VALUES (?, ?, ?, ?, ?)`,
					cur.ID, modulePos, lessonPos, lesson.ID, lesson.Title,
				); err != nil {
					return mapError(err)
				}
			}
		}
		return nil
	})
}

// GetCurriculum retrieves a curriculum by ID.
func (r *CurriculumRepository) GetCurriculum(ctx context.Context, id string) (curriculum.Curriculum, error) {
	var cur curriculum.Curriculum
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT id, title FROM curricula WHERE id = ?", id,
	).Scan(&cur.ID, &cur.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return curriculum.Curriculum{}, persistence.ErrNotFound
	}
	if err != nil {
		return curriculum.Curriculum{}, mapError(err)
	}

	if err := r.loadModules(ctx, &cur); err != nil {
		return curriculum.Curriculum{}, err
	}
	return cur, nil
}

// ListCurricula returns all curricula ordered by ID.
func (r *CurriculumRepository) ListCurricula(ctx context.Context) ([]curriculum.Curriculum, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT id, title FROM curricula ORDER BY id ASC")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	list := make([]curriculum.Curriculum, 0)
	for rows.Next() {
		var cur curriculum.Curriculum
		if err := rows.Scan(&cur.ID, &cur.Title); err != nil {
			return nil, mapError(err)
		}
		list = append(list, cur)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range list {
		if err := r.loadModules(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *CurriculumRepository) loadModules(ctx context.Context, cur *curriculum.Curriculum) error {
	moduleRows, err := r.pool.db.QueryContext(ctx, `
		SELECT position, id, title FROM curriculum_modules
		WHERE curriculum_id = ? ORDER BY position ASC`, cur.ID)
	if err != nil {
		return mapError(err)
	}
	defer moduleRows.Close()

	positions := make([]int, 0)
	for moduleRows.Next() {
		var (
			position int
			module   curriculum.Module
		)
		if err := moduleRows.Scan(&position, &module.ID, &module.Title); err != nil {
			return mapError(err)
		}
		cur.Modules = append(cur.Modules, module)
		positions = append(positions, position)
	}
	if err := moduleRows.Err(); err != nil {
		return mapError(err)
	}

	byPosition := make(map[int]int, len(positions))
	for i, position := range positions {
		byPosition[position] = i
	}

	lessonRows, err := r.pool.db.QueryContext(ctx, `
		SELECT module_position, id, title FROM curriculum_lessons
		WHERE curriculum_id = ? ORDER BY module_position ASC, position ASC`, cur.ID)
	if err != nil {
		return mapError(err)
	}
	defer lessonRows.Close()

	for lessonRows.Next() {
		var (
			modulePosition int
			lesson         curriculum.LessonUnit
		)
		if err := lessonRows.Scan(&modulePosition, &lesson.ID, &lesson.Title); err != nil {
			return mapError(err)
		}
		i, ok := byPosition[modulePosition]
		if !ok {
			return fmt.Errorf("sqlite: lesson references missing module position %d in curriculum %s", modulePosition, cur.ID)
		}
		cur.Modules[i].Lessons = append(cur.Modules[i].Lessons, lesson)
	}
	return mapError(lessonRows.Err())
}
