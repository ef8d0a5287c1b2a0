package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/courses/pkg/types"
)

var _ types.CourseTable = (*coursesTable)(nil)

// coursesTable implements CourseTable. Each write persists courses.jsonl, and
// deletes persist every table the cascade touched.
type coursesTable struct {
	backend *Backend
}

const selectCourse = "SELECT course_id, title, description, is_published, created_at, updated_at FROM courses"

// Get retrieves a course by ID.
func (ct *coursesTable) Get(id string) (*types.Course, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	if err := ct.backend.rlock(); err != nil {
		return nil, err
	}
	defer ct.backend.mu.RUnlock()

	c, err := scanCourse(ct.backend.db.QueryRow(selectCourse+" WHERE course_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting course %s: %w", id, err)
	}
	return c, nil
}

// Set creates the course when id is empty, otherwise updates it.
// Updating an unknown ID returns ErrNotFound.
func (ct *coursesTable) Set(id string, c *types.Course) (string, error) {
	if c == nil {
		return "", types.ErrInvalidData
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return "", err
	}
	if id != "" {
		if err := validID(id); err != nil {
			return "", err
		}
	}
	if err := ct.backend.lock(); err != nil {
		return "", err
	}
	defer ct.backend.mu.Unlock()

	db := ct.backend.db
	now := time.Now().UTC()

	if id == "" {
		newID, err := newUUID()
		if err != nil {
			return "", err
		}
		c.ID = newID
		c.CreatedAt = now
		c.UpdatedAt = now
		_, err = db.Exec(
			"INSERT INTO courses (course_id, title, description, is_published, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			c.ID, c.Title, c.Description, boolToInt(c.IsPublished), formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
		)
		if err != nil {
			return "", fmt.Errorf("inserting course: %w", err)
		}
	} else {
		var createdAt string
		err := db.QueryRow("SELECT created_at FROM courses WHERE course_id = ?", id).Scan(&createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return "", types.ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("checking course existence: %w", err)
		}
		c.ID = id
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return "", fmt.Errorf("parsing course created_at: %w", err)
		}
		c.UpdatedAt = now
		_, err = db.Exec(
			"UPDATE courses SET title = ?, description = ?, is_published = ?, updated_at = ? WHERE course_id = ?",
			c.Title, c.Description, boolToInt(c.IsPublished), formatTime(c.UpdatedAt), id,
		)
		if err != nil {
			return "", fmt.Errorf("updating course: %w", err)
		}
	}

	if err := ct.backend.persist(tableCourses); err != nil {
		return "", fmt.Errorf("persisting courses: %w", err)
	}
	return c.ID, nil
}

// Delete removes a course and cascades to its lessons, their quizzes,
// stored results, lesson completions and course completions.
func (ct *coursesTable) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := ct.backend.lock(); err != nil {
		return err
	}
	defer ct.backend.mu.Unlock()

	db := ct.backend.db
	var exists int
	err := db.QueryRow("SELECT 1 FROM courses WHERE course_id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking course existence: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	lessonsOfCourse := "SELECT lesson_id FROM lessons WHERE course_id = ?"
	quizzesOfCourse := "SELECT quiz_id FROM quizzes WHERE lesson_id IN (" + lessonsOfCourse + ")"
	questionsOfCourse := "SELECT question_id FROM questions WHERE quiz_id IN (" + quizzesOfCourse + ")"

	steps := []struct {
		what  string
		query string
	}{
		{"answer options", "DELETE FROM answer_options WHERE question_id IN (" + questionsOfCourse + ")"},
		{"questions", "DELETE FROM questions WHERE quiz_id IN (" + quizzesOfCourse + ")"},
		{"quiz results", "DELETE FROM quiz_results WHERE quiz_id IN (" + quizzesOfCourse + ")"},
		{"quizzes", "DELETE FROM quizzes WHERE lesson_id IN (" + lessonsOfCourse + ")"},
		{"lesson completions", "DELETE FROM lesson_completions WHERE lesson_id IN (" + lessonsOfCourse + ")"},
		{"lessons", "DELETE FROM lessons WHERE course_id = ?"},
		{"course completions", "DELETE FROM course_completions WHERE course_id = ?"},
		{"course", "DELETE FROM courses WHERE course_id = ?"},
	}
	for _, s := range steps {
		if _, err := tx.Exec(s.query, id); err != nil {
			return fmt.Errorf("deleting %s: %w", s.what, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing course deletion: %w", err)
	}

	return ct.backend.persist(
		tableCourses, tableLessons, tableQuizzes, tableQuestions, tableAnswerOptions,
		tableQuizResults, tableLessonCompletions, tableCourseCompletions,
	)
}

// Fetch returns the courses matching the filter in creation order.
func (ct *coursesTable) Fetch(filter types.CourseFilter) ([]*types.Course, error) {
	if err := ct.backend.rlock(); err != nil {
		return nil, err
	}
	defer ct.backend.mu.RUnlock()

	query := selectCourse
	if filter.PublishedOnly {
		query += " WHERE is_published = 1"
	}
	query += " ORDER BY created_at, course_id"

	rows, err := ct.backend.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying courses: %w", err)
	}
	defer rows.Close()

	var out []*types.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		// Matching runs in Go: SQLite's lower() only folds ASCII.
		if c.Matches(filter.Query) {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*types.Course, error) {
	var (
		c                    types.Course
		description          sql.NullString
		published            int
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.Title, &description, &published, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		c.Description = &description.String
	}
	c.IsPublished = published != 0

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing course created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing course updated_at: %w", err)
	}
	return &c, nil
}
