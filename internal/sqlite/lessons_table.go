package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/courses/pkg/types"
)

var _ types.LessonTable = (*lessonsTable)(nil)

// lessonsTable implements LessonTable.
type lessonsTable struct {
	backend *Backend
}

const selectLesson = "SELECT lesson_id, course_id, title, content, ordinal FROM lessons"

// Get retrieves a lesson by ID.
func (lt *lessonsTable) Get(id string) (*types.Lesson, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	if err := lt.backend.rlock(); err != nil {
		return nil, err
	}
	defer lt.backend.mu.RUnlock()

	l, err := scanLesson(lt.backend.db.QueryRow(selectLesson+" WHERE lesson_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting lesson %s: %w", id, err)
	}
	return l, nil
}

// Set creates the lesson when id is empty, otherwise updates it. The owning
// course must exist; a lesson cannot move to another course.
func (lt *lessonsTable) Set(id string, l *types.Lesson) (string, error) {
	if l == nil {
		return "", types.ErrInvalidData
	}
	if err := l.Validate(); err != nil {
		return "", err
	}
	if err := validID(l.CourseID); err != nil {
		return "", err
	}
	if id != "" {
		if err := validID(id); err != nil {
			return "", err
		}
	}
	if err := lt.backend.lock(); err != nil {
		return "", err
	}
	defer lt.backend.mu.Unlock()

	db := lt.backend.db
	var exists int
	err := db.QueryRow("SELECT 1 FROM courses WHERE course_id = ?", l.CourseID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("course %s: %w", l.CourseID, types.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("checking course existence: %w", err)
	}

	if id == "" {
		newID, err := newUUID()
		if err != nil {
			return "", err
		}
		l.ID = newID
		_, err = db.Exec(
			"INSERT INTO lessons (lesson_id, course_id, title, content, ordinal) VALUES (?, ?, ?, ?, ?)",
			l.ID, l.CourseID, l.Title, l.Content, l.Order,
		)
		if err != nil {
			return "", fmt.Errorf("inserting lesson: %w", err)
		}
	} else {
		res, err := db.Exec(
			"UPDATE lessons SET title = ?, content = ?, ordinal = ? WHERE lesson_id = ? AND course_id = ?",
			l.Title, l.Content, l.Order, id, l.CourseID,
		)
		if err != nil {
			return "", fmt.Errorf("updating lesson: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", types.ErrNotFound
		}
		l.ID = id
	}

	if err := lt.backend.persist(tableLessons); err != nil {
		return "", fmt.Errorf("persisting lessons: %w", err)
	}
	return l.ID, nil
}

// Delete removes a lesson with its quiz, stored results and completions.
func (lt *lessonsTable) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := lt.backend.lock(); err != nil {
		return err
	}
	defer lt.backend.mu.Unlock()

	db := lt.backend.db
	var exists int
	err := db.QueryRow("SELECT 1 FROM lessons WHERE lesson_id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking lesson existence: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	quizzesOfLesson := "SELECT quiz_id FROM quizzes WHERE lesson_id = ?"
	steps := []struct {
		what  string
		query string
	}{
		{"answer options", "DELETE FROM answer_options WHERE question_id IN (SELECT question_id FROM questions WHERE quiz_id IN (" + quizzesOfLesson + "))"},
		{"questions", "DELETE FROM questions WHERE quiz_id IN (" + quizzesOfLesson + ")"},
		{"quiz results", "DELETE FROM quiz_results WHERE quiz_id IN (" + quizzesOfLesson + ")"},
		{"quizzes", "DELETE FROM quizzes WHERE lesson_id = ?"},
		{"lesson completions", "DELETE FROM lesson_completions WHERE lesson_id = ?"},
		{"lesson", "DELETE FROM lessons WHERE lesson_id = ?"},
	}
	for _, s := range steps {
		if _, err := tx.Exec(s.query, id); err != nil {
			return fmt.Errorf("deleting %s: %w", s.what, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing lesson deletion: %w", err)
	}

	return lt.backend.persist(
		tableLessons, tableQuizzes, tableQuestions, tableAnswerOptions,
		tableQuizResults, tableLessonCompletions,
	)
}

// ForCourse returns the lessons of a course sorted by order, then by
// insertion.
func (lt *lessonsTable) ForCourse(courseID string) ([]*types.Lesson, error) {
	if err := validID(courseID); err != nil {
		return nil, err
	}
	if err := lt.backend.rlock(); err != nil {
		return nil, err
	}
	defer lt.backend.mu.RUnlock()

	rows, err := lt.backend.db.Query(selectLesson+" WHERE course_id = ? ORDER BY ordinal, rowid", courseID)
	if err != nil {
		return nil, fmt.Errorf("querying lessons: %w", err)
	}
	defer rows.Close()

	var out []*types.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lesson: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLesson(row rowScanner) (*types.Lesson, error) {
	var l types.Lesson
	if err := row.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Order); err != nil {
		return nil, err
	}
	return &l, nil
}
