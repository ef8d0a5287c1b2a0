package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/courses/pkg/types"
)

var _ types.ProgressTable = (*progressTable)(nil)

// progressTable implements ProgressTable over lesson_completions,
// course_completions and quiz_results.
type progressTable struct {
	backend *Backend
}

// userKey is the stored form of a user ID. Blank IDs are rejected.
func userKey(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", types.ErrInvalidID
	}
	return userID, nil
}

// Get returns the completed lessons and courses of a user.
func (pt *progressTable) Get(userID string) (*types.Progress, error) {
	userID, err := userKey(userID)
	if err != nil {
		return nil, err
	}
	if err := pt.backend.rlock(); err != nil {
		return nil, err
	}
	defer pt.backend.mu.RUnlock()

	p := types.NewProgress(userID)
	if err := pt.collect("SELECT lesson_id FROM lesson_completions WHERE user_id = ?", userID, p.CompletedLessons); err != nil {
		return nil, fmt.Errorf("loading completed lessons: %w", err)
	}
	if err := pt.collect("SELECT course_id FROM course_completions WHERE user_id = ?", userID, p.CompletedCourses); err != nil {
		return nil, fmt.Errorf("loading completed courses: %w", err)
	}
	return p, nil
}

func (pt *progressTable) collect(query, userID string, into map[string]bool) error {
	rows, err := pt.backend.db.Query(query, userID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		into[id] = true
	}
	return rows.Err()
}

// CompleteLesson records that the user finished a lesson. Idempotent.
func (pt *progressTable) CompleteLesson(userID, lessonID string) error {
	return pt.complete(tableLessonCompletions, "lesson_id", tableLessons, userID, lessonID)
}

// CompleteCourse records that the user finished a course. Idempotent.
// Whether the user may complete it is decided by the caller.
func (pt *progressTable) CompleteCourse(userID, courseID string) error {
	return pt.complete(tableCourseCompletions, "course_id", tableCourses, userID, courseID)
}

// complete inserts (userID, id) into a completion table after checking that
// id exists in its parent table. Table and column names are trusted input.
func (pt *progressTable) complete(table, column, parent, userID, id string) error {
	userID, err := userKey(userID)
	if err != nil {
		return err
	}
	if err := validID(id); err != nil {
		return err
	}
	if err := pt.backend.lock(); err != nil {
		return err
	}
	defer pt.backend.mu.Unlock()

	db := pt.backend.db
	var exists int
	err = db.QueryRow("SELECT 1 FROM "+parent+" WHERE "+column+" = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking %s existence: %w", column, err)
	}

	res, err := db.Exec(
		"INSERT OR IGNORE INTO "+table+" (user_id, "+column+", completed_at) VALUES (?, ?, ?)",
		userID, id, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("recording completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	return pt.backend.persist(table)
}

// SaveResult stores a graded submission, replacing any earlier one.
func (pt *progressTable) SaveResult(r *types.QuizResult) error {
	if r == nil {
		return types.ErrInvalidData
	}
	userID, err := userKey(r.UserID)
	if err != nil {
		return err
	}
	r.UserID = userID
	if err := validID(r.QuizID); err != nil {
		return err
	}
	if err := pt.backend.lock(); err != nil {
		return err
	}
	defer pt.backend.mu.Unlock()

	db := pt.backend.db
	var exists int
	err = db.QueryRow("SELECT 1 FROM quizzes WHERE quiz_id = ?", r.QuizID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking quiz existence: %w", err)
	}

	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	_, err = db.Exec(
		`INSERT OR REPLACE INTO quiz_results
(user_id, quiz_id, total_questions, correct_answers, score, submitted_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.UserID, r.QuizID, r.TotalQuestions, r.CorrectAnswers, r.Score, formatTime(r.SubmittedAt),
	)
	if err != nil {
		return fmt.Errorf("saving quiz result: %w", err)
	}
	return pt.backend.persist(tableQuizResults)
}

// Result returns the stored result of a user for a quiz.
func (pt *progressTable) Result(userID, quizID string) (*types.QuizResult, error) {
	userID, err := userKey(userID)
	if err != nil {
		return nil, err
	}
	if err := validID(quizID); err != nil {
		return nil, err
	}
	if err := pt.backend.rlock(); err != nil {
		return nil, err
	}
	defer pt.backend.mu.RUnlock()

	r := types.QuizResult{UserID: userID, QuizID: quizID}
	var submittedAt string
	err = pt.backend.db.QueryRow(
		"SELECT total_questions, correct_answers, score, submitted_at FROM quiz_results WHERE user_id = ? AND quiz_id = ?",
		userID, quizID,
	).Scan(&r.TotalQuestions, &r.CorrectAnswers, &r.Score, &submittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting quiz result: %w", err)
	}
	if r.SubmittedAt, err = parseTime(submittedAt); err != nil {
		return nil, fmt.Errorf("parsing submitted_at: %w", err)
	}
	return &r, nil
}
