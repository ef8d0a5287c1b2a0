package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/courses/pkg/types"
)

var _ types.QuizTable = (*quizzesTable)(nil)

// quizzesTable implements QuizTable. A quiz is stored across three tables:
// quizzes, questions and answer_options.
type quizzesTable struct {
	backend *Backend
}

// Get retrieves a quiz with its questions and options.
func (qt *quizzesTable) Get(id string) (*types.Quiz, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	if err := qt.backend.rlock(); err != nil {
		return nil, err
	}
	defer qt.backend.mu.RUnlock()

	return qt.load("quiz_id", id)
}

// ForLesson returns the quiz attached to a lesson.
func (qt *quizzesTable) ForLesson(lessonID string) (*types.Quiz, error) {
	if err := validID(lessonID); err != nil {
		return nil, err
	}
	if err := qt.backend.rlock(); err != nil {
		return nil, err
	}
	defer qt.backend.mu.RUnlock()

	return qt.load("lesson_id", lessonID)
}

// load reads one quiz selected by column = value. column is trusted input.
// Each result set is drained before the next query: the backend runs on a
// single connection.
func (qt *quizzesTable) load(column, value string) (*types.Quiz, error) {
	db := qt.backend.db

	var q types.Quiz
	err := db.QueryRow(
		"SELECT quiz_id, lesson_id, title FROM quizzes WHERE "+column+" = ?", value,
	).Scan(&q.ID, &q.LessonID, &q.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting quiz: %w", err)
	}

	rows, err := db.Query(
		"SELECT question_id, text FROM questions WHERE quiz_id = ? ORDER BY ordinal", q.ID)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var question types.Question
		if err := rows.Scan(&question.ID, &question.Text); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		index[question.ID] = len(q.Questions)
		q.Questions = append(q.Questions, question)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating questions: %w", err)
	}
	rows.Close()

	rows, err = db.Query(`SELECT o.option_id, o.question_id, o.text, o.is_correct
FROM answer_options o JOIN questions q ON o.question_id = q.question_id
WHERE q.quiz_id = ? ORDER BY q.ordinal, o.ordinal`, q.ID)
	if err != nil {
		return nil, fmt.Errorf("querying answer options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			opt        types.AnswerOption
			questionID string
			correct    int
		)
		if err := rows.Scan(&opt.ID, &questionID, &opt.Text, &correct); err != nil {
			return nil, fmt.Errorf("scanning answer option: %w", err)
		}
		opt.IsCorrect = correct != 0
		if i, ok := index[questionID]; ok {
			q.Questions[i].Options = append(q.Questions[i].Options, opt)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating answer options: %w", err)
	}
	return &q, nil
}

// Set stores a quiz. An empty id creates it; questions and options without
// IDs get fresh ones. Updating replaces all questions and options and drops
// stored results. A lesson already holding a different quiz is rejected with
// ErrInvalidData.
func (qt *quizzesTable) Set(id string, q *types.Quiz) (string, error) {
	if q == nil {
		return "", types.ErrInvalidData
	}
	if err := validID(q.LessonID); err != nil {
		return "", err
	}
	if id != "" {
		if err := validID(id); err != nil {
			return "", err
		}
	}
	if err := qt.backend.lock(); err != nil {
		return "", err
	}
	defer qt.backend.mu.Unlock()

	db := qt.backend.db
	var exists int
	err := db.QueryRow("SELECT 1 FROM lessons WHERE lesson_id = ?", q.LessonID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lesson %s: %w", q.LessonID, types.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("checking lesson existence: %w", err)
	}

	var current string
	err = db.QueryRow("SELECT quiz_id FROM quizzes WHERE lesson_id = ?", q.LessonID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("checking lesson quiz: %w", err)
	}
	if current != "" && current != id {
		return "", fmt.Errorf("lesson %s already has quiz %s: %w", q.LessonID, current, types.ErrInvalidData)
	}

	if id == "" {
		if id, err = newUUID(); err != nil {
			return "", err
		}
	}
	q.ID = id
	for i := range q.Questions {
		if q.Questions[i].ID == "" {
			if q.Questions[i].ID, err = newUUID(); err != nil {
				return "", err
			}
		}
		for j := range q.Questions[i].Options {
			if q.Questions[i].Options[j].ID == "" {
				if q.Questions[i].Options[j].ID, err = newUUID(); err != nil {
					return "", err
				}
			}
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteQuizContent(tx, id); err != nil {
		return "", err
	}
	if _, err := tx.Exec("DELETE FROM quiz_results WHERE quiz_id = ?", id); err != nil {
		return "", fmt.Errorf("deleting quiz results: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO quizzes (quiz_id, lesson_id, title) VALUES (?, ?, ?) ON CONFLICT(quiz_id) DO UPDATE SET title = excluded.title",
		id, q.LessonID, q.Title,
	)
	if err != nil {
		return "", fmt.Errorf("persisting quiz: %w", err)
	}
	for i, question := range q.Questions {
		_, err := tx.Exec(
			"INSERT INTO questions (question_id, quiz_id, text, ordinal) VALUES (?, ?, ?, ?)",
			question.ID, id, question.Text, i,
		)
		if err != nil {
			return "", fmt.Errorf("inserting question: %w", err)
		}
		for j, opt := range question.Options {
			_, err := tx.Exec(
				"INSERT INTO answer_options (option_id, question_id, text, is_correct, ordinal) VALUES (?, ?, ?, ?, ?)",
				opt.ID, question.ID, opt.Text, boolToInt(opt.IsCorrect), j,
			)
			if err != nil {
				return "", fmt.Errorf("inserting answer option: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing quiz: %w", err)
	}

	if err := qt.backend.persist(tableQuizzes, tableQuestions, tableAnswerOptions, tableQuizResults); err != nil {
		return "", fmt.Errorf("persisting quiz: %w", err)
	}
	return id, nil
}

// Delete removes a quiz with its questions, options and stored results.
func (qt *quizzesTable) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	if err := qt.backend.lock(); err != nil {
		return err
	}
	defer qt.backend.mu.Unlock()

	db := qt.backend.db
	var exists int
	err := db.QueryRow("SELECT 1 FROM quizzes WHERE quiz_id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking quiz existence: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteQuizContent(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM quiz_results WHERE quiz_id = ?", id); err != nil {
		return fmt.Errorf("deleting quiz results: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM quizzes WHERE quiz_id = ?", id); err != nil {
		return fmt.Errorf("deleting quiz: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing quiz deletion: %w", err)
	}

	return qt.backend.persist(tableQuizzes, tableQuestions, tableAnswerOptions, tableQuizResults)
}

// deleteQuizContent removes the questions and options of a quiz.
func deleteQuizContent(tx *sql.Tx, quizID string) error {
	_, err := tx.Exec(
		"DELETE FROM answer_options WHERE question_id IN (SELECT question_id FROM questions WHERE quiz_id = ?)", quizID)
	if err != nil {
		return fmt.Errorf("deleting answer options: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM questions WHERE quiz_id = ?", quizID); err != nil {
		return fmt.Errorf("deleting questions: %w", err)
	}
	return nil
}
