package types

import (
	"strings"
	"time"
)

// Quiz is the test attached to a lesson.
type Quiz struct {
	ID        string     `json:"id"`
	LessonID  string     `json:"lesson_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Question is a single-choice question.
type Question struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Options []AnswerOption `json:"options"`
}

// AnswerOption is one possible answer to a question.
type AnswerOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// QuizResult is the graded outcome of one submission.
type QuizResult struct {
	QuizID         string    `json:"test_id"`
	UserID         string    `json:"user_id"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	Score          float64   `json:"score"` // 0..100
	SubmittedAt    time.Time `json:"submitted_at"`
}

// Option returns the option with the given ID.
func (q *Question) Option(id string) (AnswerOption, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return AnswerOption{}, false
}

// CorrectIndex returns the 1-based position of the first correct option,
// or 1 when no option is marked correct.
func (q *Question) CorrectIndex() int {
	for i, o := range q.Options {
		if o.IsCorrect {
			return i + 1
		}
	}
	return 1
}

// Grade scores answers keyed by question ID with the chosen option ID as value.
// Missing answers and unknown options count as wrong. A quiz without
// questions scores 0.
func (q *Quiz) Grade(userID string, answers map[string]string) *QuizResult {
	correct := 0
	for _, question := range q.Questions {
		chosen := strings.TrimSpace(answers[question.ID])
		if chosen == "" {
			continue
		}
		if opt, ok := question.Option(chosen); ok && opt.IsCorrect {
			correct++
		}
	}

	total := len(q.Questions)
	score := 0.0
	if total > 0 {
		score = float64(correct) / float64(total) * 100
	}

	return &QuizResult{
		QuizID:         q.ID,
		UserID:         userID,
		TotalQuestions: total,
		CorrectAnswers: correct,
		Score:          score,
		SubmittedAt:    time.Now().UTC(),
	}
}

// QuizDraft is the teacher's editor input: one question with up to three
// options, one of which is marked correct by its 1-based position.
type QuizDraft struct {
	Title        string
	QuestionText string
	Options      [3]string
	CorrectIndex int
}

// Validate checks the draft and returns the non-empty option texts with
// their correctness flags.
func (d *QuizDraft) Validate() ([]AnswerOption, error) {
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.QuestionText) == "" {
		return nil, ErrQuestionRequired
	}

	var opts []AnswerOption
	for i, text := range d.Options {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		opts = append(opts, AnswerOption{
			Text:      text,
			IsCorrect: i+1 == d.CorrectIndex,
		})
	}
	if len(opts) < 2 {
		return nil, ErrTooFewOptions
	}
	return opts, nil
}
