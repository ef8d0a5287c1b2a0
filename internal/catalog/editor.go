package catalog

import (
	"errors"
	"strings"

	"github.com/mesh-intelligence/courses/pkg/types"
)

// QuizEditor is the teacher's quiz form for a lesson.
type QuizEditor struct {
	Course *types.Course
	Lesson *types.Lesson
	Draft  types.QuizDraft
}

// QuizEditor prefills the form from the lesson's existing quiz: its title,
// the first question and up to three options. Without a quiz the form is
// blank with the first option marked correct.
func (s *Service) QuizEditor(lessonID string) (*QuizEditor, error) {
	lesson, err := s.Lesson(lessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.Course(lesson.CourseID)
	if err != nil {
		return nil, err
	}

	e := &QuizEditor{Course: course, Lesson: lesson, Draft: types.QuizDraft{CorrectIndex: 1}}

	quiz, err := s.store.Quizzes().ForLesson(lessonID)
	if errors.Is(err, types.ErrNotFound) {
		return e, nil
	}
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return e, nil
	}

	q := quiz.Questions[0]
	e.Draft.Title = quiz.Title
	e.Draft.QuestionText = q.Text
	for i := 0; i < len(q.Options) && i < len(e.Draft.Options); i++ {
		e.Draft.Options[i] = q.Options[i].Text
	}
	e.Draft.CorrectIndex = q.CorrectIndex()
	return e, nil
}

// SaveQuiz validates the draft and stores it as the lesson's quiz. An
// existing quiz keeps its ID; its questions are replaced and the results
// graded against the old questions are discarded.
func (s *Service) SaveQuiz(lessonID string, draft types.QuizDraft) (*types.Quiz, error) {
	if _, err := s.Lesson(lessonID); err != nil {
		return nil, err
	}
	options, err := draft.Validate()
	if err != nil {
		return nil, err
	}

	var id string
	existing, err := s.store.Quizzes().ForLesson(lessonID)
	switch {
	case errors.Is(err, types.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		id = existing.ID
	}

	quiz := &types.Quiz{
		LessonID: lessonID,
		Title:    strings.TrimSpace(draft.Title),
		Questions: []types.Question{{
			Text:    strings.TrimSpace(draft.QuestionText),
			Options: options,
		}},
	}
	if _, err := s.store.Quizzes().Set(id, quiz); err != nil {
		return nil, lookupErr(err, types.ErrLessonNotFound)
	}
	s.logger.Info("Quiz saved", "lesson_id", lessonID, "test_id", quiz.ID, "replaced", id != "")
	return quiz, nil
}
