package catalog

import (
	"errors"

	"github.com/mesh-intelligence/courses/pkg/types"
)

// CourseView is a course page for one user.
type CourseView struct {
	Course  *types.Course
	Lessons []*types.Lesson
	UserID  string
	// IsCompleted reports that the user already completed the course.
	IsCompleted bool
	// CanComplete reports that the course has lessons and the user
	// completed every one of them.
	CanComplete bool
}

// CourseView builds the course page for a user.
func (s *Service) CourseView(courseID, userID string) (*CourseView, error) {
	course, err := s.Course(courseID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.store.Lessons().ForCourse(courseID)
	if err != nil {
		return nil, err
	}
	progress, err := s.store.Progress().Get(userID)
	if err != nil {
		return nil, err
	}
	return &CourseView{
		Course:      course,
		Lessons:     lessons,
		UserID:      userID,
		IsCompleted: progress.CompletedCourses[courseID],
		CanComplete: progress.CompletedAll(lessonIDs(lessons)),
	}, nil
}

// UpdateCourseCompletion marks the course completed for the user when every
// lesson of the course is completed. A course without lessons is never
// marked. It reports whether the course is completed afterwards.
func (s *Service) UpdateCourseCompletion(userID, courseID string) (bool, error) {
	lessons, err := s.store.Lessons().ForCourse(courseID)
	if err != nil {
		return false, lookupErr(err, types.ErrCourseNotFound)
	}
	progress, err := s.store.Progress().Get(userID)
	if err != nil {
		return false, err
	}
	if progress.CompletedCourses[courseID] {
		return true, nil
	}
	if !progress.CompletedAll(lessonIDs(lessons)) {
		return false, nil
	}
	if err := s.store.Progress().CompleteCourse(userID, courseID); err != nil {
		return false, lookupErr(err, types.ErrCourseNotFound)
	}
	s.logger.Info("Course completed", "user_id", userID, "course_id", courseID)
	return true, nil
}

// CompleteCourse is the learner's "complete course" action. It only takes
// effect once every lesson has been completed.
func (s *Service) CompleteCourse(userID, courseID string) (bool, error) {
	if _, err := s.Course(courseID); err != nil {
		return false, err
	}
	return s.UpdateCourseCompletion(userID, courseID)
}

// LessonView is a lesson page for one user.
type LessonView struct {
	Course *types.Course
	Lesson *types.Lesson
	UserID string
	// Quiz is nil when the lesson has no quiz.
	Quiz *types.Quiz
	// SavedResult is the user's last graded submission, if any.
	SavedResult *types.QuizResult
}

// LessonView builds the lesson page for a user.
func (s *Service) LessonView(lessonID, userID string) (*LessonView, error) {
	lesson, err := s.Lesson(lessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.Course(lesson.CourseID)
	if err != nil {
		return nil, err
	}
	v := &LessonView{Course: course, Lesson: lesson, UserID: userID}

	quiz, err := s.store.Quizzes().ForLesson(lessonID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		return v, nil
	case err != nil:
		return nil, err
	}
	v.Quiz = quiz

	result, err := s.store.Progress().Result(userID, quiz.ID)
	switch {
	case errors.Is(err, types.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		v.SavedResult = result
	}
	return v, nil
}

// QuizPage is what a learner sees when taking a quiz.
type QuizPage struct {
	Course *types.Course
	Lesson *types.Lesson
	Quiz   *types.Quiz
	UserID string
}

// StartQuiz is reached when the learner finishes reading a lesson: the lesson
// is marked completed, the course completion is re-evaluated and the lesson's
// quiz is returned. The completion is recorded even when the lesson has no
// quiz, in which case ErrQuizNotFound is returned.
func (s *Service) StartQuiz(userID, lessonID string) (*QuizPage, error) {
	lesson, err := s.Lesson(lessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.Course(lesson.CourseID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Progress().CompleteLesson(userID, lessonID); err != nil {
		return nil, wrapf(lookupErr(err, types.ErrLessonNotFound), "completing lesson")
	}
	if _, err := s.UpdateCourseCompletion(userID, course.ID); err != nil {
		return nil, wrapf(err, "updating course completion")
	}

	quiz, err := s.QuizForLesson(lessonID)
	if err != nil {
		return nil, err
	}
	return &QuizPage{Course: course, Lesson: lesson, Quiz: quiz, UserID: userID}, nil
}

// Submission is the graded outcome shown after a quiz.
type Submission struct {
	Course *types.Course
	Lesson *types.Lesson
	Quiz   *types.Quiz
	Result *types.QuizResult
}

// SubmitQuiz grades answers (question ID to chosen option ID) and stores the
// result for the user, replacing any earlier result for the same quiz.
func (s *Service) SubmitQuiz(userID, quizID string, answers map[string]string) (*Submission, error) {
	quiz, err := s.Quiz(quizID)
	if err != nil {
		return nil, err
	}

	result := quiz.Grade(userID, answers)
	if err := s.store.Progress().SaveResult(result); err != nil {
		return nil, wrapf(lookupErr(err, types.ErrQuizNotFound), "saving result")
	}
	s.logger.Info("Quiz submitted",
		"user_id", userID,
		"test_id", quizID,
		"correct_answers", result.CorrectAnswers,
		"total_questions", result.TotalQuestions,
	)

	lesson, err := s.Lesson(quiz.LessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.Course(lesson.CourseID)
	if err != nil {
		return nil, err
	}
	return &Submission{Course: course, Lesson: lesson, Quiz: quiz, Result: result}, nil
}

func lessonIDs(lessons []*types.Lesson) []string {
	ids := make([]string, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	return ids
}
