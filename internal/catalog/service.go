package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mesh-intelligence/courses/pkg/types"
)

// Service is the entry point used by the HTTP handlers.
type Service struct {
	store  types.Catalog
	logger *log.Logger
}

// New returns a Service backed by an attached catalog.
func New(store types.Catalog, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, logger: logger}
}

// CourseInput is the editable part of a course.
type CourseInput struct {
	Title       string
	Description string
	IsPublished bool
}

func (in CourseInput) course() *types.Course {
	d := in.Description
	return &types.Course{Title: in.Title, Description: &d, IsPublished: in.IsPublished}
}

// ListCourses returns the courses whose title or description contains query.
// A blank query lists every course.
func (s *Service) ListCourses(query string) ([]*types.Course, error) {
	return s.FetchCourses(types.CourseFilter{Query: query})
}

// FetchCourses lists the courses matching filter.
func (s *Service) FetchCourses(filter types.CourseFilter) ([]*types.Course, error) {
	return s.store.Courses().Fetch(filter)
}

// Course returns a course or ErrCourseNotFound.
func (s *Service) Course(id string) (*types.Course, error) {
	c, err := s.store.Courses().Get(id)
	if err != nil {
		return nil, lookupErr(err, types.ErrCourseNotFound)
	}
	return c, nil
}

// Lesson returns a lesson or ErrLessonNotFound.
func (s *Service) Lesson(id string) (*types.Lesson, error) {
	l, err := s.store.Lessons().Get(id)
	if err != nil {
		return nil, lookupErr(err, types.ErrLessonNotFound)
	}
	return l, nil
}

// Quiz returns a quiz or ErrQuizNotFound.
func (s *Service) Quiz(id string) (*types.Quiz, error) {
	q, err := s.store.Quizzes().Get(id)
	if err != nil {
		return nil, lookupErr(err, types.ErrQuizNotFound)
	}
	return q, nil
}

// QuizForLesson returns the quiz of a lesson or ErrQuizNotFound.
func (s *Service) QuizForLesson(lessonID string) (*types.Quiz, error) {
	q, err := s.store.Quizzes().ForLesson(lessonID)
	if err != nil {
		return nil, lookupErr(err, types.ErrQuizNotFound)
	}
	return q, nil
}

// CreateCourse validates and stores a new course.
func (s *Service) CreateCourse(in CourseInput) (*types.Course, error) {
	c := in.course()
	if _, err := s.store.Courses().Set("", c); err != nil {
		return nil, err
	}
	s.logger.Info("Course created", "course_id", c.ID, "title", c.Title)
	return c, nil
}

// UpdateCourse replaces the editable fields of a course.
func (s *Service) UpdateCourse(id string, in CourseInput) (*types.Course, error) {
	if _, err := s.Course(id); err != nil {
		return nil, err
	}
	c := in.course()
	if _, err := s.store.Courses().Set(id, c); err != nil {
		return nil, lookupErr(err, types.ErrCourseNotFound)
	}
	s.logger.Info("Course updated", "course_id", id)
	return c, nil
}

// DeleteCourse removes a course with its lessons, quizzes, results and
// completion records.
func (s *Service) DeleteCourse(id string) error {
	if err := s.store.Courses().Delete(id); err != nil {
		return lookupErr(err, types.ErrCourseNotFound)
	}
	s.logger.Info("Course deleted", "course_id", id)
	return nil
}

// CourseLessons returns the lessons of a course sorted by order.
func (s *Service) CourseLessons(courseID string) ([]*types.Lesson, error) {
	if _, err := s.Course(courseID); err != nil {
		return nil, err
	}
	return s.store.Lessons().ForCourse(courseID)
}

// NextLessonOrder is the default position offered for a new lesson:
// one past the number of lessons the course already has.
func (s *Service) NextLessonOrder(courseID string) (int, error) {
	lessons, err := s.CourseLessons(courseID)
	if err != nil {
		return 0, err
	}
	return len(lessons) + 1, nil
}

// LessonInput is the teacher's lesson form. Order is raw form text.
type LessonInput struct {
	Title   string
	Content string
	Order   string
}

// CreateLesson adds a lesson to a course. Empty or non-numeric order yields 1.
func (s *Service) CreateLesson(courseID string, in LessonInput) (*types.Lesson, error) {
	if _, err := s.Course(courseID); err != nil {
		return nil, err
	}
	l := &types.Lesson{
		CourseID: courseID,
		Title:    strings.TrimSpace(in.Title),
		Content:  strings.TrimSpace(in.Content),
		Order:    types.ParseOrder(in.Order),
	}
	if _, err := s.store.Lessons().Set("", l); err != nil {
		return nil, lookupErr(err, types.ErrCourseNotFound)
	}
	s.logger.Info("Lesson created", "course_id", courseID, "lesson_id", l.ID)
	return l, nil
}

// DeleteLesson removes a lesson with its quiz and completion records.
func (s *Service) DeleteLesson(id string) error {
	if err := s.store.Lessons().Delete(id); err != nil {
		return lookupErr(err, types.ErrLessonNotFound)
	}
	s.logger.Info("Lesson deleted", "lesson_id", id)
	return nil
}

// Progress returns what a user has completed.
func (s *Service) Progress(userID string) (*types.Progress, error) {
	return s.store.Progress().Get(userID)
}

// lookupErr maps storage not-found and malformed-ID errors to the given
// domain error and passes anything else through.
func lookupErr(err, notFound error) error {
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidID) {
		return notFound
	}
	return err
}

// wrapf annotates err unless it is nil.
func wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
