package types

import "errors"

// CourseTable provides CRUD operations for courses.
type CourseTable interface {
	// Get retrieves the course with the given ID.
	// Returns ErrNotFound if no course exists with that ID.
	Get(id string) (*Course, error)

	// Set creates or updates a course. When id is empty a new UUID v7 is
	// generated. Returns the actual ID used.
	Set(id string, c *Course) (string, error)

	// Delete removes the course and everything that hangs off it: lessons,
	// quizzes, quiz results and completion records.
	Delete(id string) error

	// Fetch returns the courses matching the filter, oldest first.
	Fetch(filter CourseFilter) ([]*Course, error)
}

// CourseFilter narrows CourseTable.Fetch. The zero value matches every course.
type CourseFilter struct {
	// Query is matched case-insensitively against title and description.
	Query string
	// PublishedOnly drops unpublished courses.
	PublishedOnly bool
}

// LessonTable provides CRUD operations for lessons.
type LessonTable interface {
	Get(id string) (*Lesson, error)
	Set(id string, l *Lesson) (string, error)
	Delete(id string) error

	// ForCourse returns the lessons of a course sorted by Order.
	ForCourse(courseID string) ([]*Lesson, error)
}

// QuizTable provides CRUD operations for quizzes. A lesson has at most one quiz.
type QuizTable interface {
	Get(id string) (*Quiz, error)

	// Set stores the quiz with its questions and options, replacing any
	// previous questions. Results stored for an existing quiz are dropped
	// because they were graded against different questions.
	Set(id string, q *Quiz) (string, error)

	Delete(id string) error

	// ForLesson returns the quiz attached to a lesson, or ErrNotFound.
	ForLesson(lessonID string) (*Quiz, error)
}

// ProgressTable records what each user has completed and scored.
type ProgressTable interface {
	// Get returns the progress of a user. Unknown users have empty progress.
	Get(userID string) (*Progress, error)

	CompleteLesson(userID, lessonID string) error
	CompleteCourse(userID, courseID string) error

	// SaveResult stores a quiz result, replacing the user's earlier result
	// for the same quiz.
	SaveResult(r *QuizResult) error

	// Result returns the user's stored result for a quiz, or ErrNotFound.
	Result(userID, quizID string) (*QuizResult, error)
}

// Table operation errors.
var (
	ErrNotFound    = errors.New("entity not found")
	ErrInvalidID   = errors.New("invalid entity ID")
	ErrInvalidData = errors.New("invalid entity data")
)

// Entity validation errors.
var (
	ErrTitleRequired    = errors.New("title is required")
	ErrQuestionRequired = errors.New("quiz title and question text are required")
	ErrTooFewOptions    = errors.New("at least two answer options are required")
)

// Lookup errors returned by the catalog service. Each wraps ErrNotFound.
var (
	ErrCourseNotFound = notFound("course not found")
	ErrLessonNotFound = notFound("lesson not found")
	ErrQuizNotFound   = notFound("quiz not found")
)

// Catalog lifecycle errors.
var (
	ErrCatalogDetached = errors.New("catalog is detached")
	ErrAlreadyAttached = errors.New("catalog is already attached")
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

type notFoundError struct{ msg string }

func notFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string { return e.msg }

// Is lets errors.Is(err, ErrNotFound) match every lookup error.
func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }
