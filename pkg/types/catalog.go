package types

// Catalog defines the interface for backend-agnostic storage access.
// Callers attach to a backend, use the typed tables, and detach when done.
type Catalog interface {
	// Attach connects the Catalog to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, table operations return ErrCatalogDetached.
	Detach() error

	// Reset removes every entity and all progress.
	Reset() error

	Courses() CourseTable
	Lessons() LessonTable
	Quizzes() QuizTable
	Progress() ProgressTable
}
