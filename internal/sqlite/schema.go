package sqlite

// Schema DDL for all tables.
const (
	createCourses = `CREATE TABLE courses (
    course_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    is_published INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createLessons = `CREATE TABLE lessons (
    lesson_id TEXT PRIMARY KEY,
    course_id TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    FOREIGN KEY (course_id) REFERENCES courses(course_id)
);`

	createQuizzes = `CREATE TABLE quizzes (
    quiz_id TEXT PRIMARY KEY,
    lesson_id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    FOREIGN KEY (lesson_id) REFERENCES lessons(lesson_id)
);`

	createQuestions = `CREATE TABLE questions (
    question_id TEXT PRIMARY KEY,
    quiz_id TEXT NOT NULL,
    text TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    FOREIGN KEY (quiz_id) REFERENCES quizzes(quiz_id)
);`

	createAnswerOptions = `CREATE TABLE answer_options (
    option_id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL,
    text TEXT NOT NULL,
    is_correct INTEGER NOT NULL DEFAULT 0,
    ordinal INTEGER NOT NULL,
    FOREIGN KEY (question_id) REFERENCES questions(question_id)
);`

	createLessonCompletions = `CREATE TABLE lesson_completions (
    user_id TEXT NOT NULL,
    lesson_id TEXT NOT NULL,
    completed_at TEXT NOT NULL,
    PRIMARY KEY (user_id, lesson_id)
);`

	createCourseCompletions = `CREATE TABLE course_completions (
    user_id TEXT NOT NULL,
    course_id TEXT NOT NULL,
    completed_at TEXT NOT NULL,
    PRIMARY KEY (user_id, course_id)
);`

	createQuizResults = `CREATE TABLE quiz_results (
    user_id TEXT NOT NULL,
    quiz_id TEXT NOT NULL,
    total_questions INTEGER NOT NULL,
    correct_answers INTEGER NOT NULL,
    score REAL NOT NULL,
    submitted_at TEXT NOT NULL,
    PRIMARY KEY (user_id, quiz_id)
);`
)

// Index DDL for common queries.
const (
	idxLessonsCourse    = `CREATE INDEX idx_lessons_course ON lessons(course_id, ordinal);`
	idxQuestionsQuiz    = `CREATE INDEX idx_questions_quiz ON questions(quiz_id, ordinal);`
	idxOptionsQuestion  = `CREATE INDEX idx_answer_options_question ON answer_options(question_id, ordinal);`
	idxLessonCompLesson = `CREATE INDEX idx_lesson_completions_lesson ON lesson_completions(lesson_id);`
	idxCourseCompCourse = `CREATE INDEX idx_course_completions_course ON course_completions(course_id);`
	idxQuizResultsQuiz  = `CREATE INDEX idx_quiz_results_quiz ON quiz_results(quiz_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createCourses,
	createLessons,
	createQuizzes,
	createQuestions,
	createAnswerOptions,
	createLessonCompletions,
	createCourseCompletions,
	createQuizResults,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxLessonsCourse,
	idxQuestionsQuiz,
	idxOptionsQuestion,
	idxLessonCompLesson,
	idxCourseCompCourse,
	idxQuizResultsQuiz,
}

// Table names, also used as JSONL file stems.
const (
	tableCourses           = "courses"
	tableLessons           = "lessons"
	tableQuizzes           = "quizzes"
	tableQuestions         = "questions"
	tableAnswerOptions     = "answer_options"
	tableLessonCompletions = "lesson_completions"
	tableCourseCompletions = "course_completions"
	tableQuizResults       = "quiz_results"
)

// jsonlTables lists each SQLite table with the columns stored in its JSONL file.
// The order matters: tables with foreign keys load after their referenced tables.
var jsonlTables = []struct {
	table   string
	columns []string
}{
	{tableCourses, []string{"course_id", "title", "description", "is_published", "created_at", "updated_at"}},
	{tableLessons, []string{"lesson_id", "course_id", "title", "content", "ordinal"}},
	{tableQuizzes, []string{"quiz_id", "lesson_id", "title"}},
	{tableQuestions, []string{"question_id", "quiz_id", "text", "ordinal"}},
	{tableAnswerOptions, []string{"option_id", "question_id", "text", "is_correct", "ordinal"}},
	{tableLessonCompletions, []string{"user_id", "lesson_id", "completed_at"}},
	{tableCourseCompletions, []string{"user_id", "course_id", "completed_at"}},
	{tableQuizResults, []string{"user_id", "quiz_id", "total_questions", "correct_answers", "score", "submitted_at"}},
}

// jsonlFile returns the JSONL file name for a table.
func jsonlFile(table string) string {
	return table + ".jsonl"
}
