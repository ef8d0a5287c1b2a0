package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/courses/pkg/types"
)

// setupBackend attaches a Backend to a fresh temp dir and detaches on cleanup.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	return attachAt(t, t.TempDir())
}

func attachAt(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func strPtr(s string) *string { return &s }

func TestBackend_Attach(t *testing.T) {
	t.Run("creates data dir and JSONL files", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")
		attachAt(t, dir)

		for _, m := range jsonlTables {
			info, err := os.Stat(filepath.Join(dir, jsonlFile(m.table)))
			require.NoError(t, err, m.table)
			assert.Zero(t, info.Size(), m.table)
		}
	})

	t.Run("second attach fails", func(t *testing.T) {
		b := setupBackend(t)
		err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
		assert.ErrorIs(t, err, types.ErrAlreadyAttached)
	})

	t.Run("invalid config", func(t *testing.T) {
		b := NewBackend()
		assert.ErrorIs(t, b.Attach(types.Config{}), types.ErrBackendEmpty)
	})
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach is idempotent")

	_, err := b.Courses().Fetch(types.CourseFilter{})
	assert.ErrorIs(t, err, types.ErrCatalogDetached)
	_, err = b.Courses().Set("", &types.Course{Title: "x"})
	assert.ErrorIs(t, err, types.ErrCatalogDetached)
}

func TestCoursesTable_CRUD(t *testing.T) {
	b := setupBackend(t)
	courses := b.Courses()

	id, err := courses.Set("", &types.Course{Title: " Go ", Description: strPtr("Learn Go"), IsPublished: true})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := courses.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Go", got.Title)
	assert.Equal(t, "Learn Go", *got.Description)
	assert.True(t, got.IsPublished)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = courses.Set(id, &types.Course{Title: "Go 2"})
	require.NoError(t, err)
	got, err = courses.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Go 2", got.Title)
	assert.Nil(t, got.Description)
	assert.False(t, got.IsPublished)

	require.NoError(t, courses.Delete(id))
	_, err = courses.Get(id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, courses.Delete(id), types.ErrNotFound)
}

func TestCoursesTable_Errors(t *testing.T) {
	b := setupBackend(t)
	courses := b.Courses()

	_, err := courses.Set("", &types.Course{Title: "  "})
	assert.ErrorIs(t, err, types.ErrTitleRequired)

	_, err = courses.Set("", nil)
	assert.ErrorIs(t, err, types.ErrInvalidData)

	_, err = courses.Get("not-a-uuid")
	assert.ErrorIs(t, err, types.ErrInvalidID)

	_, err = courses.Set("0190a5f0-0000-7000-8000-000000000000", &types.Course{Title: "ghost"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCoursesTable_Fetch(t *testing.T) {
	b := setupBackend(t)
	courses := b.Courses()

	_, err := courses.Set("", &types.Course{Title: "Python for beginners", Description: strPtr("Language basics"), IsPublished: true})
	require.NoError(t, err)
	_, err = courses.Set("", &types.Course{Title: "Web development", IsPublished: false})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter types.CourseFilter
		want   []string
	}{
		{"all in creation order", types.CourseFilter{}, []string{"Python for beginners", "Web development"}},
		{"query on title", types.CourseFilter{Query: "WEB"}, []string{"Web development"}},
		{"query on description", types.CourseFilter{Query: "basics"}, []string{"Python for beginners"}},
		{"published only", types.CourseFilter{PublishedOnly: true}, []string{"Python for beginners"}},
		{"no match", types.CourseFilter{Query: "haskell"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := courses.Fetch(tt.filter)
			require.NoError(t, err)
			var titles []string
			for _, c := range got {
				titles = append(titles, c.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestLessonsTable(t *testing.T) {
	b := setupBackend(t)
	courseID, err := b.Courses().Set("", &types.Course{Title: "Go"})
	require.NoError(t, err)

	lessons := b.Lessons()
	second, err := lessons.Set("", &types.Lesson{CourseID: courseID, Title: "Types", Order: 2})
	require.NoError(t, err)
	first, err := lessons.Set("", &types.Lesson{CourseID: courseID, Title: "Intro", Order: 1})
	require.NoError(t, err)

	got, err := lessons.ForCourse(courseID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0].ID)
	assert.Equal(t, second, got[1].ID)

	_, err = lessons.Set("", &types.Lesson{CourseID: "0190a5f0-0000-7000-8000-000000000000", Title: "orphan"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = lessons.Set(first, &types.Lesson{CourseID: courseID, Title: "Intro to Go", Order: 3})
	require.NoError(t, err)
	l, err := lessons.Get(first)
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", l.Title)
	assert.Equal(t, 3, l.Order)

	require.NoError(t, lessons.Delete(second))
	_, err = lessons.Get(second)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

// seedCourse creates a course with one lesson and a one-question quiz.
func seedCourse(t *testing.T, b *Backend) (courseID, lessonID string, quiz *types.Quiz) {
	t.Helper()
	courseID, err := b.Courses().Set("", &types.Course{Title: "Web"})
	require.NoError(t, err)
	lessonID, err = b.Lessons().Set("", &types.Lesson{CourseID: courseID, Title: "How the web works", Order: 1})
	require.NoError(t, err)

	quiz = &types.Quiz{
		LessonID: lessonID,
		Title:    "Web quiz",
		Questions: []types.Question{{
			Text: "Which protocol serves web sites?",
			Options: []types.AnswerOption{
				{Text: "HTTP", IsCorrect: true},
				{Text: "BIOS"},
			},
		}},
	}
	_, err = b.Quizzes().Set("", quiz)
	require.NoError(t, err)
	return courseID, lessonID, quiz
}

func TestQuizzesTable(t *testing.T) {
	b := setupBackend(t)
	_, lessonID, quiz := seedCourse(t, b)

	got, err := b.Quizzes().ForLesson(lessonID)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, got.ID)
	assert.Equal(t, "Web quiz", got.Title)
	require.Len(t, got.Questions, 1)
	require.Len(t, got.Questions[0].Options, 2)
	assert.Equal(t, "HTTP", got.Questions[0].Options[0].Text)
	assert.True(t, got.Questions[0].Options[0].IsCorrect)
	assert.NotEmpty(t, got.Questions[0].Options[0].ID)

	t.Run("second quiz for the same lesson is rejected", func(t *testing.T) {
		_, err := b.Quizzes().Set("", &types.Quiz{LessonID: lessonID, Title: "dup"})
		assert.ErrorIs(t, err, types.ErrInvalidData)
	})

	t.Run("update replaces questions and drops results", func(t *testing.T) {
		require.NoError(t, b.Progress().SaveResult(&types.QuizResult{QuizID: quiz.ID, UserID: "u1", TotalQuestions: 1, CorrectAnswers: 1, Score: 100}))

		_, err := b.Quizzes().Set(quiz.ID, &types.Quiz{
			LessonID: lessonID,
			Title:    "Web quiz v2",
			Questions: []types.Question{{
				Text:    "New question",
				Options: []types.AnswerOption{{Text: "a"}, {Text: "b", IsCorrect: true}},
			}},
		})
		require.NoError(t, err)

		got, err := b.Quizzes().Get(quiz.ID)
		require.NoError(t, err)
		assert.Equal(t, "Web quiz v2", got.Title)
		require.Len(t, got.Questions, 1)
		assert.Equal(t, "New question", got.Questions[0].Text)

		_, err = b.Progress().Result("u1", quiz.ID)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, b.Quizzes().Delete(quiz.ID))
		_, err := b.Quizzes().ForLesson(lessonID)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestProgressTable(t *testing.T) {
	b := setupBackend(t)
	courseID, lessonID, quiz := seedCourse(t, b)
	progress := b.Progress()

	p, err := progress.Get("nobody")
	require.NoError(t, err)
	assert.Empty(t, p.CompletedLessons)

	require.NoError(t, progress.CompleteLesson("u1", lessonID))
	require.NoError(t, progress.CompleteLesson("u1", lessonID), "idempotent")
	require.NoError(t, progress.CompleteCourse("u1", courseID))

	p, err = progress.Get("u1")
	require.NoError(t, err)
	assert.True(t, p.CompletedLessons[lessonID])
	assert.True(t, p.CompletedCourses[courseID])

	assert.ErrorIs(t, progress.CompleteLesson("u1", "0190a5f0-0000-7000-8000-000000000000"), types.ErrNotFound)
	assert.ErrorIs(t, progress.CompleteLesson(" ", lessonID), types.ErrInvalidID)

	require.NoError(t, progress.SaveResult(&types.QuizResult{QuizID: quiz.ID, UserID: "u1", TotalQuestions: 1, Score: 0}))
	require.NoError(t, progress.SaveResult(&types.QuizResult{QuizID: quiz.ID, UserID: "u1", TotalQuestions: 1, CorrectAnswers: 1, Score: 100}))
	r, err := progress.Result("u1", quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, r.CorrectAnswers, "later result replaces earlier one")
	assert.InDelta(t, 100, r.Score, 0.001)
}

func TestProgressTable_UserIDTrimmed(t *testing.T) {
	b := setupBackend(t)
	_, lessonID, quiz := seedCourse(t, b)
	progress := b.Progress()

	require.NoError(t, progress.CompleteLesson(" u1 ", lessonID))
	require.NoError(t, progress.SaveResult(&types.QuizResult{QuizID: quiz.ID, UserID: " u1", TotalQuestions: 1, CorrectAnswers: 1, Score: 100}))

	p, err := progress.Get("u1")
	require.NoError(t, err)
	assert.True(t, p.CompletedLessons[lessonID])

	for _, user := range []string{"u1", " u1", "u1 "} {
		r, err := progress.Result(user, quiz.ID)
		require.NoError(t, err, "user %q", user)
		assert.Equal(t, "u1", r.UserID)
	}

	_, err = progress.Result("  ", quiz.ID)
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestCourseDeleteCascades(t *testing.T) {
	b := setupBackend(t)
	courseID, lessonID, quiz := seedCourse(t, b)
	require.NoError(t, b.Progress().CompleteLesson("u1", lessonID))
	require.NoError(t, b.Progress().CompleteCourse("u1", courseID))
	require.NoError(t, b.Progress().SaveResult(&types.QuizResult{QuizID: quiz.ID, UserID: "u1", TotalQuestions: 1}))

	other, err := b.Courses().Set("", &types.Course{Title: "Unrelated"})
	require.NoError(t, err)

	require.NoError(t, b.Courses().Delete(courseID))

	_, err = b.Lessons().Get(lessonID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.Quizzes().Get(quiz.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.Progress().Result("u1", quiz.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	p, err := b.Progress().Get("u1")
	require.NoError(t, err)
	assert.Empty(t, p.CompletedLessons)
	assert.Empty(t, p.CompletedCourses)

	_, err = b.Courses().Get(other)
	assert.NoError(t, err, "other courses survive")

	for _, table := range []string{tableQuestions, tableAnswerOptions} {
		var n int
		require.NoError(t, b.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

func TestBackend_Reset(t *testing.T) {
	dir := t.TempDir()
	b := attachAt(t, dir)
	seedCourse(t, b)

	require.NoError(t, b.Reset())

	got, err := b.Courses().Fetch(types.CourseFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	data, err := os.ReadFile(filepath.Join(dir, jsonlFile(tableCourses)))
	require.NoError(t, err)
	assert.Empty(t, data)
}
