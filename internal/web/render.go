package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/mesh-intelligence/courses/internal/catalog"
	"github.com/mesh-intelligence/courses/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names. Each is a file under templates/ rendered inside layout.html.
const (
	pageCourses      = "courses.html"
	pageCourseDetail = "course_detail.html"
	pageLessonDetail = "lesson_detail.html"
	pageQuiz         = "quiz.html"
	pageQuizResult   = "quiz_result.html"
	pageCourseForm   = "course_form.html"
	pageLessonForm   = "lesson_form.html"
	pageQuizForm     = "quiz_form.html"
)

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// view is the data handed to every page template.
type view struct {
	Title  string
	UserID string
	Error  string

	Query   string
	Courses []*types.Course

	Course           *types.Course
	Lessons          []*types.Lesson
	CompletedLessons map[string]bool
	IsCompleted      bool
	CanComplete      bool

	Lesson  *types.Lesson
	Content template.HTML
	Quiz    *types.Quiz
	Result  *types.QuizResult

	CourseForm catalog.CourseInput
	LessonForm catalog.LessonInput
	Draft      types.QuizDraft
}

// renderer holds one parsed template set per page.
type renderer struct {
	pages    map[string]*template.Template
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

func newRenderer() (*renderer, error) {
	layout, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		base := name[len("templates/"):]
		if base == "layout.html" {
			continue
		}
		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if pages[base], err = clone.ParseFS(templateFS, name); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", base, err)
		}
	}

	return &renderer{
		pages:    pages,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
	}, nil
}

// html executes a page into a buffer first so that a template error can
// still produce a clean 500.
func (rd *renderer) html(w http.ResponseWriter, status int, page string, v *view) error {
	t, ok := rd.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return fmt.Errorf("rendering %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// lessonHTML converts lesson Markdown to sanitized HTML.
func (rd *renderer) lessonHTML(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := rd.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering lesson content: %w", err)
	}
	return template.HTML(rd.policy.SanitizeBytes(buf.Bytes())), nil //nolint:gosec // sanitized above
}
