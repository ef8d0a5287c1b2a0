// Package seed loads the demo catalog shipped with the binary.
package seed

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/courses/pkg/types"
)

//go:embed demo.yaml
var demoYAML []byte

// File is the layout of a seed document.
type File struct {
	Courses []CourseDTO `yaml:"courses"`
}

// CourseDTO describes one course with its lessons.
type CourseDTO struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Published   bool        `yaml:"published"`
	Lessons     []LessonDTO `yaml:"lessons"`
}

// LessonDTO describes one lesson and its optional quiz.
type LessonDTO struct {
	Title   string   `yaml:"title"`
	Order   int      `yaml:"order"`
	Content string   `yaml:"content"`
	Quiz    *QuizDTO `yaml:"quiz"`
}

// QuizDTO is a single-question quiz. Correct is the 1-based position of the
// right option.
type QuizDTO struct {
	Title    string   `yaml:"title"`
	Question string   `yaml:"question"`
	Correct  int      `yaml:"correct"`
	Options  []string `yaml:"options"`
}

// Summary counts what a load inserted.
type Summary struct {
	Courses int
	Lessons int
	Quizzes int
}

// Demo returns the embedded demo catalog.
func Demo() (*File, error) {
	return Parse(demoYAML)
}

// Parse decodes a seed document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &f, nil
}

// Load empties the catalog, including all user progress, and inserts the
// embedded demo courses.
func Load(store types.Catalog) (*Summary, error) {
	f, err := Demo()
	if err != nil {
		return nil, err
	}
	if err := store.Reset(); err != nil {
		return nil, fmt.Errorf("resetting catalog: %w", err)
	}
	return f.Apply(store)
}

// Apply inserts the courses of f into the catalog without removing anything.
func (f *File) Apply(store types.Catalog) (*Summary, error) {
	var sum Summary
	for _, cd := range f.Courses {
		desc := cd.Description
		course := &types.Course{Title: cd.Title, Description: &desc, IsPublished: cd.Published}
		courseID, err := store.Courses().Set("", course)
		if err != nil {
			return nil, fmt.Errorf("course %q: %w", cd.Title, err)
		}
		sum.Courses++

		for _, ld := range cd.Lessons {
			lesson := &types.Lesson{CourseID: courseID, Title: ld.Title, Content: ld.Content, Order: ld.Order}
			lessonID, err := store.Lessons().Set("", lesson)
			if err != nil {
				return nil, fmt.Errorf("lesson %q: %w", ld.Title, err)
			}
			sum.Lessons++

			if ld.Quiz == nil {
				continue
			}
			if _, err := store.Quizzes().Set("", ld.Quiz.quiz(lessonID)); err != nil {
				return nil, fmt.Errorf("quiz %q: %w", ld.Quiz.Title, err)
			}
			sum.Quizzes++
		}
	}
	return &sum, nil
}

func (q *QuizDTO) quiz(lessonID string) *types.Quiz {
	question := types.Question{Text: q.Question}
	for i, text := range q.Options {
		question.Options = append(question.Options, types.AnswerOption{
			Text:      text,
			IsCorrect: i+1 == q.Correct,
		})
	}
	return &types.Quiz{LessonID: lessonID, Title: q.Title, Questions: []types.Question{question}}
}
