package types

import (
	"strconv"
	"strings"
)

// Lesson is one unit of course content.
type Lesson struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Content  string `json:"content"` // Markdown.
	Order    int    `json:"order"`
}

// Validate returns ErrTitleRequired when the lesson has no title.
func (l *Lesson) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// ParseOrder converts form input to a lesson position.
// Empty or non-numeric input yields 1.
func ParseOrder(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return n
}
