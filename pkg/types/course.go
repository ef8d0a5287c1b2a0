package types

import (
	"strings"
	"time"
)

// Course is a published or draft collection of lessons.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"` // nil when the course has no description.
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Normalize trims the title and description. A blank description becomes nil.
func (c *Course) Normalize() {
	c.Title = strings.TrimSpace(c.Title)
	if c.Description != nil {
		d := strings.TrimSpace(*c.Description)
		if d == "" {
			c.Description = nil
		} else {
			c.Description = &d
		}
	}
}

// Validate returns ErrTitleRequired when the course has no title.
func (c *Course) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// Matches reports whether query occurs in the title or description,
// ignoring case. An empty query matches every course.
func (c *Course) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Title), q) {
		return true
	}
	return c.Description != nil && strings.Contains(strings.ToLower(*c.Description), q)
}

// DescriptionText returns the description or an empty string.
func (c *Course) DescriptionText() string {
	if c.Description == nil {
		return ""
	}
	return *c.Description
}
