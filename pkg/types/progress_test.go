package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressCompletedAll(t *testing.T) {
	p := NewProgress("u1")
	p.CompletedLessons["l1"] = true

	assert.False(t, p.CompletedAll(nil), "a course without lessons is never complete")
	assert.True(t, p.CompletedAll([]string{"l1"}))
	assert.False(t, p.CompletedAll([]string{"l1", "l2"}))

	p.CompletedLessons["l2"] = true
	assert.True(t, p.CompletedAll([]string{"l1", "l2"}))
}

func TestLookupErrorsWrapNotFound(t *testing.T) {
	for _, err := range []error{ErrCourseNotFound, ErrLessonNotFound, ErrQuizNotFound} {
		assert.True(t, errors.Is(err, ErrNotFound), err.Error())
	}
	assert.False(t, errors.Is(ErrTitleRequired, ErrNotFound))
}
