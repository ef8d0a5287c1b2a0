package types

// Progress lists what a user has completed. The maps are used as sets.
type Progress struct {
	UserID           string          `json:"user_id"`
	CompletedLessons map[string]bool `json:"completed_lessons"`
	CompletedCourses map[string]bool `json:"completed_courses"`
}

// NewProgress returns empty progress for a user.
func NewProgress(userID string) *Progress {
	return &Progress{
		UserID:           userID,
		CompletedLessons: make(map[string]bool),
		CompletedCourses: make(map[string]bool),
	}
}

// CompletedAll reports whether every lesson in lessonIDs is completed.
// An empty list is never complete: a course without lessons cannot be finished.
func (p *Progress) CompletedAll(lessonIDs []string) bool {
	if len(lessonIDs) == 0 {
		return false
	}
	for _, id := range lessonIDs {
		if !p.CompletedLessons[id] {
			return false
		}
	}
	return true
}
