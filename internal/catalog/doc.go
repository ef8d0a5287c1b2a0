// Package catalog implements the learning flow on top of a types.Catalog:
// browsing and editing courses, lessons and quizzes, grading submissions and
// tracking which lessons and courses each user has completed.
package catalog
