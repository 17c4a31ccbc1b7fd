package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrollmentCompleteLessonIdempotent(t *testing.T) {
	e := Enrollment{}
	e.CompleteLesson("sec-1", "les-1")
	e.CompleteLesson("sec-1", "les-1")
	e.CompleteLesson("sec-1", "les-2")

	assert.Len(t, e.CompletedLessons, 2)
	assert.True(t, e.CompletedLessons.Contains("sec-1", "les-1"))
	assert.False(t, e.CompletedLessons.Contains("sec-2", "les-1"))
}

func TestEnrollmentRecomputeProgress(t *testing.T) {
	e := Enrollment{}
	e.RecomputeProgress(3)
	assert.Zero(t, e.ProgressPercent)

	e.CompleteLesson("sec-1", "les-1")
	e.RecomputeProgress(3)
	assert.Equal(t, 33.0, e.ProgressPercent)

	e.CompleteLesson("sec-1", "les-2")
	e.RecomputeProgress(3)
	assert.Equal(t, 67.0, e.ProgressPercent)

	e.CompleteLesson("sec-2", "les-3")
	e.RecomputeProgress(3)
	assert.Equal(t, 100.0, e.ProgressPercent)
}

func TestEnrollmentRecomputeProgressNoLessons(t *testing.T) {
	e := Enrollment{ProgressPercent: 50}
	e.RecomputeProgress(0)
	assert.Zero(t, e.ProgressPercent)
}

func TestEnrollmentRecomputeProgressCapsAtFull(t *testing.T) {
	// Lessons removed from the course after completion must not push the
	// percentage above 100.
	e := Enrollment{}
	e.CompleteLesson("sec-1", "les-1")
	e.CompleteLesson("sec-1", "les-2")
	e.CompleteLesson("sec-1", "les-3")
	e.RecomputeProgress(2)
	assert.Equal(t, 100.0, e.ProgressPercent)
}
