package models

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"
)

// PaymentStatus tracks the payment state of an enrollment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// CompletedLesson identifies a finished lesson within its section.
type CompletedLesson struct {
	SectionID string `json:"sectionId"`
	LessonID  string `json:"lessonId"`
}

// CompletedLessonList is the JSONB-backed completion set.
type CompletedLessonList []CompletedLesson

// Value implements driver.Valuer.
func (l CompletedLessonList) Value() (driver.Value, error) {
	if l == nil {
		l = CompletedLessonList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *CompletedLessonList) Scan(src interface{}) error {
	return scanJSONB(src, l)
}

// Contains reports whether the (section, lesson) pair is already completed.
func (l CompletedLessonList) Contains(sectionID, lessonID string) bool {
	for _, cl := range l {
		if cl.SectionID == sectionID && cl.LessonID == lessonID {
			return true
		}
	}
	return false
}

// Enrollment links a student to a course and owns the per-lesson completion
// state. It references course and user by identity so in-place course edits
// never disturb it. At most one enrollment exists per (student, course);
// the table carries a unique constraint on the pair.
type Enrollment struct {
	ID               string              `db:"id" json:"id"`
	StudentID        string              `db:"student_id" json:"studentId"`
	CourseID         string              `db:"course_id" json:"courseId"`
	AmountPaid       float64             `db:"amount_paid" json:"amountPaid"`
	PaymentStatus    PaymentStatus       `db:"payment_status" json:"paymentStatus"`
	CompletedLessons CompletedLessonList `db:"completed_lessons" json:"completedLessons"`
	ProgressPercent  float64             `db:"progress_percent" json:"progressPercent"`
	CreatedAt        time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updatedAt"`
}

// CompleteLesson adds the pair to the completion set. Idempotent: re-marking
// an already-completed lesson is a no-op.
func (e *Enrollment) CompleteLesson(sectionID, lessonID string) {
	if e.CompletedLessons.Contains(sectionID, lessonID) {
		return
	}
	e.CompletedLessons = append(e.CompletedLessons, CompletedLesson{SectionID: sectionID, LessonID: lessonID})
}

// RecomputeProgress derives the progress percentage from the completion set
// and the course's current lesson count. Rounded half-up to the nearest whole
// percent; zero when the course has no lessons.
func (e *Enrollment) RecomputeProgress(totalLessons int) {
	if totalLessons <= 0 {
		e.ProgressPercent = 0
		return
	}
	completed := len(e.CompletedLessons)
	if completed > totalLessons {
		completed = totalLessons
	}
	e.ProgressPercent = math.Round(float64(completed) / float64(totalLessons) * 100)
}

// EnrolledCourse pairs an enrollment with a course summary for the student
// dashboard listing.
type EnrolledCourse struct {
	Enrollment Enrollment `json:"enrollment"`
	Course     Course     `json:"course"`
}
