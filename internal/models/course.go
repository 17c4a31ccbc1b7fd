package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// CourseLevel is the difficulty tier of a course.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "Beginner"
	LevelIntermediate CourseLevel = "Intermediate"
	LevelAdvanced     CourseLevel = "Advanced"
)

// Lesson is owned by a Section. Identity is generated on insertion and stays
// stable across section reordering.
type Lesson struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	VideoURL    string     `json:"videoUrl"`
	Duration    int        `json:"duration"`
	Resources   StringList `json:"resources"`
	IsPreview   bool       `json:"isPreview"`
	Order       int        `json:"order"`
}

// Section is owned by a Course and carries an ordered lesson list.
type Section struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Order       int      `json:"order"`
	Lessons     []Lesson `json:"lessons"`
}

// FindLesson returns the lesson with the given id, or nil.
func (s *Section) FindLesson(lessonID string) *Lesson {
	for i := range s.Lessons {
		if s.Lessons[i].ID == lessonID {
			return &s.Lessons[i]
		}
	}
	return nil
}

// SectionList is the JSONB-backed section array embedded in the course row.
type SectionList []Section

// Value implements driver.Valuer.
func (l SectionList) Value() (driver.Value, error) {
	if l == nil {
		l = SectionList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *SectionList) Scan(src interface{}) error {
	return scanJSONB(src, l)
}

// Review is owned by a Course; at most one per student per course.
type Review struct {
	ID        string      `db:"id" json:"id"`
	CourseID  string      `db:"course_id" json:"courseId"`
	StudentID string      `db:"student_id" json:"studentId"`
	Rating    int         `db:"rating" json:"rating"`
	Comment   string      `db:"comment" json:"comment"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	Student   *PublicUser `db:"-" json:"student,omitempty"`
}

// Course is the aggregate root: metadata plus embedded ordered sections with
// lessons, the denormalized enrolled-student list, and derived rating and
// duration fields.
type Course struct {
	ID               string      `db:"id" json:"id"`
	Title            string      `db:"title" json:"title"`
	Description      string      `db:"description" json:"description"`
	Category         string      `db:"category" json:"category"`
	Level            CourseLevel `db:"level" json:"level"`
	Price            float64     `db:"price" json:"price"`
	Image            *string     `db:"image" json:"image"`
	Requirements     StringList  `db:"requirements" json:"requirements"`
	WhatYouWillLearn StringList  `db:"what_you_will_learn" json:"whatYouWillLearn"`
	Tags             StringList  `db:"tags" json:"tags"`
	InstructorID     string      `db:"instructor_id" json:"instructorId"`
	IsPublished      bool        `db:"is_published" json:"isPublished"`
	IsApproved       bool        `db:"is_approved" json:"isApproved"`
	EnrolledStudents IDList      `db:"enrolled_students" json:"enrolledStudents"`
	Sections         SectionList `db:"sections" json:"sections,omitempty"`
	Rating           float64     `db:"rating" json:"rating"`
	TotalDuration    int         `db:"total_duration" json:"totalDuration"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updatedAt"`

	Instructor *PublicUser `db:"-" json:"instructor,omitempty"`
	Reviews    []Review    `db:"-" json:"reviews,omitempty"`
}

// FindSection returns the section with the given id, or nil.
func (c *Course) FindSection(sectionID string) *Section {
	for i := range c.Sections {
		if c.Sections[i].ID == sectionID {
			return &c.Sections[i]
		}
	}
	return nil
}

// RemoveSection deletes the section by id, reporting whether it was present.
func (c *Course) RemoveSection(sectionID string) bool {
	for i := range c.Sections {
		if c.Sections[i].ID == sectionID {
			c.Sections = append(c.Sections[:i], c.Sections[i+1:]...)
			return true
		}
	}
	return false
}

// LessonCount returns the number of lessons across all sections.
func (c *Course) LessonCount() int {
	count := 0
	for i := range c.Sections {
		count += len(c.Sections[i].Lessons)
	}
	return count
}

// ComputeTotalDuration sums lesson durations across all sections, in minutes.
// Always recomputed from the lesson list, never incremented in place.
func (c *Course) ComputeTotalDuration() int {
	total := 0
	for i := range c.Sections {
		for j := range c.Sections[i].Lessons {
			total += c.Sections[i].Lessons[j].Duration
		}
	}
	return total
}

// CourseFilter captures the public listing query. MinPrice and MaxPrice are
// derived from the raw priceRange parameter before the filter reaches the
// repository.
type CourseFilter struct {
	Category string
	Level    string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	SortBy   string
	Page     int
	Limit    int
}

// Sort keys accepted by the listing endpoint. Unknown keys fall back to newest.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPopular   = "popular"
	SortRating    = "rating"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)
