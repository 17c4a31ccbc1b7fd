package models

// ListCoursesQuery is the raw public catalog query before price parsing.
type ListCoursesQuery struct {
	Category   string
	Level      string
	PriceRange string
	Search     string
	SortBy     string
	Page       int
	Limit      int
}

// CreateCourseRequest is the instructor course creation payload.
type CreateCourseRequest struct {
	Title            string      `json:"title" validate:"required"`
	Description      string      `json:"description" validate:"required"`
	Category         string      `json:"category" validate:"required"`
	Level            CourseLevel `json:"level" validate:"required,oneof=Beginner Intermediate Advanced"`
	Price            float64     `json:"price" validate:"gte=0"`
	Image            *string     `json:"image"`
	Requirements     StringList  `json:"requirements"`
	WhatYouWillLearn StringList  `json:"whatYouWillLearn"`
	Tags             StringList  `json:"tags"`
}

// UpdateCourseRequest carries a partial course update. Nil fields are
// untouched. Price and category changes on approved courses are restricted
// to admins and silently dropped for everyone else.
type UpdateCourseRequest struct {
	Title            *string      `json:"title"`
	Description      *string      `json:"description"`
	Category         *string      `json:"category"`
	Level            *CourseLevel `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Price            *float64     `json:"price" validate:"omitempty,gte=0"`
	Image            *string      `json:"image"`
	Requirements     *StringList  `json:"requirements"`
	WhatYouWillLearn *StringList  `json:"whatYouWillLearn"`
	Tags             *StringList  `json:"tags"`
	IsPublished      *bool        `json:"isPublished"`
}

// UpdateApprovalRequest toggles moderation flags. Admin only.
type UpdateApprovalRequest struct {
	IsApproved  *bool `json:"isApproved"`
	IsPublished *bool `json:"isPublished"`
}

// AddSectionRequest appends a section to the curriculum.
type AddSectionRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Order       *int   `json:"order" validate:"omitempty,gte=0"`
}

// UpdateSectionRequest carries a partial section update.
type UpdateSectionRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Order       *int    `json:"order" validate:"omitempty,gte=0"`
}

// AddLessonRequest appends a lesson to a section.
type AddLessonRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	VideoURL    string     `json:"videoUrl"`
	Duration    int        `json:"duration" validate:"gte=0"`
	Resources   StringList `json:"resources"`
	IsPreview   bool       `json:"isPreview"`
	Order       *int       `json:"order" validate:"omitempty,gte=0"`
}

// UpdateLessonRequest carries a partial lesson update.
type UpdateLessonRequest struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	VideoURL    *string     `json:"videoUrl"`
	Duration    *int        `json:"duration" validate:"omitempty,gte=0"`
	Resources   *StringList `json:"resources"`
	IsPreview   *bool       `json:"isPreview"`
	Order       *int        `json:"order" validate:"omitempty,gte=0"`
}

// AddReviewRequest is the review payload. One review per student per course.
// Out-of-range ratings are clamped to the 1 to 5 scale, not rejected.
type AddReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// UpdateProgressRequest marks a lesson complete for the caller's enrollment.
type UpdateProgressRequest struct {
	SectionID string `json:"sectionId" validate:"required"`
	LessonID  string `json:"lessonId" validate:"required"`
	Completed bool   `json:"completed"`
}
