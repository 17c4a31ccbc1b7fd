package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/skillforge-api/internal/models"
	appErrors "github.com/skillforge/skillforge-api/pkg/errors"
)

const (
	defaultCatalogLimit = 12
	defaultTeacherLimit = 10

	courseListCachePattern = "courses:list:*"
)

// CourseRepository abstracts course persistence for the course service.
type CourseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	ListByInstructor(ctx context.Context, instructorID string, page, limit int) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseEnrollmentReader is the slice of enrollment persistence the course
// service needs for visibility checks and the delete guard.
type CourseEnrollmentReader interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

// CourseReviewReader loads reviews for course detail responses.
type CourseReviewReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Review, error)
}

// CourseList is the catalog page payload, also the cached shape.
type CourseList struct {
	Courses    []models.Course    `json:"courses"`
	Pagination *models.Pagination `json:"pagination"`
}

// CourseDetail decorates a course with the viewer's enrollment state.
type CourseDetail struct {
	*models.Course
	IsEnrolled bool               `json:"isEnrolled"`
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
}

// CourseService implements catalog browsing and instructor course management.
type CourseService struct {
	courses     CourseRepository
	enrollments CourseEnrollmentReader
	reviews     CourseReviewReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

func NewCourseService(
	courses CourseRepository,
	enrollments CourseEnrollmentReader,
	reviews CourseReviewReader,
	cache *CacheService,
	v *validator.Validate,
	logger *zap.Logger,
) *CourseService {
	return &CourseService{
		courses:     courses,
		enrollments: enrollments,
		reviews:     reviews,
		cache:       cache,
		validator:   v,
		logger:      logger,
	}
}

// ListCourses returns the public catalog page. Only published and approved
// courses are visible regardless of the caller. Results are cached per
// distinct query.
func (s *CourseService) ListCourses(ctx context.Context, q models.ListCoursesQuery) (*CourseList, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultCatalogLimit
	}

	cacheKey := fmt.Sprintf("courses:list:%s:%s:%s:%s:%s:%d:%d",
		q.Category, q.Level, q.PriceRange, q.Search, q.SortBy, q.Page, q.Limit)

	var cached CourseList
	if s.cache.GetJSON(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	minPrice, maxPrice := parsePriceRange(q.PriceRange)
	filter := models.CourseFilter{
		Category: q.Category,
		Level:    q.Level,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Search:   q.Search,
		SortBy:   q.SortBy,
		Page:     q.Page,
		Limit:    q.Limit,
	}

	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	result := &CourseList{
		Courses:    courses,
		Pagination: models.NewPagination(q.Page, q.Limit, total),
	}
	s.cache.SetJSON(ctx, cacheKey, result)
	return result, nil
}

// GetCourse loads a single course with its reviews. Unpublished or
// unapproved courses are only visible to their instructor and admins.
// An authenticated viewer also gets their enrollment state.
func (s *CourseService) GetCourse(ctx context.Context, id string, viewer *models.JWTClaims) (*CourseDetail, error) {
	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if !course.IsPublished || !course.IsApproved {
		if viewer == nil || (viewer.UserID != course.InstructorID && viewer.Role != models.RoleAdmin) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
	}

	reviews, err := s.reviews.ListByCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reviews")
	}
	course.Reviews = reviews

	detail := &CourseDetail{Course: course}
	if viewer != nil {
		enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, viewer.UserID, course.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if enrollment != nil {
			detail.IsEnrolled = true
			detail.Enrollment = enrollment
		}
	}
	return detail, nil
}

// CreateCourse registers a new course owned by the acting instructor.
// New courses start unpublished and unapproved.
func (s *CourseService) CreateCourse(ctx context.Context, actor *models.JWTClaims, req models.CreateCourseRequest) (*models.Course, error) {
	if actor.Role != models.RoleTeacher && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only teachers can create courses")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Level:            req.Level,
		Price:            req.Price,
		Image:            req.Image,
		Requirements:     req.Requirements,
		WhatYouWillLearn: req.WhatYouWillLearn,
		Tags:             req.Tags,
		InstructorID:     actor.UserID,
		Sections:         models.SectionList{},
		EnrolledStudents: models.IDList{},
	}

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("instructor_id", actor.UserID),
	)
	return course, nil
}

// UpdateCourse applies a partial update. Once a course is approved, price and
// category changes are dropped unless the actor is an admin.
func (s *CourseService) UpdateCourse(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureCourseOwner(actor, course); err != nil {
		return nil, err
	}

	if course.IsApproved && actor.Role != models.RoleAdmin {
		req.Price = nil
		req.Category = nil
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.Image != nil {
		course.Image = req.Image
	}
	if req.Requirements != nil {
		course.Requirements = *req.Requirements
	}
	if req.WhatYouWillLearn != nil {
		course.WhatYouWillLearn = *req.WhatYouWillLearn
	}
	if req.Tags != nil {
		course.Tags = *req.Tags
	}
	if req.IsPublished != nil {
		course.IsPublished = *req.IsPublished
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.cache.Invalidate(ctx, courseListCachePattern)
	return course, nil
}

// DeleteCourse removes a course. A course with enrollments is protected;
// only admins may force the deletion.
func (s *CourseService) DeleteCourse(ctx context.Context, actor *models.JWTClaims, id string) error {
	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return err
	}
	if err := ensureCourseOwner(actor, course); err != nil {
		return err
	}

	enrolled, err := s.enrollments.CountByCourse(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if enrolled > 0 && actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrConflict, "Cannot delete course with active enrollments")
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.logger.Info("course deleted",
		zap.String("course_id", id),
		zap.String("actor_id", actor.UserID),
		zap.Int("enrollments", enrolled),
	)
	s.cache.Invalidate(ctx, courseListCachePattern)
	return nil
}

// ListMyCourses returns the acting instructor's own courses, drafts included.
func (s *CourseService) ListMyCourses(ctx context.Context, actor *models.JWTClaims, page, limit int) (*CourseList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultTeacherLimit
	}

	courses, total, err := s.courses.ListByInstructor(ctx, actor.UserID, page, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor courses")
	}
	return &CourseList{
		Courses:    courses,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

// UpdateApproval toggles the moderation flags on a course. Admin only;
// role enforcement happens in the router but is also asserted here.
func (s *CourseService) UpdateApproval(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateApprovalRequest) (*models.Course, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only admins can moderate courses")
	}
	if req.IsApproved == nil && req.IsPublished == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Nothing to update")
	}

	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.IsApproved != nil {
		course.IsApproved = *req.IsApproved
	}
	if req.IsPublished != nil {
		course.IsPublished = *req.IsPublished
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.logger.Info("course moderation updated",
		zap.String("course_id", course.ID),
		zap.Bool("approved", course.IsApproved),
		zap.Bool("published", course.IsPublished),
	)
	s.cache.Invalidate(ctx, courseListCachePattern)
	return course, nil
}

// AddSection appends a section to the course curriculum. The order defaults
// to the current section count.
func (s *CourseService) AddSection(ctx context.Context, actor *models.JWTClaims, courseID string, req models.AddSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := ensureCourseOwner(actor, course); err != nil {
		return nil, err
	}

	order := len(course.Sections)
	if req.Order != nil {
		order = *req.Order
	}

	section := models.Section{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Order:       order,
		Lessons:     []models.Lesson{},
	}
	course.Sections = append(course.Sections, section)
	sortSections(course)

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add section")
	}
	s.cache.Invalidate(ctx, courseListCachePattern)
	return &section, nil
}

// UpdateSection applies a partial section update.
func (s *CourseService) UpdateSection(ctx context.Context, actor *models.JWTClaims, courseID, sectionID string, req models.UpdateSectionRequest) (*models.Section, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := ensureCourseOwner(actor, course); err != nil {
		return nil, err
	}

	section := course.FindSection(sectionID)
	if section == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Section not found")
	}

	if req.Title != nil {
		section.Title = *req.Title
	}
	if req.Description != nil {
		section.Description = *req.Description
	}
	if req.Order != nil {
		section.Order = *req.Order
	}
	sortSections(course)

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	s.cache.Invalidate(ctx, courseListCachePattern)
	return course.FindSection(sectionID), nil
}

// DeleteSection removes a section and its lessons, then recomputes the
// total duration.
func (s *CourseService) DeleteSection(ctx context.Context, actor *models.JWTClaims, courseID, sectionID string) error {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if err := ensureCourseOwner(actor, course); err != nil {
		return err
	}

	if !course.RemoveSection(sectionID) {
		return appErrors.Clone(appErrors.ErrNotFound, "Section not found")
	}
	course.TotalDuration = course.ComputeTotalDuration()

	if err := s.courses.Update(ctx, course); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	s.cache.Invalidate(ctx, courseListCachePattern)
	return nil
}

// AddLesson appends a lesson to a section and recomputes the total duration.
func (s *CourseService) AddLesson(ctx context.Context, actor *models.JWTClaims, courseID, sectionID string, req models.AddLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := ensureCourseOwner(actor, course); err != nil {
		return nil, err
	}

	section := course.FindSection(sectionID)
	if section == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Section not found")
	}

	order := len(section.Lessons)
	if req.Order != nil {
		order = *req.Order
	}

	lesson := models.Lesson{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		Duration:    req.Duration,
		Resources:   req.Resources,
		IsPreview:   req.IsPreview,
		Order:       order,
	}
	section.Lessons = append(section.Lessons, lesson)
	sortLessons(section)
	course.TotalDuration = course.ComputeTotalDuration()

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add lesson")
	}
	s.cache.Invalidate(ctx, courseListCachePattern)
	return &lesson, nil
}

// UpdateLesson applies a partial lesson update and recomputes the total
// duration.
func (s *CourseService) UpdateLesson(ctx context.Context, actor *models.JWTClaims, courseID, sectionID, lessonID string, req models.UpdateLessonRequest) (*models.Lesson, error) {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := ensureCourseOwner(actor, course); err != nil {
		return nil, err
	}

	section := course.FindSection(sectionID)
	if section == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Section not found")
	}
	lesson := section.FindLesson(lessonID)
	if lesson == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Lesson not found")
	}

	if req.Title != nil {
		lesson.Title = *req.Title
	}
	if req.Description != nil {
		lesson.Description = *req.Description
	}
	if req.VideoURL != nil {
		lesson.VideoURL = *req.VideoURL
	}
	if req.Duration != nil {
		lesson.Duration = *req.Duration
	}
	if req.Resources != nil {
		lesson.Resources = *req.Resources
	}
	if req.IsPreview != nil {
		lesson.IsPreview = *req.IsPreview
	}
	if req.Order != nil {
		lesson.Order = *req.Order
	}
	sortLessons(section)
	course.TotalDuration = course.ComputeTotalDuration()

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	s.cache.Invalidate(ctx, courseListCachePattern)
	return section.FindLesson(lessonID), nil
}

// DeleteLesson removes a lesson and recomputes the total duration.
func (s *CourseService) DeleteLesson(ctx context.Context, actor *models.JWTClaims, courseID, sectionID, lessonID string) error {
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if err := ensureCourseOwner(actor, course); err != nil {
		return err
	}

	section := course.FindSection(sectionID)
	if section == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "Section not found")
	}

	removed := false
	for i := range section.Lessons {
		if section.Lessons[i].ID == lessonID {
			section.Lessons = append(section.Lessons[:i], section.Lessons[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "Lesson not found")
	}
	course.TotalDuration = course.ComputeTotalDuration()

	if err := s.courses.Update(ctx, course); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	s.cache.Invalidate(ctx, courseListCachePattern)
	return nil
}

func (s *CourseService) loadCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func ensureCourseOwner(actor *models.JWTClaims, course *models.Course) error {
	if actor.UserID == course.InstructorID || actor.Role == models.RoleAdmin {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "Not authorized to modify this course")
}

func sortSections(course *models.Course) {
	sort.SliceStable(course.Sections, func(i, j int) bool {
		return course.Sections[i].Order < course.Sections[j].Order
	})
}

func sortLessons(section *models.Section) {
	sort.SliceStable(section.Lessons, func(i, j int) bool {
		return section.Lessons[i].Order < section.Lessons[j].Order
	})
}

// parsePriceRange interprets the catalog priceRange parameter. Supported
// forms are "free", "min-max" and "min+". Anything else applies no filter.
func parsePriceRange(raw string) (minPrice, maxPrice *float64) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return nil, nil
	}
	if raw == "free" {
		zero := 0.0
		return &zero, &zero
	}
	if strings.HasSuffix(raw, "+") {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "+"), 64); err == nil && v >= 0 {
			return &v, nil
		}
		return nil, nil
	}
	if lo, hi, ok := strings.Cut(raw, "-"); ok {
		loVal, loErr := strconv.ParseFloat(lo, 64)
		hiVal, hiErr := strconv.ParseFloat(hi, 64)
		if loErr == nil && hiErr == nil && loVal >= 0 && hiVal >= loVal {
			return &loVal, &hiVal
		}
	}
	return nil, nil
}
