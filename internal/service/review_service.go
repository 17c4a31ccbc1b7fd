package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skillforge/skillforge-api/internal/models"
	"github.com/skillforge/skillforge-api/internal/repository"
	appErrors "github.com/skillforge/skillforge-api/pkg/errors"
)

// ReviewRepository abstracts review persistence.
type ReviewRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Review, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
}

// ReviewCourseRepository is the slice of course persistence the review
// service needs.
type ReviewCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	RecomputeRating(ctx context.Context, courseID string) error
}

// ReviewEnrollmentReader verifies the reviewer is actually enrolled.
type ReviewEnrollmentReader interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

// ReviewService handles course reviews and the derived rating.
type ReviewService struct {
	reviews     ReviewRepository
	courses     ReviewCourseRepository
	enrollments ReviewEnrollmentReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

func NewReviewService(
	reviews ReviewRepository,
	courses ReviewCourseRepository,
	enrollments ReviewEnrollmentReader,
	cache *CacheService,
	v *validator.Validate,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:     reviews,
		courses:     courses,
		enrollments: enrollments,
		cache:       cache,
		validator:   v,
		logger:      logger,
	}
}

// AddReview records a review from an enrolled student and recomputes the
// course rating as the mean of all review ratings. The rating is clamped to
// the 1 to 5 scale. At most one review per student per course; the unique
// constraint backstops concurrent submits.
func (s *ReviewService) AddReview(ctx context.Context, actor *models.JWTClaims, courseID string, req models.AddReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	rating := req.Rating
	if rating < 1 {
		rating = 1
	} else if rating > 5 {
		rating = 5
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if _, err := s.enrollments.FindByStudentAndCourse(ctx, actor.UserID, course.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "You must be enrolled to review this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	if _, err := s.reviews.FindByStudentAndCourse(ctx, actor.UserID, course.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "You have already reviewed this course")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing review")
	}

	review := &models.Review{
		CourseID:  course.ID,
		StudentID: actor.UserID,
		Rating:    rating,
		Comment:   req.Comment,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "You have already reviewed this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}

	if err := s.courses.RecomputeRating(ctx, course.ID); err != nil {
		s.logger.Warn("failed to recompute course rating",
			zap.String("course_id", course.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("review added",
		zap.String("course_id", course.ID),
		zap.String("student_id", actor.UserID),
		zap.Int("rating", rating),
	)
	s.cache.Invalidate(ctx, courseListCachePattern)
	return review, nil
}
