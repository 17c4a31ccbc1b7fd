package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skillforge/skillforge-api/internal/models"
	"github.com/skillforge/skillforge-api/internal/repository"
	appErrors "github.com/skillforge/skillforge-api/pkg/errors"
	"github.com/skillforge/skillforge-api/pkg/export"
)

// EnrollmentRepository abstracts enrollment persistence.
type EnrollmentRepository interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrolledCourse, error)
}

// EnrollmentCourseRepository is the slice of course persistence the
// enrollment service needs.
type EnrollmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	AppendEnrolledStudent(ctx context.Context, courseID, studentID string) error
}

// EnrollmentService handles enrollment, per-lesson progress and completion
// certificates.
type EnrollmentService struct {
	enrollments   EnrollmentRepository
	courses       EnrollmentCourseRepository
	notifications *NotificationService
	certificates  *export.CertificateRenderer
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
}

func NewEnrollmentService(
	enrollments EnrollmentRepository,
	courses EnrollmentCourseRepository,
	notifications *NotificationService,
	certificates *export.CertificateRenderer,
	cache *CacheService,
	v *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		enrollments:   enrollments,
		courses:       courses,
		notifications: notifications,
		certificates:  certificates,
		cache:         cache,
		validator:     v,
		logger:        logger,
	}
}

// Enroll registers the acting student on a published, approved course.
// Free courses complete payment immediately; paid courses start pending.
// A duplicate enrollment is a conflict whether detected up front or by the
// unique constraint under concurrency.
func (s *EnrollmentService) Enroll(ctx context.Context, actor *models.JWTClaims, courseID string) (*models.Enrollment, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if !course.IsPublished || !course.IsApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Course is not available for enrollment")
	}

	if _, err := s.enrollments.FindByStudentAndCourse(ctx, actor.UserID, courseID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Already enrolled in this course")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	paymentStatus := models.PaymentPending
	if course.Price == 0 {
		paymentStatus = models.PaymentCompleted
	}

	enrollment := &models.Enrollment{
		StudentID:        actor.UserID,
		CourseID:         courseID,
		AmountPaid:       course.Price,
		PaymentStatus:    paymentStatus,
		CompletedLessons: models.CompletedLessonList{},
	}

	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Already enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	// The enrolled-student list is denormalized for popularity sorting;
	// staleness here is tolerable, a lost enrollment row is not.
	if err := s.courses.AppendEnrolledStudent(ctx, courseID, actor.UserID); err != nil {
		s.logger.Warn("failed to append enrolled student",
			zap.String("course_id", courseID),
			zap.String("student_id", actor.UserID),
			zap.Error(err),
		)
	}

	instructorName := ""
	if course.Instructor != nil {
		instructorName = course.Instructor.Name
	}
	s.notifications.NotifyEnrollment(EnrollmentNotification{
		Email:          actor.Email,
		StudentName:    actor.Name,
		CourseTitle:    course.Title,
		InstructorName: instructorName,
	})

	s.logger.Info("student enrolled",
		zap.String("course_id", courseID),
		zap.String("student_id", actor.UserID),
		zap.String("payment_status", string(paymentStatus)),
	)
	s.cache.Invalidate(ctx, courseListCachePattern)
	return enrollment, nil
}

// UpdateProgress marks a lesson complete on the caller's enrollment and
// recomputes the progress percentage against the course's current lesson
// count. Re-marking a completed lesson is a no-op.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor *models.JWTClaims, courseID string, req models.UpdateProgressRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}

	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, actor.UserID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	section := course.FindSection(req.SectionID)
	if section == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Section not found")
	}
	if section.FindLesson(req.LessonID) == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Lesson not found")
	}

	if req.Completed {
		enrollment.CompleteLesson(req.SectionID, req.LessonID)
	}
	enrollment.RecomputeProgress(course.LessonCount())

	if err := s.enrollments.UpdateProgress(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}
	return enrollment, nil
}

// ListMyLearning returns the caller's enrollments paired with their course
// summaries.
func (s *EnrollmentService) ListMyLearning(ctx context.Context, actor *models.JWTClaims) ([]models.EnrolledCourse, error) {
	enrolled, err := s.enrollments.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrolled, nil
}

// Certificate renders the completion certificate PDF. Only available once
// progress reaches 100 percent.
func (s *EnrollmentService) Certificate(ctx context.Context, actor *models.JWTClaims, courseID string) ([]byte, string, error) {
	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, actor.UserID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "Enrollment not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if enrollment.ProgressPercent < 100 {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "Course is not completed yet")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	instructorName := ""
	if course.Instructor != nil {
		instructorName = course.Instructor.Name
	}

	pdf, err := s.certificates.Render(export.Certificate{
		StudentName:    actor.Name,
		CourseTitle:    course.Title,
		InstructorName: instructorName,
		CompletedAt:    enrollment.UpdatedAt,
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	filename := fmt.Sprintf("certificate-%s.pdf", enrollment.ID)
	return pdf, filename, nil
}

// CompletePayment transitions a pending enrollment to completed. Invoked by
// the payment callback path; idempotent for already-completed enrollments.
func (s *EnrollmentService) CompletePayment(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if enrollment.PaymentStatus == models.PaymentCompleted {
		return enrollment, nil
	}

	if err := s.enrollments.UpdatePaymentStatus(ctx, enrollment.ID, models.PaymentCompleted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment status")
	}
	enrollment.PaymentStatus = models.PaymentCompleted

	s.logger.Info("payment completed", zap.String("enrollment_id", enrollment.ID))
	return enrollment, nil
}
