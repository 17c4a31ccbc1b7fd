package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/skillforge/skillforge-api/internal/handler"
	"github.com/skillforge/skillforge-api/internal/models"
	"github.com/skillforge/skillforge-api/internal/service"
	"github.com/skillforge/skillforge-api/pkg/config"
	"github.com/skillforge/skillforge-api/pkg/export"
	"github.com/skillforge/skillforge-api/pkg/jobs"
	"github.com/skillforge/skillforge-api/pkg/mailer"
)

type stubUserRepo struct{}

func (stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, sql.ErrNoRows
}
func (stubUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}
func (stubUserRepo) Create(ctx context.Context, user *models.User) error        { return nil }
func (stubUserRepo) UpdateProfile(ctx context.Context, user *models.User) error { return nil }
func (stubUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}
func (stubUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

type stubCourseRepo struct{}

func (stubCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return nil, 0, nil
}
func (stubCourseRepo) ListByInstructor(ctx context.Context, instructorID string, page, limit int) ([]models.Course, int, error) {
	return nil, 0, nil
}
func (stubCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return nil, sql.ErrNoRows
}
func (stubCourseRepo) Create(ctx context.Context, course *models.Course) error { return nil }
func (stubCourseRepo) Update(ctx context.Context, course *models.Course) error { return nil }
func (stubCourseRepo) Delete(ctx context.Context, id string) error             { return nil }
func (stubCourseRepo) AppendEnrolledStudent(ctx context.Context, courseID, studentID string) error {
	return nil
}
func (stubCourseRepo) RecomputeRating(ctx context.Context, courseID string) error { return nil }

type stubEnrollmentRepo struct{}

func (stubEnrollmentRepo) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}
func (stubEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}
func (stubEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return nil
}
func (stubEnrollmentRepo) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	return nil
}
func (stubEnrollmentRepo) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	return nil
}
func (stubEnrollmentRepo) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return 0, nil
}
func (stubEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	return nil, nil
}

type stubReviewRepo struct{}

func (stubReviewRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Review, error) {
	return nil, nil
}
func (stubReviewRepo) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Review, error) {
	return nil, sql.ErrNoRows
}
func (stubReviewRepo) Create(ctx context.Context, review *models.Review) error { return nil }

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logr := zap.NewNop()
	validate := validator.New()
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"}

	notificationSvc := service.NewNotificationService(
		mailer.New(config.MailerConfig{}, logr),
		jobs.QueueConfig{Workers: 1},
		logr,
	)

	authSvc := service.NewAuthService(stubUserRepo{}, validate, logr, config.JWTConfig{
		Secret: "router-test", Expiry: time.Hour, Issuer: "skillforge",
	})
	courseSvc := service.NewCourseService(stubCourseRepo{}, stubEnrollmentRepo{}, stubReviewRepo{}, nil, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(stubEnrollmentRepo{}, stubCourseRepo{}, notificationSvc, export.NewCertificateRenderer(), nil, validate, logr)
	reviewSvc := service.NewReviewService(stubReviewRepo{}, stubCourseRepo{}, stubEnrollmentRepo{}, nil, validate, logr)

	return newRouter(routerDeps{
		cfg:         cfg,
		logger:      logr,
		metrics:     service.NewMetricsService(),
		auth:        authSvc,
		authH:       handler.NewAuthHandler(authSvc),
		courseH:     handler.NewCourseHandler(courseSvc),
		enrollmentH: handler.NewEnrollmentHandler(enrollmentSvc),
		reviewH:     handler.NewReviewHandler(reviewSvc),
	})
}

func registeredRoutes(r *gin.Engine) map[string]bool {
	routes := map[string]bool{}
	for _, route := range r.Routes() {
		routes[route.Method+" "+route.Path] = true
	}
	return routes
}

func TestRouterExposesPublicAPI(t *testing.T) {
	routes := registeredRoutes(testRouter())

	for _, want := range []string{
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/login",
		"GET /api/v1/auth/profile",
		"PUT /api/v1/auth/profile",
		"PUT /api/v1/auth/change-password",
		"GET /api/v1/courses",
		"POST /api/v1/courses",
		"GET /api/v1/courses/:id",
		"PUT /api/v1/courses/:id",
		"DELETE /api/v1/courses/:id",
		"PUT /api/v1/courses/:id/approval",
		"POST /api/v1/courses/:id/enroll",
		"PUT /api/v1/courses/:id/progress",
		"GET /api/v1/courses/:id/certificate",
		"POST /api/v1/courses/:id/review",
		"GET /api/v1/courses/teacher/my-courses",
		"GET /api/v1/courses/student/my-courses",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestRouterRouteSpelling(t *testing.T) {
	routes := registeredRoutes(testRouter())

	assert.False(t, routes["PUT /api/v1/auth/password"])
	assert.False(t, routes["POST /api/v1/courses/:id/reviews"])
}
