package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skillforge/skillforge-api/internal/models"
	"github.com/skillforge/skillforge-api/internal/repository"
	appErrors "github.com/skillforge/skillforge-api/pkg/errors"
)

type mockReviewRepo struct {
	reviews    map[string]models.Review
	created    *models.Review
	failCreate error
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{reviews: map[string]models.Review{}}
}

func (m *mockReviewRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Review, error) {
	var list []models.Review
	for _, r := range m.reviews {
		if r.CourseID == courseID {
			list = append(list, r)
		}
	}
	return list, nil
}

func (m *mockReviewRepo) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Review, error) {
	for _, r := range m.reviews {
		if r.StudentID == studentID && r.CourseID == courseID {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	if review.ID == "" {
		review.ID = fmt.Sprintf("review-%d", len(m.reviews)+1)
	}
	m.created = review
	m.reviews[review.ID] = *review
	return nil
}

func newReviewService(reviews *mockReviewRepo, courses *mockCourseRepo, enrollments *mockEnrollmentReader) *ReviewService {
	if enrollments == nil {
		enrollments = &mockEnrollmentReader{}
	}
	return NewReviewService(reviews, courses, enrollments, nil, validator.New(), zap.NewNop())
}

func enrolledReader(studentID, courseID string) *mockEnrollmentReader {
	return &mockEnrollmentReader{enrollments: map[string]models.Enrollment{
		enrollKey(studentID, courseID): {ID: "e1", StudentID: studentID, CourseID: courseID},
	}}
}

func TestReviewServiceAddReview(t *testing.T) {
	courses := newMockCourseRepo(publishedCourse("c1", "t1"))
	reviews := newMockReviewRepo()
	svc := newReviewService(reviews, courses, enrolledReader("s1", "c1"))

	review, err := svc.AddReview(context.Background(), studentClaims("s1"), "c1", models.AddReviewRequest{
		Rating:  5,
		Comment: "Great course",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, "s1", review.StudentID)
	assert.Contains(t, courses.rated, "c1")
}

func TestReviewServiceRequiresEnrollment(t *testing.T) {
	courses := newMockCourseRepo(publishedCourse("c1", "t1"))
	svc := newReviewService(newMockReviewRepo(), courses, nil)

	_, err := svc.AddReview(context.Background(), studentClaims("s1"), "c1", models.AddReviewRequest{Rating: 4})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErr.Status)
	assert.Equal(t, "You must be enrolled to review this course", appErr.Message)
}

func TestReviewServiceRejectsDuplicate(t *testing.T) {
	courses := newMockCourseRepo(publishedCourse("c1", "t1"))
	reviews := newMockReviewRepo()
	reviews.reviews["r1"] = models.Review{ID: "r1", CourseID: "c1", StudentID: "s1", Rating: 4}
	svc := newReviewService(reviews, courses, enrolledReader("s1", "c1"))

	_, err := svc.AddReview(context.Background(), studentClaims("s1"), "c1", models.AddReviewRequest{Rating: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestReviewServiceConcurrentDuplicate(t *testing.T) {
	courses := newMockCourseRepo(publishedCourse("c1", "t1"))
	reviews := newMockReviewRepo()
	reviews.failCreate = repository.ErrDuplicate
	svc := newReviewService(reviews, courses, enrolledReader("s1", "c1"))

	_, err := svc.AddReview(context.Background(), studentClaims("s1"), "c1", models.AddReviewRequest{Rating: 5})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestReviewServiceClampsRating(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{in: 0, want: 1},
		{in: -1, want: 1},
		{in: 6, want: 5},
		{in: 3, want: 3},
	}
	for _, tc := range cases {
		courses := newMockCourseRepo(publishedCourse("c1", "t1"))
		svc := newReviewService(newMockReviewRepo(), courses, enrolledReader("s1", "c1"))

		review, err := svc.AddReview(context.Background(), studentClaims("s1"), "c1", models.AddReviewRequest{Rating: tc.in})
		require.NoError(t, err, "rating %d", tc.in)
		assert.Equal(t, tc.want, review.Rating, "rating %d", tc.in)
	}
}

// meanRatingCourseRepo recomputes the course rating from the stored reviews
// the way the AVG query does.
type meanRatingCourseRepo struct {
	courses *mockCourseRepo
	reviews *mockReviewRepo
}

func (m *meanRatingCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return m.courses.FindByID(ctx, id)
}

func (m *meanRatingCourseRepo) RecomputeRating(ctx context.Context, courseID string) error {
	list, err := m.reviews.ListByCourse(ctx, courseID)
	if err != nil || len(list) == 0 {
		return err
	}
	sum := 0
	for _, r := range list {
		sum += r.Rating
	}
	course := m.courses.courses[courseID]
	course.Rating = float64(sum) / float64(len(list))
	m.courses.courses[courseID] = course
	return nil
}

func TestReviewServiceRecomputesMeanRating(t *testing.T) {
	courses := newMockCourseRepo(publishedCourse("c1", "t1"))
	reviews := newMockReviewRepo()
	enrollments := &mockEnrollmentReader{enrollments: map[string]models.Enrollment{}}
	svc := NewReviewService(reviews, &meanRatingCourseRepo{courses: courses, reviews: reviews}, enrollments, nil, validator.New(), zap.NewNop())

	for i, rating := range []int{5, 3, 4} {
		studentID := fmt.Sprintf("s%d", i+1)
		enrollments.enrollments[enrollKey(studentID, "c1")] = models.Enrollment{StudentID: studentID, CourseID: "c1"}

		_, err := svc.AddReview(context.Background(), studentClaims(studentID), "c1", models.AddReviewRequest{Rating: rating})
		require.NoError(t, err)
	}

	assert.InDelta(t, 4.0, courses.courses["c1"].Rating, 1e-9)
}

func TestReviewServiceUnknownCourse(t *testing.T) {
	svc := newReviewService(newMockReviewRepo(), newMockCourseRepo(), nil)

	_, err := svc.AddReview(context.Background(), studentClaims("s1"), "missing", models.AddReviewRequest{Rating: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}
