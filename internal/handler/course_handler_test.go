package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skillforge/skillforge-api/internal/middleware"
	"github.com/skillforge/skillforge-api/internal/models"
	"github.com/skillforge/skillforge-api/internal/service"
)

type fakeCourseRepo struct {
	courses map[string]models.Course
	deleted []string
}

func newFakeCourseRepo(courses ...models.Course) *fakeCourseRepo {
	repo := &fakeCourseRepo{courses: map[string]models.Course{}}
	for _, c := range courses {
		repo.courses[c.ID] = c
	}
	return repo
}

func (f *fakeCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return nil, 0, nil
}

func (f *fakeCourseRepo) ListByInstructor(ctx context.Context, instructorID string, page, limit int) ([]models.Course, int, error) {
	return nil, 0, nil
}

func (f *fakeCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		copied := c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCourseRepo) Create(ctx context.Context, course *models.Course) error { return nil }

func (f *fakeCourseRepo) Update(ctx context.Context, course *models.Course) error {
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourseRepo) Delete(ctx context.Context, id string) error {
	delete(f.courses, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeEnrollmentReader struct{}

func (fakeEnrollmentReader) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	return nil, sql.ErrNoRows
}

func (fakeEnrollmentReader) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return 0, nil
}

type fakeReviewReader struct{}

func (fakeReviewReader) ListByCourse(ctx context.Context, courseID string) ([]models.Review, error) {
	return nil, nil
}

func courseTestRouter(repo *fakeCourseRepo, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewCourseService(repo, fakeEnrollmentReader{}, fakeReviewReader{}, nil, validator.New(), zap.NewNop())
	h := NewCourseHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserKey, claims) })
	r.DELETE("/courses/:id", h.Delete)
	r.DELETE("/courses/:id/sections/:sectionId", h.DeleteSection)
	r.DELETE("/courses/:id/sections/:sectionId/lessons/:lessonId", h.DeleteLesson)
	return r
}

func deleteBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func ownerClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Name: "Owner", Email: id + "@example.com", Role: models.RoleTeacher}
}

func TestCourseHandlerDeleteRespondsWithBody(t *testing.T) {
	repo := newFakeCourseRepo(models.Course{ID: "c1", InstructorID: "t1"})
	r := courseTestRouter(repo, ownerClaims("t1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/courses/c1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Course deleted successfully", deleteBody(t, w)["message"])
	assert.Equal(t, []string{"c1"}, repo.deleted)
}

func TestCourseHandlerDeleteSectionRespondsWithBody(t *testing.T) {
	repo := newFakeCourseRepo(models.Course{
		ID:           "c1",
		InstructorID: "t1",
		Sections: models.SectionList{
			{ID: "sec-1", Lessons: []models.Lesson{{ID: "les-1", Duration: 30}}},
		},
	})
	r := courseTestRouter(repo, ownerClaims("t1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/courses/c1/sections/sec-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Section deleted successfully", deleteBody(t, w)["message"])
	assert.Empty(t, repo.courses["c1"].Sections)
}

func TestCourseHandlerDeleteLessonRespondsWithBody(t *testing.T) {
	repo := newFakeCourseRepo(models.Course{
		ID:           "c1",
		InstructorID: "t1",
		Sections: models.SectionList{
			{ID: "sec-1", Lessons: []models.Lesson{{ID: "les-1", Duration: 30}}},
		},
	})
	r := courseTestRouter(repo, ownerClaims("t1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/courses/c1/sections/sec-1/lessons/les-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lesson deleted successfully", deleteBody(t, w)["message"])
}
