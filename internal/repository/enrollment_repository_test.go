package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/skillforge-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryFindByStudentAndCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "amount_paid", "payment_status", "completed_lessons", "progress_percent", "created_at", "updated_at"}).
		AddRow("enr-1", "stu-1", "crs-1", 49.99, "pending", []byte(`[{"sectionId":"sec-1","lessonId":"les-1"}]`), 33.0, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, course_id, amount_paid, payment_status, completed_lessons, progress_percent, created_at, updated_at FROM enrollments WHERE student_id = $1 AND course_id = $2")).
		WithArgs("stu-1", "crs-1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByStudentAndCourse(context.Background(), "stu-1", "crs-1")
	require.NoError(t, err)
	require.Equal(t, "enr-1", enrollment.ID)
	require.True(t, enrollment.CompletedLessons.Contains("sec-1", "les-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByStudentAndCourseNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT .* FROM enrollments WHERE student_id").
		WithArgs("stu-1", "crs-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStudentAndCourse(context.Background(), "stu-1", "crs-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Enrollment{
		StudentID:     "stu-1",
		CourseID:      "crs-1",
		PaymentStatus: models.PaymentPending,
	})
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{StudentID: "stu-1", CourseID: "crs-1", PaymentStatus: models.PaymentCompleted}
	err := repo.Create(context.Background(), enrollment)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.NotNil(t, enrollment.CompletedLessons)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByCourse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_id = $1")).
		WithArgs("crs-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByCourse(context.Background(), "crs-1")
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdatePaymentStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET payment_status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("enr-1", models.PaymentCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePaymentStatus(context.Background(), "enr-1", models.PaymentCompleted)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "student_id", "course_id", "amount_paid", "payment_status", "completed_lessons", "progress_percent", "created_at", "updated_at",
		"course_title", "course_category", "course_level", "course_price", "course_image", "course_rating", "course_duration", "course_instructor_id",
	}).AddRow("enr-1", "stu-1", "crs-1", 0.0, "completed", []byte(`[]`), 0.0, time.Now(), time.Now(),
		"Go from Scratch", "Programming", "Beginner", 0.0, nil, 4.5, 75, "tch-1")

	mock.ExpectQuery("SELECT e.id, e.student_id, .* FROM enrollments e JOIN courses c ON c.id = e.course_id").
		WithArgs("stu-1").
		WillReturnRows(rows)

	enrolled, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	require.Equal(t, "Go from Scratch", enrolled[0].Course.Title)
	require.Equal(t, "crs-1", enrolled[0].Course.ID)
	require.Equal(t, 75, enrolled[0].Course.TotalDuration)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateUniquePassesThroughOtherErrors(t *testing.T) {
	plain := errors.New("connection reset")
	require.Equal(t, plain, translateUnique(plain))
	require.Equal(t, ErrDuplicate, translateUnique(&pq.Error{Code: "23505"}))
}
