package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/skillforge-api/internal/models"
)

var courseListRowColumns = []string{
	"id", "title", "description", "category", "level", "price", "image",
	"requirements", "what_you_will_learn", "tags", "instructor_id",
	"is_published", "is_approved", "enrolled_students", "rating",
	"total_duration", "created_at", "updated_at",
	"instructor_name", "instructor_email", "instructor_avatar",
}

func addCourseRow(rows *sqlmock.Rows, id string) {
	rows.AddRow(id, "Go from Scratch", "Intro to Go", "Programming", "Beginner", 49.99, nil,
		[]byte(`[]`), []byte(`[]`), []byte(`["go"]`), "tch-1",
		true, true, []byte(`["stu-1","stu-2"]`), 4.5,
		75, time.Now(), time.Now(),
		"Ada Lovelace", "ada@example.com", nil)
}

func TestCourseRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows(courseListRowColumns)
	addCourseRow(rows, "crs-1")

	minPrice, maxPrice := 10.0, 50.0
	mock.ExpectQuery(`SELECT .* FROM courses c LEFT JOIN users u ON u\.id = c\.instructor_id WHERE c\.is_published = TRUE AND c\.is_approved = TRUE AND c\.category = \$1 AND c\.level = \$2 AND c\.price >= \$3 AND c\.price <= \$4 ORDER BY c\.created_at DESC LIMIT 12 OFFSET 0`).
		WithArgs("Programming", "Beginner", minPrice, maxPrice).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM courses c`).
		WithArgs("Programming", "Beginner", minPrice, maxPrice).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{
		Category: "Programming",
		Level:    "Beginner",
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, courses, 1)
	require.Equal(t, "crs-1", courses[0].ID)
	require.NotNil(t, courses[0].Instructor)
	require.Equal(t, "Ada Lovelace", courses[0].Instructor.Name)
	require.Len(t, courses[0].EnrolledStudents, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListPopularSort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows(courseListRowColumns)
	addCourseRow(rows, "crs-1")

	mock.ExpectQuery(`ORDER BY jsonb_array_length\(c\.enrolled_students\) DESC`).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.CourseFilter{SortBy: models.SortPopular})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT .* FROM courses c").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryRecomputeRating(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET rating = COALESCE((SELECT AVG(rating)::float8 FROM reviews WHERE course_id = $1), 0), updated_at = $2 WHERE id = $1")).
		WithArgs("crs-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RecomputeRating(context.Background(), "crs-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryAppendEnrolledStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET enrolled_students = enrolled_students || jsonb_build_array($2::text), updated_at = $3 WHERE id = $1")).
		WithArgs("crs-1", "stu-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendEnrolledStudent(context.Background(), "crs-1", "stu-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSortClause(t *testing.T) {
	cases := map[string]string{
		models.SortNewest:    "c.created_at DESC",
		models.SortOldest:    "c.created_at ASC",
		models.SortPopular:   "jsonb_array_length(c.enrolled_students) DESC",
		models.SortRating:    "c.rating DESC",
		models.SortPriceLow:  "c.price ASC",
		models.SortPriceHigh: "c.price DESC",
		"bogus":              "c.created_at DESC",
		"":                   "c.created_at DESC",
	}
	for input, expected := range cases {
		require.Equal(t, expected, sortClause(input), "sort key %q", input)
	}
}
