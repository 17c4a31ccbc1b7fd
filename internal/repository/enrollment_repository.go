package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillforge/skillforge-api/internal/models"
)

const enrollmentColumns = `id, student_id, course_id, amount_paid, payment_status, completed_lessons, progress_percent, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByStudentAndCourse returns the enrollment for the pair, if any.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindByID returns an enrollment by identifier.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1 LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by id: %w", err)
	}
	return &enrollment, nil
}

// CountByCourse reports how many enrollments reference the course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// Create persists a new enrollment. The unique (student, course) constraint
// rejects a concurrent duplicate as ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.CompletedLessons == nil {
		enrollment.CompletedLessons = models.CompletedLessonList{}
	}

	const query = `INSERT INTO enrollments (id, student_id, course_id, amount_paid, payment_status, completed_lessons, progress_percent, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :amount_paid, :payment_status, :completed_lessons, :progress_percent, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if err := translateUnique(err); err == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateProgress persists the completion set and derived percentage.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET completed_lessons = :completed_lessons, progress_percent = :progress_percent, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return nil
}

// UpdatePaymentStatus transitions the payment state.
func (r *EnrollmentRepository) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	const query = `UPDATE enrollments SET payment_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

type enrolledCourseRow struct {
	models.Enrollment
	CourseTitle    string             `db:"course_title"`
	CourseCategory string             `db:"course_category"`
	CourseLevel    models.CourseLevel `db:"course_level"`
	CoursePrice    float64            `db:"course_price"`
	CourseImage    *string            `db:"course_image"`
	CourseRating   float64            `db:"course_rating"`
	CourseDuration int                `db:"course_duration"`
	InstructorID   string             `db:"course_instructor_id"`
}

// ListByStudent returns the student's enrollments joined with course
// summaries, newest enrollment first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	const query = `SELECT e.id, e.student_id, e.course_id, e.amount_paid, e.payment_status, e.completed_lessons, e.progress_percent, e.created_at, e.updated_at,
        c.title AS course_title, c.category AS course_category, c.level AS course_level, c.price AS course_price,
        c.image AS course_image, c.rating AS course_rating, c.total_duration AS course_duration, c.instructor_id AS course_instructor_id
        FROM enrollments e JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 ORDER BY e.created_at DESC`
	var rows []enrolledCourseRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}

	result := make([]models.EnrolledCourse, 0, len(rows))
	for i := range rows {
		row := rows[i]
		result = append(result, models.EnrolledCourse{
			Enrollment: row.Enrollment,
			Course: models.Course{
				ID:            row.Enrollment.CourseID,
				Title:         row.CourseTitle,
				Category:      row.CourseCategory,
				Level:         row.CourseLevel,
				Price:         row.CoursePrice,
				Image:         row.CourseImage,
				Rating:        row.CourseRating,
				TotalDuration: row.CourseDuration,
				InstructorID:  row.InstructorID,
			},
		})
	}
	return result, nil
}
