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

// ReviewRepository handles persistence of course reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

type reviewRow struct {
	models.Review
	StudentName   *string `db:"student_name"`
	StudentAvatar *string `db:"student_avatar"`
}

// ListByCourse returns the course's reviews with reviewer name and avatar.
func (r *ReviewRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Review, error) {
	const query = `SELECT rv.id, rv.course_id, rv.student_id, rv.rating, rv.comment, rv.created_at,
        u.name AS student_name, u.avatar AS student_avatar
        FROM reviews rv LEFT JOIN users u ON u.id = rv.student_id
        WHERE rv.course_id = $1 ORDER BY rv.created_at DESC`
	var rows []reviewRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	reviews := make([]models.Review, 0, len(rows))
	for i := range rows {
		review := rows[i].Review
		if rows[i].StudentName != nil {
			review.Student = &models.PublicUser{
				ID:     review.StudentID,
				Name:   *rows[i].StudentName,
				Avatar: rows[i].StudentAvatar,
			}
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// FindByStudentAndCourse returns the student's review for a course, if any.
func (r *ReviewRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Review, error) {
	const query = `SELECT id, course_id, student_id, rating, comment, created_at FROM reviews WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	return &review, nil
}

// Create inserts a review. The table's unique (course, student) constraint
// rejects duplicates as ErrDuplicate even under concurrent submission.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO reviews (id, course_id, student_id, rating, comment, created_at)
        VALUES (:id, :course_id, :student_id, :rating, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		if err := translateUnique(err); err == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}
