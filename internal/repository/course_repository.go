package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillforge/skillforge-api/internal/models"
)

// listColumns deliberately omit the sections document: listings never carry
// section/lesson bodies, only single-course fetches do.
const (
	courseListColumns = `c.id, c.title, c.description, c.category, c.level, c.price, c.image, c.requirements, c.what_you_will_learn, c.tags, c.instructor_id, c.is_published, c.is_approved, c.enrolled_students, c.rating, c.total_duration, c.created_at, c.updated_at`
	courseFullColumns = courseListColumns + `, c.sections`
	instructorColumns = `u.name AS instructor_name, u.email AS instructor_email, u.avatar AS instructor_avatar`
)

type courseRow struct {
	models.Course
	InstructorName   *string `db:"instructor_name"`
	InstructorEmail  *string `db:"instructor_email"`
	InstructorAvatar *string `db:"instructor_avatar"`
}

func (row *courseRow) toCourse() models.Course {
	course := row.Course
	if row.InstructorName != nil {
		course.Instructor = &models.PublicUser{
			ID:     course.InstructorID,
			Name:   *row.InstructorName,
			Avatar: row.InstructorAvatar,
		}
		if row.InstructorEmail != nil {
			course.Instructor.Email = *row.InstructorEmail
		}
	}
	return course
}

// CourseRepository handles persistence of the course aggregate.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns publicly visible courses matching the filter with total count.
// The published+approved predicate is not negotiable on this path; drafts
// never leak into public listings regardless of filter combination.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := `FROM courses c LEFT JOIN users u ON u.id = c.instructor_id WHERE c.is_published = TRUE AND c.is_approved = TRUE`
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("c.category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("c.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("c.price >= $%d", len(args)+1))
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("c.price <= $%d", len(args)+1))
		args = append(args, *filter.MaxPrice)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(`(c.title ILIKE $%d OR c.description ILIKE $%d OR EXISTS (
            SELECT 1 FROM jsonb_array_elements_text(c.tags) tag WHERE tag ILIKE $%d))`, idx, idx, idx))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
	}

	orderBy := sortClause(filter.SortBy)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 12
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s, %s %s ORDER BY %s LIMIT %d OFFSET %d",
		courseListColumns, instructorColumns, base+clause, orderBy, limit, offset)

	var rows []courseRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	courses := make([]models.Course, 0, len(rows))
	for i := range rows {
		courses = append(courses, rows[i].toCourse())
	}
	return courses, total, nil
}

// ListByInstructor returns an instructor's courses regardless of publication
// state, newest first.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID string, page, limit int) ([]models.Course, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s, %s FROM courses c LEFT JOIN users u ON u.id = c.instructor_id
        WHERE c.instructor_id = $1 ORDER BY c.created_at DESC LIMIT %d OFFSET %d`, courseFullColumns, instructorColumns, limit, offset)

	var rows []courseRow
	if err := r.db.SelectContext(ctx, &rows, query, instructorID); err != nil {
		return nil, 0, fmt.Errorf("list instructor courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses WHERE instructor_id = $1`, instructorID); err != nil {
		return nil, 0, fmt.Errorf("count instructor courses: %w", err)
	}

	courses := make([]models.Course, 0, len(rows))
	for i := range rows {
		courses = append(courses, rows[i].toCourse())
	}
	return courses, total, nil
}

// FindByID returns the full course aggregate including sections.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM courses c LEFT JOIN users u ON u.id = c.instructor_id WHERE c.id = $1`, courseFullColumns, instructorColumns)
	var row courseRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	course := row.toCourse()
	return &course, nil
}

// Create persists a new course aggregate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, title, description, category, level, price, image, requirements, what_you_will_learn, tags, instructor_id, is_published, is_approved, enrolled_students, sections, rating, total_duration, created_at, updated_at)
        VALUES (:id, :title, :description, :category, :level, :price, :image, :requirements, :what_you_will_learn, :tags, :instructor_id, :is_published, :is_approved, :enrolled_students, :sections, :rating, :total_duration, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists the whole aggregate as a single write. Sub-resource
// mutations edit an in-memory copy first so course-document consistency is
// bounded to last-write-wins at this granularity.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, description = :description, category = :category, level = :level,
        price = :price, image = :image, requirements = :requirements, what_you_will_learn = :what_you_will_learn,
        tags = :tags, is_published = :is_published, is_approved = :is_approved, sections = :sections,
        total_duration = :total_duration, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes the course; reviews are removed by the cascading constraint.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// AppendEnrolledStudent adds the student to the denormalized enrollment list
// used for popularity sorting and teacher stats.
func (r *CourseRepository) AppendEnrolledStudent(ctx context.Context, courseID, studentID string) error {
	const query = `UPDATE courses SET enrolled_students = enrolled_students || jsonb_build_array($2::text), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, courseID, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("append enrolled student: %w", err)
	}
	return nil
}

// RecomputeRating rewrites the course rating as the mean over the current
// review rows. Recomputed from source on every write, never incremented.
func (r *CourseRepository) RecomputeRating(ctx context.Context, courseID string) error {
	const query = `UPDATE courses SET rating = COALESCE((SELECT AVG(rating)::float8 FROM reviews WHERE course_id = $1), 0), updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, courseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("recompute course rating: %w", err)
	}
	return nil
}

func sortClause(sortBy string) string {
	switch sortBy {
	case models.SortOldest:
		return "c.created_at ASC"
	case models.SortPopular:
		return "jsonb_array_length(c.enrolled_students) DESC"
	case models.SortRating:
		return "c.rating DESC"
	case models.SortPriceLow:
		return "c.price ASC"
	case models.SortPriceHigh:
		return "c.price DESC"
	case models.SortNewest:
		return "c.created_at DESC"
	default:
		return "c.created_at DESC"
	}
}
