package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academy-manager/academy-api/internal/models"
)

const courseDetailSelect = `SELECT c.id, c.name, c.subject_id, c.format_id, c.base_price, c.duration_hours, c.active, c.created_at, c.updated_at,
        s.name AS subject_name, f.name AS format_name
        FROM courses c
        JOIN subjects s ON s.id = c.subject_id
        JOIN formats f ON f.id = c.format_id`

// CourseRepository persists catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course or sql.ErrNoRows.
func (r *CourseRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Course, error) {
	const query = `SELECT id, name, subject_id, format_id, base_price, duration_hours, active, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := sqlx.GetContext(ctx, executor(exec, r.db), &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// FindDetailByID returns a course with subject and format names.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, courseDetailSelect+` WHERE c.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course detail: %w", err)
	}
	return &detail, nil
}

// List returns courses filtered by subject, format, activity and name.
func (r *CourseRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.CourseDetail, int, error) {
	var c conditions
	if filter.SubjectID != "" {
		c.add("c.subject_id = ?", filter.SubjectID)
	}
	if filter.FormatID != "" {
		c.add("c.format_id = ?", filter.FormatID)
	}
	if filter.Active != nil {
		c.add("c.active = ?", *filter.Active)
	}
	if filter.Search != "" {
		c.add("LOWER(c.name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"name":       "c.name",
		"base_price": "c.base_price",
		"created_at": "c.created_at",
	}, "created_at")
	p := newPage(filter.Page, filter.PageSize)

	var courses []models.CourseDetail
	query := fmt.Sprintf("%s%s %s %s", courseDetailSelect, c.where(), order, p.clause())
	if err := r.db.SelectContext(ctx, &courses, query, c.args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses c"+c.where(), c.args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt, course.UpdatedAt = now, now
	const query = `INSERT INTO courses (id, name, subject_id, format_id, base_price, duration_hours, active, created_at, updated_at)
        VALUES (:id, :name, :subject_id, :format_id, :base_price, :duration_hours, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", translateError(err))
	}
	return nil
}

// Update writes all mutable course columns.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, subject_id = :subject_id, format_id = :format_id, base_price = :base_price,
        duration_hours = :duration_hours, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", translateError(err))
	}
	return nil
}

// Delete removes a course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", translateError(err))
	}
	return nil
}
