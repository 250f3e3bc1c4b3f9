package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/academy-manager/academy-api/internal/models"
)

const offeringColumns = `o.id, o.code, o.course_id, o.teacher_id, o.center_id, o.start_date, o.end_date, o.active, o.created_at, o.updated_at`

const offeringDetailSelect = `SELECT ` + offeringColumns + `,
        c.name AS course_name, NULLIF(CONCAT_WS(' ', p.first_name, p.last_name), '') AS teacher_name, ce.name AS center_name
        FROM course_offerings o
        JOIN courses c ON c.id = o.course_id
        JOIN centers ce ON ce.id = o.center_id
        LEFT JOIN personal_data p ON p.user_id = o.teacher_id`

// OfferingRepository persists course offerings.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// FindByID returns an offering or sql.ErrNoRows.
func (r *OfferingRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.CourseOffering, error) {
	var offering models.CourseOffering
	if err := sqlx.GetContext(ctx, executor(exec, r.db), &offering, `SELECT `+offeringColumns+` FROM course_offerings o WHERE o.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find offering: %w", err)
	}
	return &offering, nil
}

// FindDetailByID returns an offering with course, teacher and center names.
func (r *OfferingRepository) FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.OfferingDetail, error) {
	var detail models.OfferingDetail
	if err := sqlx.GetContext(ctx, executor(exec, r.db), &detail, offeringDetailSelect+` WHERE o.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find offering detail: %w", err)
	}
	return &detail, nil
}

// List returns offerings filtered by course, teacher, center and activity.
func (r *OfferingRepository) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error) {
	var c conditions
	if filter.CourseID != "" {
		c.add("o.course_id = ?", filter.CourseID)
	}
	if filter.TeacherID != "" {
		c.add("o.teacher_id = ?", filter.TeacherID)
	}
	if filter.CenterID != "" {
		c.add("o.center_id = ?", filter.CenterID)
	}
	if filter.Active != nil {
		c.add("o.active = ?", *filter.Active)
	}
	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"start_date": "o.start_date",
		"code":       "o.code",
		"created_at": "o.created_at",
	}, "start_date")
	p := newPage(filter.Page, filter.PageSize)

	var offerings []models.OfferingDetail
	query := fmt.Sprintf("%s%s %s %s", offeringDetailSelect, c.where(), order, p.clause())
	if err := r.db.SelectContext(ctx, &offerings, query, c.args...); err != nil {
		return nil, 0, fmt.Errorf("list offerings: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM course_offerings o"+c.where(), c.args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}
	return offerings, total, nil
}

// ListActive returns every active offering ordered by start date.
func (r *OfferingRepository) ListActive(ctx context.Context) ([]models.OfferingDetail, error) {
	var offerings []models.OfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, offeringDetailSelect+` WHERE o.active = TRUE ORDER BY o.start_date ASC`); err != nil {
		return nil, fmt.Errorf("list active offerings: %w", err)
	}
	return offerings, nil
}

// Create inserts an offering.
func (r *OfferingRepository) Create(ctx context.Context, exec sqlx.ExtContext, offering *models.CourseOffering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	offering.CreatedAt, offering.UpdatedAt = now, now
	const query = `INSERT INTO course_offerings (id, code, course_id, teacher_id, center_id, start_date, end_date, active, created_at, updated_at)
        VALUES (:id, :code, :course_id, :teacher_id, :center_id, :start_date, :end_date, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(exec, r.db), query, offering); err != nil {
		return fmt.Errorf("create offering: %w", translateError(err))
	}
	return nil
}

// Update writes all mutable offering columns.
func (r *OfferingRepository) Update(ctx context.Context, exec sqlx.ExtContext, offering *models.CourseOffering) error {
	offering.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_offerings SET code = :code, course_id = :course_id, teacher_id = :teacher_id, center_id = :center_id,
        start_date = :start_date, end_date = :end_date, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, executor(exec, r.db), query, offering); err != nil {
		return fmt.Errorf("update offering: %w", translateError(err))
	}
	return nil
}

// Delete removes an offering.
func (r *OfferingRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := executor(exec, r.db).ExecContext(ctx, `DELETE FROM course_offerings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete offering: %w", err)
	}
	return nil
}
