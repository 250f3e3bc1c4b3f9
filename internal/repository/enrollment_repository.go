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

const enrollmentColumns = `e.id, e.code, e.offering_id, e.student_id, e.enrolled_at, e.gross_price, e.discount_applied,
        COALESCE(e.discount_reason, '') AS discount_reason, e.subsidy_entity_id, e.subsidized_amount, e.final_price,
        e.payment_status, e.created_at, e.updated_at`

const enrollmentDetailSelect = `SELECT ` + enrollmentColumns + `,
        o.code AS offering_code, p.first_name AS student_first_name, p.last_name AS student_last_name
        FROM enrollments e
        JOIN course_offerings o ON o.id = e.offering_id
        LEFT JOIN personal_data p ON p.user_id = e.student_id`

// EnrollmentRepository handles persistence of enrollments. final_price is a
// generated column and only ever read.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, executor(exec, r.db), &enrollment, `SELECT `+enrollmentColumns+` FROM enrollments e WHERE e.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with the offering code and student name.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EnrollmentDetail, error) {
	var detail models.EnrollmentDetail
	if err := sqlx.GetContext(ctx, executor(exec, r.db), &detail, enrollmentDetailSelect+` WHERE e.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment detail: %w", err)
	}
	detail.ResolveStudentName()
	return &detail, nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var c conditions
	if filter.OfferingID != "" {
		c.add("e.offering_id = ?", filter.OfferingID)
	}
	if filter.StudentID != "" {
		c.add("e.student_id = ?", filter.StudentID)
	}
	if filter.PaymentStatus != "" {
		c.add("e.payment_status = ?", filter.PaymentStatus)
	}
	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"enrolled_at": "e.enrolled_at",
		"code":        "e.code",
		"final_price": "e.final_price",
	}, "enrolled_at")
	p := newPage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s %s %s", enrollmentDetailSelect, c.where(), order, p.clause())
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, c.args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	for i := range enrollments {
		enrollments[i].ResolveStudentName()
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments e"+c.where(), c.args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListByStudent returns every enrollment of a student, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, enrollmentDetailSelect+` WHERE e.student_id = $1 ORDER BY e.enrolled_at DESC`, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	for i := range enrollments {
		enrollments[i].ResolveStudentName()
	}
	return enrollments, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.PaymentStatus == "" {
		enrollment.PaymentStatus = models.PaymentStatusPending
	}
	enrollment.CreatedAt, enrollment.UpdatedAt = now, now

	const query = `INSERT INTO enrollments (id, code, offering_id, student_id, enrolled_at, gross_price, discount_applied, discount_reason,
        subsidy_entity_id, subsidized_amount, payment_status, created_at, updated_at)
        VALUES (:id, :code, :offering_id, :student_id, :enrolled_at, :gross_price, :discount_applied, :discount_reason,
        :subsidy_entity_id, :subsidized_amount, :payment_status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(exec, r.db), query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", translateError(err))
	}
	return nil
}

// Update writes every mutable column. enrolled_at is never touched.
func (r *EnrollmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET code = :code, offering_id = :offering_id, student_id = :student_id,
        gross_price = :gross_price, discount_applied = :discount_applied, discount_reason = :discount_reason,
        subsidy_entity_id = :subsidy_entity_id, subsidized_amount = :subsidized_amount, payment_status = :payment_status,
        updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, executor(exec, r.db), query, enrollment); err != nil {
		return fmt.Errorf("update enrollment: %w", translateError(err))
	}
	return nil
}

// Delete removes an enrollment. Grades and invoices follow through ON DELETE CASCADE.
func (r *EnrollmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := executor(exec, r.db).ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// DeleteByOffering removes all enrollments of an offering and returns how many went.
func (r *EnrollmentRepository) DeleteByOffering(ctx context.Context, exec sqlx.ExtContext, offeringID string) (int64, error) {
	res, err := executor(exec, r.db).ExecContext(ctx, `DELETE FROM enrollments WHERE offering_id = $1`, offeringID)
	if err != nil {
		return 0, fmt.Errorf("delete offering enrollments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete offering enrollments: %w", err)
	}
	return affected, nil
}
