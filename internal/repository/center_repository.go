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

const centerColumns = `id, code, name, company_id, community_id, max_capacity, active, created_at, updated_at`

// CenterRepository persists training centers.
type CenterRepository struct {
	db *sqlx.DB
}

// NewCenterRepository constructs the repository.
func NewCenterRepository(db *sqlx.DB) *CenterRepository {
	return &CenterRepository{db: db}
}

// FindByID returns a center or sql.ErrNoRows.
func (r *CenterRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Center, error) {
	var center models.Center
	if err := sqlx.GetContext(ctx, executor(exec, r.db), &center, `SELECT `+centerColumns+` FROM centers WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find center: %w", err)
	}
	return &center, nil
}

// List returns centers, optionally restricted to one company or community.
func (r *CenterRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Center, int, error) {
	var c conditions
	if filter.CompanyID != "" {
		c.add("company_id = ?", filter.CompanyID)
	}
	if filter.CommunityID != "" {
		c.add("community_id = ?", filter.CommunityID)
	}
	if filter.Search != "" {
		c.add("(LOWER(name) LIKE ? OR LOWER(code) LIKE ?)", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		c.add("active = ?", *filter.Active)
	}
	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"name":       "name",
		"code":       "code",
		"created_at": "created_at",
	}, "created_at")
	p := newPage(filter.Page, filter.PageSize)

	var centers []models.Center
	query := fmt.Sprintf("SELECT %s FROM centers%s %s %s", centerColumns, c.where(), order, p.clause())
	if err := r.db.SelectContext(ctx, &centers, query, c.args...); err != nil {
		return nil, 0, fmt.Errorf("list centers: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM centers"+c.where(), c.args...); err != nil {
		return nil, 0, fmt.Errorf("count centers: %w", err)
	}
	return centers, total, nil
}

// Create inserts a center.
func (r *CenterRepository) Create(ctx context.Context, center *models.Center) error {
	if center.ID == "" {
		center.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	center.CreatedAt, center.UpdatedAt = now, now
	const query = `INSERT INTO centers (id, code, name, company_id, community_id, max_capacity, active, created_at, updated_at)
        VALUES (:id, :code, :name, :company_id, :community_id, :max_capacity, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, center); err != nil {
		return fmt.Errorf("create center: %w", translateError(err))
	}
	return nil
}

// Update writes all mutable center columns.
func (r *CenterRepository) Update(ctx context.Context, center *models.Center) error {
	center.UpdatedAt = time.Now().UTC()
	const query = `UPDATE centers SET code = :code, name = :name, company_id = :company_id, community_id = :community_id,
        max_capacity = :max_capacity, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, center); err != nil {
		return fmt.Errorf("update center: %w", translateError(err))
	}
	return nil
}

// Delete removes a center.
func (r *CenterRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM centers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete center: %w", translateError(err))
	}
	return nil
}
