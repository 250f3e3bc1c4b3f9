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

const communityColumns = `id, code, name, capital, active, created_at, updated_at`

// CommunityRepository persists the autonomous regions centers belong to.
type CommunityRepository struct {
	db *sqlx.DB
}

// NewCommunityRepository constructs the repository.
func NewCommunityRepository(db *sqlx.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// FindByID returns a community or sql.ErrNoRows.
func (r *CommunityRepository) FindByID(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	if err := r.db.GetContext(ctx, &community, `SELECT `+communityColumns+` FROM communities WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find community: %w", err)
	}
	return &community, nil
}

// List returns communities ordered by name unless another sort is requested.
func (r *CommunityRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Community, int, error) {
	var c conditions
	if filter.Search != "" {
		c.add("(LOWER(name) LIKE ? OR LOWER(code) LIKE ?)", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		c.add("active = ?", *filter.Active)
	}
	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"name": "name",
		"code": "code",
	}, "name")
	p := newPage(filter.Page, filter.PageSize)

	var communities []models.Community
	query := fmt.Sprintf("SELECT %s FROM communities%s %s %s", communityColumns, c.where(), order, p.clause())
	if err := r.db.SelectContext(ctx, &communities, query, c.args...); err != nil {
		return nil, 0, fmt.Errorf("list communities: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM communities"+c.where(), c.args...); err != nil {
		return nil, 0, fmt.Errorf("count communities: %w", err)
	}
	return communities, total, nil
}

// Create inserts a community.
func (r *CommunityRepository) Create(ctx context.Context, community *models.Community) error {
	if community.ID == "" {
		community.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	community.CreatedAt, community.UpdatedAt = now, now
	const query = `INSERT INTO communities (id, code, name, capital, active, created_at, updated_at)
        VALUES (:id, :code, :name, :capital, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, community); err != nil {
		return fmt.Errorf("create community: %w", translateError(err))
	}
	return nil
}

// Update writes all mutable community columns.
func (r *CommunityRepository) Update(ctx context.Context, community *models.Community) error {
	community.UpdatedAt = time.Now().UTC()
	const query = `UPDATE communities SET code = :code, name = :name, capital = :capital,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, community); err != nil {
		return fmt.Errorf("update community: %w", translateError(err))
	}
	return nil
}

// Delete removes a community. Centers still pointing at it make this fail
// with ErrReferenced.
func (r *CommunityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM communities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete community: %w", translateError(err))
	}
	return nil
}
