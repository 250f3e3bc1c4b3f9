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

const subsidyColumns = `id, name, official_code, created_at, updated_at`

// SubsidyRepository persists subsidizing entities.
type SubsidyRepository struct {
	db *sqlx.DB
}

// NewSubsidyRepository constructs the repository.
func NewSubsidyRepository(db *sqlx.DB) *SubsidyRepository {
	return &SubsidyRepository{db: db}
}

// FindByID returns a subsidy entity or sql.ErrNoRows.
func (r *SubsidyRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SubsidyEntity, error) {
	var entity models.SubsidyEntity
	if err := sqlx.GetContext(ctx, executor(exec, r.db), &entity, `SELECT `+subsidyColumns+` FROM subsidy_entities WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subsidy entity: %w", err)
	}
	return &entity, nil
}

func (r *SubsidyRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.SubsidyEntity, int, error) {
	var c conditions
	if filter.Search != "" {
		c.add("(LOWER(name) LIKE ? OR LOWER(official_code) LIKE ?)", "%"+strings.ToLower(filter.Search)+"%")
	}
	p := newPage(filter.Page, filter.PageSize)

	var entities []models.SubsidyEntity
	query := fmt.Sprintf("SELECT %s FROM subsidy_entities%s ORDER BY name ASC %s", subsidyColumns, c.where(), p.clause())
	if err := r.db.SelectContext(ctx, &entities, query, c.args...); err != nil {
		return nil, 0, fmt.Errorf("list subsidy entities: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM subsidy_entities"+c.where(), c.args...); err != nil {
		return nil, 0, fmt.Errorf("count subsidy entities: %w", err)
	}
	return entities, total, nil
}

func (r *SubsidyRepository) Create(ctx context.Context, entity *models.SubsidyEntity) error {
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entity.CreatedAt, entity.UpdatedAt = now, now
	const query = `INSERT INTO subsidy_entities (id, name, official_code, created_at, updated_at)
        VALUES (:id, :name, :official_code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entity); err != nil {
		return fmt.Errorf("create subsidy entity: %w", translateError(err))
	}
	return nil
}

func (r *SubsidyRepository) Update(ctx context.Context, entity *models.SubsidyEntity) error {
	entity.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subsidy_entities SET name = :name, official_code = :official_code, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entity); err != nil {
		return fmt.Errorf("update subsidy entity: %w", translateError(err))
	}
	return nil
}

func (r *SubsidyRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subsidy_entities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subsidy entity: %w", translateError(err))
	}
	return nil
}
