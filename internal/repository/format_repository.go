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

// FormatRepository persists course delivery formats.
type FormatRepository struct {
	db *sqlx.DB
}

// NewFormatRepository constructs the repository.
func NewFormatRepository(db *sqlx.DB) *FormatRepository {
	return &FormatRepository{db: db}
}

func (r *FormatRepository) FindByID(ctx context.Context, id string) (*models.Format, error) {
	var format models.Format
	if err := r.db.GetContext(ctx, &format, `SELECT id, name, created_at, updated_at FROM formats WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find format: %w", err)
	}
	return &format, nil
}

// List returns every format. The table is small enough to skip pagination.
func (r *FormatRepository) List(ctx context.Context) ([]models.Format, error) {
	var formats []models.Format
	if err := r.db.SelectContext(ctx, &formats, `SELECT id, name, created_at, updated_at FROM formats ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list formats: %w", err)
	}
	return formats, nil
}

func (r *FormatRepository) Create(ctx context.Context, format *models.Format) error {
	if format.ID == "" {
		format.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	format.CreatedAt, format.UpdatedAt = now, now
	const query = `INSERT INTO formats (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, format); err != nil {
		return fmt.Errorf("create format: %w", translateError(err))
	}
	return nil
}

func (r *FormatRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM formats WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete format: %w", translateError(err))
	}
	return nil
}
