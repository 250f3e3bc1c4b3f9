package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/academy-manager/academy-api/internal/models"
)

// PersonalDataRepository stores the one-to-one identity record of a user.
type PersonalDataRepository struct {
	db *sqlx.DB
}

// NewPersonalDataRepository constructs the repository.
func NewPersonalDataRepository(db *sqlx.DB) *PersonalDataRepository {
	return &PersonalDataRepository{db: db}
}

// FindByUserID returns the personal data row of a user or sql.ErrNoRows.
func (r *PersonalDataRepository) FindByUserID(ctx context.Context, exec sqlx.ExtContext, userID string) (*models.PersonalData, error) {
	const query = `SELECT user_id, first_name, last_name, national_id, phone, address, disability_percentage, large_family, updated_at
        FROM personal_data WHERE user_id = $1`
	var data models.PersonalData
	if err := sqlx.GetContext(ctx, executor(exec, r.db), &data, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find personal data: %w", err)
	}
	return &data, nil
}

// Upsert inserts or replaces the personal data of a user.
func (r *PersonalDataRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, data *models.PersonalData) error {
	data.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO personal_data (user_id, first_name, last_name, national_id, phone, address, disability_percentage, large_family, updated_at)
        VALUES (:user_id, :first_name, :last_name, :national_id, :phone, :address, :disability_percentage, :large_family, :updated_at)
        ON CONFLICT (user_id) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
        national_id = EXCLUDED.national_id, phone = EXCLUDED.phone, address = EXCLUDED.address,
        disability_percentage = EXCLUDED.disability_percentage, large_family = EXCLUDED.large_family, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, executor(exec, r.db), query, data); err != nil {
		return fmt.Errorf("upsert personal data: %w", translateError(err))
	}
	return nil
}
