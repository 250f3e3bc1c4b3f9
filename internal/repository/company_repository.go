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

const companyColumns = `id, tax_id, legal_name, fiscal_address, active, created_at, updated_at`

// CompanyRepository persists companies.
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository constructs the repository.
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// FindByID returns a company or sql.ErrNoRows.
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := r.db.GetContext(ctx, &company, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find company: %w", err)
	}
	return &company, nil
}

// List returns companies matching the filter.
func (r *CompanyRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Company, int, error) {
	var c conditions
	if filter.Search != "" {
		c.add("(LOWER(legal_name) LIKE ? OR LOWER(tax_id) LIKE ?)", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		c.add("active = ?", *filter.Active)
	}
	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"legal_name": "legal_name",
		"created_at": "created_at",
	}, "created_at")
	p := newPage(filter.Page, filter.PageSize)

	var companies []models.Company
	query := fmt.Sprintf("SELECT %s FROM companies%s %s %s", companyColumns, c.where(), order, p.clause())
	if err := r.db.SelectContext(ctx, &companies, query, c.args...); err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM companies"+c.where(), c.args...); err != nil {
		return nil, 0, fmt.Errorf("count companies: %w", err)
	}
	return companies, total, nil
}

// Create inserts a company.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	company.CreatedAt, company.UpdatedAt = now, now
	const query = `INSERT INTO companies (id, tax_id, legal_name, fiscal_address, active, created_at, updated_at)
        VALUES (:id, :tax_id, :legal_name, :fiscal_address, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, company); err != nil {
		return fmt.Errorf("create company: %w", translateError(err))
	}
	return nil
}

// Update writes all mutable company columns.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()
	const query = `UPDATE companies SET tax_id = :tax_id, legal_name = :legal_name, fiscal_address = :fiscal_address,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, company); err != nil {
		return fmt.Errorf("update company: %w", translateError(err))
	}
	return nil
}

// Delete removes a company.
func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete company: %w", translateError(err))
	}
	return nil
}
