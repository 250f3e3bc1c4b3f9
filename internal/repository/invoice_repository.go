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

const invoiceColumns = `id, number, enrollment_id, issued_at, taxable_base, vat_percentage, total, customer_tax_data, created_at, updated_at`

// InvoiceRepository persists invoices.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs the repository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return &invoice, nil
}

func (r *InvoiceRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, `SELECT `+invoiceColumns+` FROM invoices WHERE enrollment_id = $1 ORDER BY issued_at DESC`, enrollmentID); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// Create inserts an invoice. A clashing number surfaces as ErrDuplicateKey.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invoice.IssuedAt.IsZero() {
		invoice.IssuedAt = now
	}
	invoice.CreatedAt, invoice.UpdatedAt = now, now
	const query = `INSERT INTO invoices (id, number, enrollment_id, issued_at, taxable_base, vat_percentage, total, customer_tax_data, created_at, updated_at)
        VALUES (:id, :number, :enrollment_id, :issued_at, :taxable_base, :vat_percentage, :total, :customer_tax_data, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", translateError(err))
	}
	return nil
}
