package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice bills an enrollment. Total is TaxableBase plus VAT, rounded to cents.
type Invoice struct {
	ID              string          `db:"id" json:"id"`
	Number          string          `db:"number" json:"number"`
	EnrollmentID    string          `db:"enrollment_id" json:"enrollment_id"`
	IssuedAt        time.Time       `db:"issued_at" json:"issued_at"`
	TaxableBase     decimal.Decimal `db:"taxable_base" json:"taxable_base"`
	VATPercentage   decimal.Decimal `db:"vat_percentage" json:"vat_percentage"`
	Total           decimal.Decimal `db:"total" json:"total"`
	CustomerTaxData *string         `db:"customer_tax_data" json:"customer_tax_data,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
