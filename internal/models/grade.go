package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Grade is a score between 0 and 10 recorded against an enrollment.
type Grade struct {
	ID           string          `db:"id" json:"id"`
	EnrollmentID string          `db:"enrollment_id" json:"enrollment_id"`
	Score        decimal.Decimal `db:"score" json:"score"`
	Comments     *string         `db:"comments" json:"comments,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
