package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is the legal entity that owns training centers.
type Company struct {
	ID            string    `db:"id" json:"id"`
	TaxID         string    `db:"tax_id" json:"tax_id"`
	LegalName     string    `db:"legal_name" json:"legal_name"`
	FiscalAddress *string   `db:"fiscal_address" json:"fiscal_address,omitempty"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Community is an autonomous region grouping training centers.
type Community struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Capital   *string   `db:"capital" json:"capital,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Center is a physical site where offerings take place.
type Center struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	CompanyID   string    `db:"company_id" json:"company_id"`
	CommunityID string    `db:"community_id" json:"community_id"`
	MaxCapacity *int      `db:"max_capacity" json:"max_capacity,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Subject groups courses by topic.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Format is the delivery modality of a course (online, on-site, ...).
type Format struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Course is a catalog entry. BasePrice is the gross price copied into enrollments.
type Course struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	SubjectID     string          `db:"subject_id" json:"subject_id"`
	FormatID      string          `db:"format_id" json:"format_id"`
	BasePrice     decimal.Decimal `db:"base_price" json:"base_price"`
	DurationHours *int            `db:"duration_hours" json:"duration_hours,omitempty"`
	Active        bool            `db:"active" json:"active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with its subject and format names.
type CourseDetail struct {
	Course
	SubjectName string `db:"subject_name" json:"subject_name"`
	FormatName  string `db:"format_name" json:"format_name"`
}

// CatalogFilter is shared by the catalog list endpoints.
type CatalogFilter struct {
	Search      string
	Active      *bool
	CompanyID   string
	CommunityID string
	SubjectID   string
	FormatID    string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
