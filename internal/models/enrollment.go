package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether an enrollment has been paid.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCancelled:
		return true
	}
	return false
}

// Discount reasons recorded on enrollments.
const (
	DiscountReasonDisability = "Disability discount (+33%)"
	DiscountReasonNone       = "No discount"
)

// Enrollment binds a student to an offering together with its priced amounts.
// FinalPrice is generated by the database and is never written by the application.
type Enrollment struct {
	ID               string          `db:"id" json:"id"`
	Code             string          `db:"code" json:"code"`
	OfferingID       string          `db:"offering_id" json:"offering_id"`
	StudentID        string          `db:"student_id" json:"student_id"`
	EnrolledAt       time.Time       `db:"enrolled_at" json:"enrolled_at"`
	GrossPrice       decimal.Decimal `db:"gross_price" json:"gross_price"`
	DiscountApplied  decimal.Decimal `db:"discount_applied" json:"discount_applied"`
	DiscountReason   string          `db:"discount_reason" json:"discount_reason"`
	SubsidyEntityID  *string         `db:"subsidy_entity_id" json:"subsidy_entity_id,omitempty"`
	SubsidizedAmount decimal.Decimal `db:"subsidized_amount" json:"subsidized_amount"`
	FinalPrice       decimal.Decimal `db:"final_price" json:"final_price"`
	PaymentStatus    PaymentStatus   `db:"payment_status" json:"payment_status"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with the offering code and student name.
type EnrollmentDetail struct {
	Enrollment
	OfferingCode     string  `db:"offering_code" json:"offering_code"`
	StudentFirstName *string `db:"student_first_name" json:"-"`
	StudentLastName  *string `db:"student_last_name" json:"-"`
	StudentName      string  `db:"-" json:"student_name"`
}

// ResolveStudentName fills StudentName from the joined personal data columns.
func (d *EnrollmentDetail) ResolveStudentName() {
	d.StudentName = joinName(d.StudentFirstName, d.StudentLastName)
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	OfferingID    string
	StudentID     string
	PaymentStatus PaymentStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
