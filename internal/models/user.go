package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UserRole is the closed set of roles a user can hold.
type UserRole string

const (
	RoleAdmin               UserRole = "ADMIN"
	RoleTeacher             UserRole = "TEACHER"
	RoleStudent             UserRole = "STUDENT"
	RoleAdministrativeStaff UserRole = "ADMINISTRATIVE_STAFF"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleAdministrativeStaff:
		return true
	}
	return false
}

// User is an account stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserDetail joins a user with the name held in personal_data.
type UserDetail struct {
	User
	FirstName *string `db:"first_name" json:"first_name,omitempty"`
	LastName  *string `db:"last_name" json:"last_name,omitempty"`
}

// FullName returns "first last" or an empty string when no personal data exists.
func (u UserDetail) FullName() string {
	return joinName(u.FirstName, u.LastName)
}

// PersonalData holds identity details and the disability percentage used for pricing.
type PersonalData struct {
	UserID               string              `db:"user_id" json:"user_id"`
	FirstName            string              `db:"first_name" json:"first_name"`
	LastName             string              `db:"last_name" json:"last_name"`
	NationalID           string              `db:"national_id" json:"national_id"`
	Phone                *string             `db:"phone" json:"phone,omitempty"`
	Address              *string             `db:"address" json:"address,omitempty"`
	DisabilityPercentage decimal.NullDecimal `db:"disability_percentage" json:"disability_percentage"`
	LargeFamily          bool                `db:"large_family" json:"large_family"`
	UpdatedAt            time.Time           `db:"updated_at" json:"updated_at"`
}

// FullName concatenates first and last name.
func (p PersonalData) FullName() string {
	return joinName(&p.FirstName, &p.LastName)
}

func joinName(first, last *string) string {
	parts := make([]string, 0, 2)
	if first != nil && *first != "" {
		parts = append(parts, *first)
	}
	if last != nil && *last != "" {
		parts = append(parts, *last)
	}
	return strings.Join(parts, " ")
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
