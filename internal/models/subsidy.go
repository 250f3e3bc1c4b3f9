package models

import "time"

// SubsidyEntity is a public or private body that co-funds enrollments.
type SubsidyEntity struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	OfficialCode *string   `db:"official_code" json:"official_code,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
