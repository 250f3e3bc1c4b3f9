package models

import "time"

// CourseOffering is a dated edition of a course taught by a teacher at a center.
type CourseOffering struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	CourseID  string    `db:"course_id" json:"course_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CenterID  string    `db:"center_id" json:"center_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OfferingDetail enriches an offering with course, teacher and center names.
type OfferingDetail struct {
	CourseOffering
	CourseName  string  `db:"course_name" json:"course_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	CenterName  string  `db:"center_name" json:"center_name"`
}

// OfferingFilter captures filters for listing offerings.
type OfferingFilter struct {
	CourseID  string
	TeacherID string
	CenterID  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
