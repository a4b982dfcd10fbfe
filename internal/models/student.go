package models

import "time"

// Student represents a learner registered with a school.
type Student struct {
	ID              string     `db:"id" json:"id"`
	TenantID        string     `db:"tenant_id" json:"tenant_id"`
	AdmissionNumber string     `db:"admission_number" json:"admission_number"`
	FullName        string     `db:"full_name" json:"full_name"`
	Gender          string     `db:"gender" json:"gender"`
	BirthDate       *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	ClassID         *string    `db:"class_id" json:"class_id,omitempty"`
	ParentID        *string    `db:"parent_id" json:"parent_id,omitempty"`
	Address         string     `db:"address" json:"address"`
	Phone           string     `db:"phone" json:"phone"`
	Active          bool       `db:"active" json:"active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail contains student information with class and parent context.
type StudentDetail struct {
	Student
	ClassName  *string `db:"class_name" json:"class_name,omitempty"`
	ParentName *string `db:"parent_name" json:"parent_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassID   string
	ParentID  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
