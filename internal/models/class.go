package models

import "time"

// Class represents an academic class or section within a school.
type Class struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	Name           string    `db:"name" json:"name"`
	Section        string    `db:"section" json:"section"`
	ClassTeacherID *string   `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName combines name and section for reporting views.
func (c Class) DisplayName() string {
	if c.Section == "" {
		return c.Name
	}
	return c.Name + " - " + c.Section
}

// ClassDetail extends Class with teacher info and bound fee structures.
type ClassDetail struct {
	Class
	ClassTeacherName *string  `db:"class_teacher_name" json:"class_teacher_name,omitempty"`
	StudentCount     int      `db:"student_count" json:"student_count"`
	FeeStructureIDs  []string `json:"fee_structure_ids,omitempty"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
