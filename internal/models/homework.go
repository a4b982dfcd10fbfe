package models

import "time"

// Homework represents an assignment posted by a teacher to a class.
type Homework struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	Subject     string    `db:"subject" json:"subject"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	AssignedBy  string    `db:"assigned_by" json:"assigned_by"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HomeworkDetail adds class and teacher context for responses.
type HomeworkDetail struct {
	Homework
	ClassName    string `db:"class_name" json:"class_name"`
	AssignedName string `db:"assigned_name" json:"assigned_name"`
}

// HomeworkFilter restricts homework listings.
type HomeworkFilter struct {
	ClassID  string
	Subject  string
	DueFrom  *time.Time
	DueTo    *time.Time
	Page     int
	PageSize int
}
