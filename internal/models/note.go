package models

import "time"

// Note is a teacher diary entry addressed to a class or a single student.
type Note struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	ClassID   *string   `db:"class_id" json:"class_id,omitempty"`
	StudentID *string   `db:"student_id" json:"student_id,omitempty"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NoteDetail includes author and target names for listings.
type NoteDetail struct {
	Note
	AuthorName  string  `db:"author_name" json:"author_name"`
	ClassName   *string `db:"class_name" json:"class_name,omitempty"`
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
}
