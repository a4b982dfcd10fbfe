package models

import "time"

// LeaveStatus tracks a leave request through its workflow.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// LeaveRequest is filed by a parent on behalf of a student and decided by
// a teacher or admin.
type LeaveRequest struct {
	ID          string      `db:"id" json:"id"`
	TenantID    string      `db:"tenant_id" json:"tenant_id"`
	StudentID   string      `db:"student_id" json:"student_id"`
	AppliedBy   string      `db:"applied_by" json:"applied_by"`
	FromDate    time.Time   `db:"from_date" json:"from_date"`
	ToDate      time.Time   `db:"to_date" json:"to_date"`
	Reason      string      `db:"reason" json:"reason"`
	Status      LeaveStatus `db:"status" json:"status"`
	DecidedBy   *string     `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt   *time.Time  `db:"decided_at" json:"decided_at,omitempty"`
	DecisionMsg string      `db:"decision_msg" json:"decision_msg"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// LeaveDetail adds student and applicant names for listings.
type LeaveDetail struct {
	LeaveRequest
	StudentName string `db:"student_name" json:"student_name"`
	AppliedName string `db:"applied_name" json:"applied_name"`
}

// LeaveFilter restricts leave listings.
type LeaveFilter struct {
	StudentID string
	ClassID   string
	Status    LeaveStatus
	Page      int
	PageSize  int
}
