package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeStatus is the lifecycle state of a fee assignment.
type FeeStatus string

const (
	FeeStatusPending       FeeStatus = "pending"
	FeeStatusPartiallyPaid FeeStatus = "partially_paid"
	FeeStatusPaid          FeeStatus = "paid"
	FeeStatusOverdue       FeeStatus = "overdue"
	FeeStatusCancelled     FeeStatus = "cancelled"
)

// FeeAssignment is one student's obligation to pay one fee structure for an
// academic year. TotalAmount is copied from the structure at assignment time;
// later price changes never touch existing assignments. At most one
// assignment exists per (tenant, student, structure, academic year), enforced
// by a unique index.
type FeeAssignment struct {
	ID             string          `db:"id" json:"id"`
	TenantID       string          `db:"tenant_id" json:"tenant_id"`
	StudentID      string          `db:"student_id" json:"student_id"`
	FeeStructureID string          `db:"fee_structure_id" json:"fee_structure_id"`
	AcademicYear   string          `db:"academic_year" json:"academic_year"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	DiscountReason string          `db:"discount_reason" json:"discount_reason"`
	FinalAmount    decimal.Decimal `db:"final_amount" json:"final_amount"`
	DueDate        time.Time       `db:"due_date" json:"due_date"`
	Status         FeeStatus       `db:"status" json:"status"`
	PaidAmount     decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	PaidDate       *time.Time      `db:"paid_date" json:"paid_date,omitempty"`
	PaymentID      *string         `db:"payment_id" json:"payment_id,omitempty"`
	CancelledAt    *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledBy    *string         `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelReason   string          `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Version        int             `db:"version" json:"version"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// PendingAmount returns the outstanding balance, never negative even when
// PaidAmount has been corrupted above FinalAmount.
func (a *FeeAssignment) PendingAmount() decimal.Decimal {
	pending := a.FinalAmount.Sub(a.PaidAmount)
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

// DeriveStatus computes the assignment status from the payment snapshot.
// Cancelled is terminal and short-circuits the table. Due-date comparison is
// calendar-day based: an assignment due today is not yet overdue.
func (a *FeeAssignment) DeriveStatus(today time.Time) FeeStatus {
	if a.Status == FeeStatusCancelled {
		return FeeStatusCancelled
	}
	if a.PaidAmount.GreaterThanOrEqual(a.FinalAmount) {
		return FeeStatusPaid
	}
	overdue := dateOnly(a.DueDate).Before(dateOnly(today))
	if a.PaidAmount.IsPositive() {
		if overdue {
			return FeeStatusOverdue
		}
		return FeeStatusPartiallyPaid
	}
	if overdue {
		return FeeStatusOverdue
	}
	return FeeStatusPending
}

// Recompute refreshes Status from the current snapshot. Every write path that
// persists an assignment calls this before saving so a stale status can never
// be stored.
func (a *FeeAssignment) Recompute(today time.Time) {
	a.Status = a.DeriveStatus(today)
}

// Cancel marks the assignment cancelled with audit metadata. Cancelled is
// terminal: Recompute will not resurrect the row.
func (a *FeeAssignment) Cancel(by, reason string, at time.Time) {
	a.Status = FeeStatusCancelled
	a.CancelledAt = &at
	a.CancelledBy = &by
	a.CancelReason = reason
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FeeAssignmentDetail joins structure and catalog context for listings.
type FeeAssignmentDetail struct {
	FeeAssignment
	FeeName       string  `db:"fee_name" json:"fee_name"`
	CategoryName  *string `db:"category_name" json:"category_name,omitempty"`
	CategoryCode  *string `db:"category_code" json:"category_code,omitempty"`
	FrequencyCode *string `db:"frequency_code" json:"frequency_code,omitempty"`
	StudentName   *string `db:"student_name" json:"student_name,omitempty"`
}

// FeeSummaryRow is the aggregator's input: one non-cancelled assignment with
// left-joined student, class and catalog context. Nullable fields signal
// dangling references the aggregator must tolerate.
type FeeSummaryRow struct {
	AssignmentID string          `db:"assignment_id"`
	StudentID    string          `db:"student_id"`
	StudentName  *string         `db:"student_name"`
	ClassID      *string         `db:"class_id"`
	ClassName    *string         `db:"class_name"`
	FeeName      *string         `db:"fee_name"`
	CategoryName *string         `db:"category_name"`
	CategoryCode *string         `db:"category_code"`
	FinalAmount  decimal.Decimal `db:"final_amount"`
	PaidAmount   decimal.Decimal `db:"paid_amount"`
	DueDate      time.Time       `db:"due_date"`
	Status       FeeStatus       `db:"status"`
}

// Snapshot converts a summary row into an assignment value so status and
// pending amounts are re-derived with the same pure functions used on writes.
func (r FeeSummaryRow) Snapshot() FeeAssignment {
	return FeeAssignment{
		ID:          r.AssignmentID,
		StudentID:   r.StudentID,
		FinalAmount: r.FinalAmount,
		PaidAmount:  r.PaidAmount,
		DueDate:     r.DueDate,
		Status:      r.Status,
	}
}
