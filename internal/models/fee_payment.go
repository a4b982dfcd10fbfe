package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a fee payment was collected.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentOnline       PaymentMethod = "online"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
)

// Valid reports whether the method is a supported value.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCheque, PaymentOnline, PaymentBankTransfer, PaymentCard:
		return true
	default:
		return false
	}
}

// PaymentStatus is the settlement state of a payment record.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentPending   PaymentStatus = "pending"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// FeePayment records money collected against a fee assignment. Rows are
// immutable once written; corrections happen through new records.
type FeePayment struct {
	ID              string          `db:"id" json:"id"`
	TenantID        string          `db:"tenant_id" json:"tenant_id"`
	StudentID       string          `db:"student_id" json:"student_id"`
	FeeAssignmentID string          `db:"fee_assignment_id" json:"fee_assignment_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	PaymentDate     time.Time       `db:"payment_date" json:"payment_date"`
	Method          PaymentMethod   `db:"method" json:"method"`
	TransactionID   string          `db:"transaction_id" json:"transaction_id,omitempty"`
	ReceiptNumber   string          `db:"receipt_number" json:"receipt_number"`
	Remarks         string          `db:"remarks" json:"remarks,omitempty"`
	CollectedBy     string          `db:"collected_by" json:"collected_by"`
	Status          PaymentStatus   `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// FeePaymentDetail joins student, fee and collector names for listings.
type FeePaymentDetail struct {
	FeePayment
	StudentName   *string `db:"student_name" json:"student_name,omitempty"`
	FeeName       *string `db:"fee_name" json:"fee_name,omitempty"`
	CollectorName *string `db:"collector_name" json:"collector_name,omitempty"`
}

// FeePaymentFilter restricts payment listings.
type FeePaymentFilter struct {
	StudentID    string
	AssignmentID string
	Method       PaymentMethod
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

// FormatReceiptNumber renders a tenant receipt number from an atomically
// issued sequence, e.g. RCP2024000042.
func FormatReceiptNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s%d%06d", prefix, year, seq)
}
