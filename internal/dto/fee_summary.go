package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeTotals carries the four aggregation buckets shared by every summary
// scope. Pending and Overdue partition the outstanding balance by whether the
// due date has passed.
type FeeTotals struct {
	TotalExpected  decimal.Decimal `json:"total_expected"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	TotalOverdue   decimal.Decimal `json:"total_overdue"`
}

// CategoryBreakdown accumulates totals per fee category. Assignments whose
// structure no longer resolves are reported under the "other" bucket.
type CategoryBreakdown struct {
	CategoryCode string `json:"category_code"`
	CategoryName string `json:"category_name"`
	FeeTotals
	StudentCount int `json:"student_count"`
}

// ClassBreakdown accumulates totals per class for school-wide views.
type ClassBreakdown struct {
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`
	FeeTotals
	StudentCount int `json:"student_count"`
}

// StudentBreakdown accumulates totals per student for class-wide views.
type StudentBreakdown struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	FeeTotals
}

// PaymentHistoryItem is a flattened recent payment with resolved names.
type PaymentHistoryItem struct {
	PaymentID     string          `json:"payment_id"`
	ReceiptNumber string          `json:"receipt_number"`
	StudentName   string          `json:"student_name"`
	FeeName       string          `json:"fee_name"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	CollectorName string          `json:"collector_name"`
	PaymentDate   time.Time       `json:"payment_date"`
}

// SchoolFeeSummary is the tenant-wide rollup.
type SchoolFeeSummary struct {
	AcademicYear string `json:"academic_year,omitempty"`
	FeeTotals
	CollectionRate float64              `json:"collection_rate"`
	StudentCount   int                  `json:"student_count"`
	Categories     []CategoryBreakdown  `json:"categories"`
	Classes        []ClassBreakdown     `json:"classes"`
	RecentPayments []PaymentHistoryItem `json:"recent_payments"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

// ClassFeeSummary is the per-class rollup.
type ClassFeeSummary struct {
	ClassID   string `json:"class_id"`
	ClassName string `json:"class_name"`
	FeeTotals
	CollectionRate float64             `json:"collection_rate"`
	StudentCount   int                 `json:"student_count"`
	Categories     []CategoryBreakdown `json:"categories"`
	Students       []StudentBreakdown  `json:"students"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// StudentFeeSummary is the per-student rollup with payment history.
type StudentFeeSummary struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	FeeTotals
	CollectionRate float64              `json:"collection_rate"`
	Categories     []CategoryBreakdown  `json:"categories"`
	RecentPayments []PaymentHistoryItem `json:"recent_payments"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

// ComprehensiveFeeSummary bundles the school view with every class rollup,
// serving the admin reporting screen in one request.
type ComprehensiveFeeSummary struct {
	School      SchoolFeeSummary  `json:"school"`
	ClassDetail []ClassFeeSummary `json:"class_detail"`
	GeneratedAt time.Time         `json:"generated_at"`
}
