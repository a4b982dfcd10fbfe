package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestDeriveStatus(t *testing.T) {
	today := time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)
	future := time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC)
	past := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		a    FeeAssignment
		want FeeStatus
	}{
		{"unpaid before due", FeeAssignment{FinalAmount: amt(5000), PaidAmount: amt(0), DueDate: future}, FeeStatusPending},
		{"unpaid after due", FeeAssignment{FinalAmount: amt(5000), PaidAmount: amt(0), DueDate: past}, FeeStatusOverdue},
		{"partially paid before due", FeeAssignment{FinalAmount: amt(5000), PaidAmount: amt(2000), DueDate: future}, FeeStatusPartiallyPaid},
		{"partially paid after due", FeeAssignment{FinalAmount: amt(5000), PaidAmount: amt(2000), DueDate: past}, FeeStatusOverdue},
		{"fully paid", FeeAssignment{FinalAmount: amt(5000), PaidAmount: amt(5000), DueDate: past}, FeeStatusPaid},
		{"overpaid still paid", FeeAssignment{FinalAmount: amt(5000), PaidAmount: amt(6000), DueDate: past}, FeeStatusPaid},
		{"due today is not overdue", FeeAssignment{FinalAmount: amt(5000), PaidAmount: amt(0), DueDate: today}, FeeStatusPending},
		{"cancelled is terminal", FeeAssignment{Status: FeeStatusCancelled, FinalAmount: amt(5000), PaidAmount: amt(5000), DueDate: past}, FeeStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.DeriveStatus(today))
		})
	}
}

func TestPendingAmountNeverNegative(t *testing.T) {
	a := FeeAssignment{FinalAmount: amt(5000), PaidAmount: amt(2000)}
	assert.True(t, amt(3000).Equal(a.PendingAmount()))

	// corrupted paid amount above final must clamp to zero
	a.PaidAmount = amt(9000)
	assert.True(t, a.PendingAmount().IsZero())
}

func TestCancelSetsTerminalState(t *testing.T) {
	a := FeeAssignment{FinalAmount: amt(1000), DueDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	at := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	a.Cancel("admin-1", "class removed", at)

	assert.Equal(t, FeeStatusCancelled, a.Status)
	a.Recompute(at)
	assert.Equal(t, FeeStatusCancelled, a.Status)
}

func TestDeriveCodes(t *testing.T) {
	assert.Equal(t, "half-yearly", DeriveFrequencyCode("Half Yearly"))
	assert.Equal(t, "monthly", DeriveFrequencyCode("  Monthly "))
	assert.Equal(t, "SPORTS_FEE", DeriveCategoryCode("Sports Fee"))
	assert.Equal(t, "LAB_FEE_2", DeriveCategoryCode("Lab Fee #2"))
}

func TestValidAcademicYear(t *testing.T) {
	assert.True(t, ValidAcademicYear("2024-2025"))
	assert.False(t, ValidAcademicYear("2024"))
	assert.False(t, ValidAcademicYear("24-25"))
}

func TestFormatReceiptNumber(t *testing.T) {
	assert.Equal(t, "RCP2024000042", FormatReceiptNumber("RCP", 2024, 42))
}
