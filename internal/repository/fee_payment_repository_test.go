package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalink/vidyalink-api/internal/models"
)

func lockedAssignmentRows(now time.Time, paid string, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "student_id", "fee_structure_id", "academic_year", "total_amount",
		"discount_amount", "discount_reason", "final_amount", "due_date", "status", "paid_amount", "paid_date",
		"payment_id", "cancelled_at", "cancelled_by", "cancel_reason", "version", "created_at", "updated_at",
	}).AddRow("a1", "t1", "st1", "fs1", "2026-2027", "1000",
		"0", "", "1000", now.AddDate(0, 1, 0), string(models.FeeStatusPending), paid, nil,
		nil, nil, nil, "", version, now, now)
}

func TestFeePaymentRepositoryRecord(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeePaymentRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_assignments WHERE tenant_id = $1 AND id = $2 FOR UPDATE")).
		WithArgs("t1", "a1").
		WillReturnRows(lockedAssignmentRows(now, "0", 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO fee_counters (tenant_id, name, value) VALUES ($1, $2, 1)")).
		WithArgs("t1", "receipt").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(7))
	mock.ExpectExec("INSERT INTO fee_payments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_assignments SET status = $1, paid_amount = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payment, assignment, err := repo.Record(context.Background(), "t1", "a1", func(a *models.FeeAssignment, seq int64) (*models.FeePayment, error) {
		assert.Equal(t, int64(7), seq)
		a.PaidAmount = a.PaidAmount.Add(decimal.NewFromInt(400))
		a.Recompute(now)
		return &models.FeePayment{
			TenantID:        "t1",
			StudentID:       a.StudentID,
			FeeAssignmentID: a.ID,
			Amount:          decimal.NewFromInt(400),
			PaymentDate:     now,
			Method:          models.PaymentCash,
			ReceiptNumber:   models.FormatReceiptNumber("RCP", now.Year(), seq),
			CollectedBy:     "u1",
			Status:          models.PaymentCompleted,
		}, nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.Equal(t, 2, assignment.Version)
	assert.Equal(t, models.FeeStatusPartiallyPaid, assignment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeePaymentRepositoryRecordVersionConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeePaymentRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("t1", "a1").
		WillReturnRows(lockedAssignmentRows(now, "0", 3))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO fee_counters")).
		WithArgs("t1", "receipt").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(8))
	mock.ExpectExec("INSERT INTO fee_payments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE fee_assignments SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err := repo.Record(context.Background(), "t1", "a1", func(a *models.FeeAssignment, seq int64) (*models.FeePayment, error) {
		return &models.FeePayment{TenantID: "t1", StudentID: a.StudentID, FeeAssignmentID: a.ID, Amount: decimal.NewFromInt(100), PaymentDate: now, Method: models.PaymentCash, Status: models.PaymentCompleted}, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeePaymentRepositoryRecordBuildRejects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeePaymentRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("t1", "a1").
		WillReturnRows(lockedAssignmentRows(now, "1000", 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO fee_counters")).
		WithArgs("t1", "receipt").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(9))
	mock.ExpectRollback()

	rejection := assert.AnError
	_, _, err := repo.Record(context.Background(), "t1", "a1", func(a *models.FeeAssignment, seq int64) (*models.FeePayment, error) {
		return nil, rejection
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, rejection)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeePaymentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeePaymentRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "student_id", "fee_assignment_id", "amount", "payment_date",
		"method", "transaction_id", "receipt_number", "remarks", "collected_by", "status", "created_at",
		"student_name", "fee_name", "collector_name",
	}).AddRow("p1", "t1", "st1", "a1", "400", now,
		string(models.PaymentCash), "", "RCP2026000001", "", "u1", string(models.PaymentCompleted), now,
		"Student", "Tuition", "Collector")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE fp.tenant_id = $1 AND fp.student_id = $2 ORDER BY fp.payment_date DESC")).
		WithArgs("t1", "st1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("t1", "st1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), "t1", models.FeePaymentFilter{StudentID: "st1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "RCP2026000001", items[0].ReceiptNumber)
	require.NotNil(t, items[0].StudentName)
	assert.Equal(t, "Student", *items[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
