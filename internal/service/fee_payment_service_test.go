package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type mockPaymentRepo struct {
	assignment *models.FeeAssignment
	nextSeq    int64
	recordErr  error
	payments   []*models.FeePayment
	details    []models.FeePaymentDetail
	listTotal  int
}

func (m *mockPaymentRepo) Record(ctx context.Context, tenantID, assignmentID string, build repository.RecordFunc) (*models.FeePayment, *models.FeeAssignment, error) {
	if m.recordErr != nil {
		return nil, nil, m.recordErr
	}
	if m.assignment == nil || m.assignment.ID != assignmentID {
		return nil, nil, sql.ErrNoRows
	}
	m.nextSeq++
	payment, err := build(m.assignment, m.nextSeq)
	if err != nil {
		return nil, nil, err
	}
	m.assignment.Version++
	m.payments = append(m.payments, payment)
	return payment, m.assignment, nil
}

func (m *mockPaymentRepo) List(ctx context.Context, tenantID string, filter models.FeePaymentFilter) ([]models.FeePaymentDetail, int, error) {
	return m.details, m.listTotal, nil
}

func (m *mockPaymentRepo) Recent(ctx context.Context, tenantID, studentID string, limit int) ([]models.FeePaymentDetail, error) {
	return m.details, nil
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, tenantID, id string) (*models.FeePaymentDetail, error) {
	for i := range m.details {
		if m.details[i].ID == id {
			return &m.details[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockNotifier struct {
	fired int
}

func (m *mockNotifier) PaymentRecorded(tenantID string, payment *models.FeePayment, assignment *models.FeeAssignment) {
	m.fired++
}

func openAssignment(paid int64) *models.FeeAssignment {
	return &models.FeeAssignment{
		ID:          "a1",
		TenantID:    "t1",
		StudentID:   "st1",
		TotalAmount: decimal.NewFromInt(1000),
		FinalAmount: decimal.NewFromInt(1000),
		PaidAmount:  decimal.NewFromInt(paid),
		DueDate:     time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC),
		Status:      models.FeeStatusPending,
		Version:     1,
	}
}

func newPaymentFixture(assignment *models.FeeAssignment) (*FeePaymentService, *mockPaymentRepo, *mockNotifier) {
	repo := &mockPaymentRepo{assignment: assignment}
	notifier := &mockNotifier{}
	svc := NewFeePaymentService(repo, notifier, "RCP", validator.New(), zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) })
	return svc, repo, notifier
}

func TestFeePaymentRecordPartial(t *testing.T) {
	svc, _, notifier := newPaymentFixture(openAssignment(0))

	payment, assignment, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "a1",
		Amount:       decimal.NewFromInt(400),
		Method:       models.PaymentCash,
	})
	require.NoError(t, err)
	assert.Equal(t, "RCP2026000001", payment.ReceiptNumber)
	assert.Equal(t, models.PaymentCompleted, payment.Status)
	assert.Equal(t, "u1", payment.CollectedBy)
	assert.Equal(t, models.FeeStatusPartiallyPaid, assignment.Status)
	assert.True(t, assignment.PaidAmount.Equal(decimal.NewFromInt(400)))
	require.NotNil(t, assignment.PaidDate)
	assert.Equal(t, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC), *assignment.PaidDate)
	assert.Equal(t, 1, notifier.fired)
}

func TestFeePaymentRecordSettles(t *testing.T) {
	svc, repo, _ := newPaymentFixture(openAssignment(600))

	payment, assignment, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "a1",
		Amount:       decimal.NewFromInt(400),
		Method:       models.PaymentBankTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, assignment.Status)
	require.NotNil(t, assignment.PaidDate)
	require.NotNil(t, assignment.PaymentID)
	assert.Equal(t, payment.ID, *assignment.PaymentID)
	assert.Len(t, repo.payments, 1)
}

func TestFeePaymentRecordOverpayment(t *testing.T) {
	svc, repo, notifier := newPaymentFixture(openAssignment(400))

	_, _, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "a1",
		Amount:       decimal.NewFromInt(700),
		Method:       models.PaymentCash,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrExceedsBalance.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "600.00")
	assert.Empty(t, repo.payments)
	assert.Zero(t, notifier.fired)
}

func TestFeePaymentRecordCancelledAssignment(t *testing.T) {
	assignment := openAssignment(0)
	assignment.Status = models.FeeStatusCancelled
	svc, _, _ := newPaymentFixture(assignment)

	_, _, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "a1",
		Amount:       decimal.NewFromInt(100),
		Method:       models.PaymentCash,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeePaymentRecordRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newPaymentFixture(openAssignment(0))

	_, _, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "a1",
		Amount:       decimal.Zero,
		Method:       models.PaymentCash,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeePaymentRecordRejectsUnknownMethod(t *testing.T) {
	svc, _, _ := newPaymentFixture(openAssignment(0))

	_, _, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "a1",
		Amount:       decimal.NewFromInt(100),
		Method:       models.PaymentMethod("barter"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeePaymentRecordVersionConflict(t *testing.T) {
	svc, repo, _ := newPaymentFixture(openAssignment(0))
	repo.recordErr = repository.ErrVersionConflict

	_, _, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "a1",
		Amount:       decimal.NewFromInt(100),
		Method:       models.PaymentCash,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFeePaymentRecordMissingAssignment(t *testing.T) {
	svc, _, _ := newPaymentFixture(openAssignment(0))

	_, _, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "missing",
		Amount:       decimal.NewFromInt(100),
		Method:       models.PaymentCash,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFeePaymentSequentialReceiptNumbers(t *testing.T) {
	svc, _, _ := newPaymentFixture(openAssignment(0))

	first, _, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "a1", Amount: decimal.NewFromInt(100), Method: models.PaymentCash,
	})
	require.NoError(t, err)
	second, _, err := svc.Record(context.Background(), "t1", "u1", RecordPaymentRequest{
		AssignmentID: "a1", Amount: decimal.NewFromInt(100), Method: models.PaymentCash,
	})
	require.NoError(t, err)
	assert.Equal(t, "RCP2026000001", first.ReceiptNumber)
	assert.Equal(t, "RCP2026000002", second.ReceiptNumber)
}

func TestFeePaymentReceiptPDF(t *testing.T) {
	svc, repo, _ := newPaymentFixture(openAssignment(0))
	student := "Student"
	repo.details = []models.FeePaymentDetail{{
		FeePayment: models.FeePayment{
			ID:            "p1",
			TenantID:      "t1",
			Amount:        decimal.NewFromInt(400),
			PaymentDate:   time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
			Method:        models.PaymentCash,
			ReceiptNumber: "RCP2026000001",
			Status:        models.PaymentCompleted,
		},
		StudentName: &student,
	}}

	payload, filename, err := svc.ReceiptPDF(context.Background(), "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "RCP2026000001.pdf", filename)
	assert.NotEmpty(t, payload)
}

func TestFeePaymentReceiptLinkRequiresArchive(t *testing.T) {
	svc, _, _ := newPaymentFixture(openAssignment(0))

	_, _, err := svc.ReceiptLink(context.Background(), "t1", "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
