package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/export"
	"github.com/vidyalink/vidyalink-api/pkg/storage"
)

type feePaymentRepository interface {
	Record(ctx context.Context, tenantID, assignmentID string, build repository.RecordFunc) (*models.FeePayment, *models.FeeAssignment, error)
	List(ctx context.Context, tenantID string, filter models.FeePaymentFilter) ([]models.FeePaymentDetail, int, error)
	Recent(ctx context.Context, tenantID, studentID string, limit int) ([]models.FeePaymentDetail, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.FeePaymentDetail, error)
}

// paymentNotifier receives a fire-and-forget signal after a payment commits.
type paymentNotifier interface {
	PaymentRecorded(tenantID string, payment *models.FeePayment, assignment *models.FeeAssignment)
}

// RecordPaymentRequest holds payload for recording a collected payment.
type RecordPaymentRequest struct {
	AssignmentID  string               `json:"assignment_id" validate:"required"`
	Amount        decimal.Decimal      `json:"amount"`
	Method        models.PaymentMethod `json:"method" validate:"required"`
	TransactionID string               `json:"transaction_id"`
	Remarks       string               `json:"remarks"`
}

// FeePaymentService records payments against fee assignments. The repository
// owns the transaction (row lock, receipt sequence, insert, versioned update);
// the domain rules run inside its callback so the balance guard and status
// derivation see the locked row, not a stale read.
type FeePaymentService struct {
	payments      feePaymentRepository
	notifier      paymentNotifier
	validator     *validator.Validate
	logger        *zap.Logger
	pdf           *export.PDFExporter
	archive       *storage.LocalStorage
	signer        *storage.SignedURLSigner
	receiptPrefix string
	now           func() time.Time
}

// NewFeePaymentService constructs the payment service. notifier may be nil.
func NewFeePaymentService(payments feePaymentRepository, notifier paymentNotifier, receiptPrefix string, validate *validator.Validate, logger *zap.Logger) *FeePaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if receiptPrefix == "" {
		receiptPrefix = "RCP"
	}
	return &FeePaymentService{
		payments:      payments,
		notifier:      notifier,
		validator:     validate,
		logger:        logger,
		pdf:           export.NewPDFExporter(),
		receiptPrefix: receiptPrefix,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Test hook.
func (s *FeePaymentService) WithClock(now func() time.Time) *FeePaymentService {
	s.now = now
	return s
}

// WithReceiptArchive enables archived receipts and signed download links.
func (s *FeePaymentService) WithReceiptArchive(archive *storage.LocalStorage, signer *storage.SignedURLSigner) *FeePaymentService {
	s.archive = archive
	s.signer = signer
	return s
}

// Record collects a payment against an assignment. The amount must be
// positive and must not exceed the outstanding balance; overpayment is
// rejected, not clamped. The receipt number is issued from the tenant's
// atomic counter inside the same transaction as the payment row.
func (s *FeePaymentService) Record(ctx context.Context, tenantID, collectedBy string, req RecordPaymentRequest) (*models.FeePayment, *models.FeeAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	if !req.Method.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unsupported payment method")
	}

	now := s.now()
	payment, assignment, err := s.payments.Record(ctx, tenantID, req.AssignmentID, func(a *models.FeeAssignment, seq int64) (*models.FeePayment, error) {
		if a.Status == models.FeeStatusCancelled {
			return nil, appErrors.Clone(appErrors.ErrValidation, "assignment is cancelled")
		}
		pending := a.PendingAmount()
		if req.Amount.GreaterThan(pending) {
			return nil, appErrors.Clone(appErrors.ErrExceedsBalance, "payment exceeds the pending balance of "+pending.StringFixed(2))
		}

		p := &models.FeePayment{
			ID:              uuid.NewString(),
			TenantID:        tenantID,
			StudentID:       a.StudentID,
			FeeAssignmentID: a.ID,
			Amount:          req.Amount,
			PaymentDate:     now,
			Method:          req.Method,
			TransactionID:   req.TransactionID,
			ReceiptNumber:   models.FormatReceiptNumber(s.receiptPrefix, now.Year(), seq),
			Remarks:         req.Remarks,
			CollectedBy:     collectedBy,
			Status:          models.PaymentCompleted,
		}

		a.PaidAmount = a.PaidAmount.Add(req.Amount)
		// paid_date tracks the most recent payment, not settlement.
		a.PaidDate = &now
		a.Recompute(now)
		a.PaymentID = &p.ID
		return p, nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, nil, err
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "assignment was modified concurrently, retry")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.logger.Info("payment recorded",
		zap.String("tenant_id", tenantID),
		zap.String("assignment_id", assignment.ID),
		zap.String("receipt_number", payment.ReceiptNumber),
		zap.String("amount", payment.Amount.StringFixed(2)))

	if s.notifier != nil {
		s.notifier.PaymentRecorded(tenantID, payment, assignment)
	}
	return payment, assignment, nil
}

// List returns payments matching the filter with pagination metadata.
func (s *FeePaymentService) List(ctx context.Context, tenantID string, filter models.FeePaymentFilter) ([]models.FeePaymentDetail, *models.Pagination, error) {
	items, total, err := s.payments.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one payment with joined names.
func (s *FeePaymentService) Get(ctx context.Context, tenantID, id string) (*models.FeePaymentDetail, error) {
	detail, err := s.payments.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return detail, nil
}

// ReceiptPDF renders a downloadable receipt for one payment.
func (s *FeePaymentService) ReceiptPDF(ctx context.Context, tenantID, id string) ([]byte, string, error) {
	detail, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}
	collector := ""
	if detail.CollectorName != nil {
		collector = *detail.CollectorName
	}
	student := ""
	if detail.StudentName != nil {
		student = *detail.StudentName
	}
	fee := ""
	if detail.FeeName != nil {
		fee = *detail.FeeName
	}
	data := export.Dataset{
		Headers: []string{"Field", "Value"},
		Rows: []map[string]string{
			{"Field": "Receipt Number", "Value": detail.ReceiptNumber},
			{"Field": "Date", "Value": detail.PaymentDate.Format("2006-01-02 15:04")},
			{"Field": "Student", "Value": student},
			{"Field": "Fee", "Value": fee},
			{"Field": "Amount", "Value": detail.Amount.StringFixed(2)},
			{"Field": "Method", "Value": string(detail.Method)},
			{"Field": "Collected By", "Value": collector},
			{"Field": "Status", "Value": string(detail.Status)},
		},
	}
	payload, err := s.pdf.Render(data, "Fee Receipt "+detail.ReceiptNumber)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	filename := detail.ReceiptNumber + ".pdf"
	if s.archive != nil {
		if _, saveErr := s.archive.Save(receiptPath(tenantID, filename), payload); saveErr != nil {
			s.logger.Warn("failed to archive receipt", zap.String("payment_id", id), zap.Error(saveErr))
		}
	}
	return payload, filename, nil
}

// ReceiptLink renders and archives the receipt, then returns a signed
// download token that works without an authenticated session. Parents share
// these links; the token embeds the expiry.
func (s *FeePaymentService) ReceiptLink(ctx context.Context, tenantID, id string) (string, time.Time, error) {
	if s.archive == nil || s.signer == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInternal, "receipt archive is not configured")
	}
	_, filename, err := s.ReceiptPDF(ctx, tenantID, id)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Generate(id, receiptPath(tenantID, filename))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return token, expiresAt, nil
}

// ArchivedReceipt resolves a signed token to the stored receipt bytes.
func (s *FeePaymentService) ArchivedReceipt(token string) ([]byte, string, error) {
	if s.archive == nil || s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrInternal, "receipt archive is not configured")
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "receipt link is invalid or expired")
	}
	file, err := s.archive.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "receipt is no longer available")
	}
	defer file.Close() //nolint:errcheck
	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read archived receipt")
	}
	return payload, path.Base(relPath), nil
}

func receiptPath(tenantID, filename string) string {
	return path.Join("receipts", tenantID, filename)
}
