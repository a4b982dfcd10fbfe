package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/fees"
	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type feeAssignmentRepository interface {
	Create(ctx context.Context, a *models.FeeAssignment) error
	Exists(ctx context.Context, tenantID, studentID, structureID, academicYear string) (bool, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.FeeAssignment, error)
	ListByStudent(ctx context.Context, tenantID, studentID, academicYear string) ([]models.FeeAssignmentDetail, error)
	Update(ctx context.Context, a *models.FeeAssignment) error
	CancelUnpaidForClass(ctx context.Context, tenantID, classID, cancelledBy, reason string) (int, error)
}

type assignmentStudentRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error)
}

// Discount reduces an assignment's final amount, with an audit reason.
type Discount struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// AssignFeeRequest binds one structure to one student.
type AssignFeeRequest struct {
	StudentID      string    `json:"student_id" validate:"required"`
	FeeStructureID string    `json:"fee_structure_id" validate:"required"`
	Discount       *Discount `json:"discount"`
}

// FeeAssignmentService is the assignment engine: it creates per-student
// obligations from fee structures, copying the price and computing the due
// date at assignment time. The clock is injectable so due-date and status
// behavior is testable against a fixed reference date.
type FeeAssignmentService struct {
	assignments feeAssignmentRepository
	structures  feeStructureRepository
	students    assignmentStudentRepository
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewFeeAssignmentService constructs the assignment engine.
func NewFeeAssignmentService(assignments feeAssignmentRepository, structures feeStructureRepository, students assignmentStudentRepository, validate *validator.Validate, logger *zap.Logger) *FeeAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeAssignmentService{
		assignments: assignments,
		structures:  structures,
		students:    students,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Test hook.
func (s *FeeAssignmentService) WithClock(now func() time.Time) *FeeAssignmentService {
	s.now = now
	return s
}

// Assign creates one assignment for a student from a fee structure. The
// existence check is a fast path; the unique index on the tuple is the
// authoritative guard, so a racing duplicate surfaces as Conflict either way.
func (s *FeeAssignmentService) Assign(ctx context.Context, tenantID string, req AssignFeeRequest) (*models.FeeAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.students.FindByID(ctx, tenantID, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	structure, err := s.structures.FindByID(ctx, tenantID, req.FeeStructureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee structure not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}

	exists, err := s.assignments.Exists(ctx, tenantID, req.StudentID, structure.ID, structure.AcademicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee already assigned to this student for the academic year")
	}

	assignment, err := s.buildAssignment(tenantID, req.StudentID, structure, req.Discount)
	if err != nil {
		return nil, err
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrDuplicateAssignment) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "fee already assigned to this student for the academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// AutoAssignClassFees creates assignments for every active structure bound
// to the class that the student does not already have for its academic year.
// Idempotent: a second invocation finds every tuple existing and creates
// nothing. Returns the assignments created by this call.
func (s *FeeAssignmentService) AutoAssignClassFees(ctx context.Context, tenantID, studentID, classID string) ([]models.FeeAssignment, error) {
	structures, err := s.structures.ListActiveForClass(ctx, tenantID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class fee structures")
	}

	created := make([]models.FeeAssignment, 0, len(structures))
	for i := range structures {
		structure := &structures[i]
		exists, err := s.assignments.Exists(ctx, tenantID, studentID, structure.ID, structure.AcademicYear)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing assignment")
		}
		if exists {
			continue
		}
		assignment, err := s.buildAssignment(tenantID, studentID, structure, nil)
		if err != nil {
			return nil, err
		}
		if err := s.assignments.Create(ctx, assignment); err != nil {
			if errors.Is(err, repository.ErrDuplicateAssignment) {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
		}
		created = append(created, *assignment)
	}
	return created, nil
}

// StudentFees returns a student's assignments with live-derived status and
// pending amounts, optionally filtered by academic year.
func (s *FeeAssignmentService) StudentFees(ctx context.Context, tenantID, studentID, academicYear string) ([]models.FeeAssignmentDetail, error) {
	items, err := s.assignments.ListByStudent(ctx, tenantID, studentID, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student fees")
	}
	today := s.now()
	for i := range items {
		items[i].Recompute(today)
	}
	return items, nil
}

// ApplyDiscount updates an assignment's discount and recomputes the final
// amount and status in one versioned write.
func (s *FeeAssignmentService) ApplyDiscount(ctx context.Context, tenantID, assignmentID string, discount Discount) (*models.FeeAssignment, error) {
	if discount.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount must not be negative")
	}
	assignment, err := s.assignments.FindByID(ctx, tenantID, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.Status == models.FeeStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment is cancelled")
	}
	if discount.Amount.GreaterThan(assignment.TotalAmount) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount exceeds the fee amount")
	}

	assignment.DiscountAmount = discount.Amount
	assignment.DiscountReason = discount.Reason
	assignment.FinalAmount = assignment.TotalAmount.Sub(discount.Amount)
	assignment.Recompute(s.now())
	if err := s.assignments.Update(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment was modified concurrently, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Cancel marks one assignment cancelled with audit metadata.
func (s *FeeAssignmentService) Cancel(ctx context.Context, tenantID, assignmentID, cancelledBy, reason string) (*models.FeeAssignment, error) {
	assignment, err := s.assignments.FindByID(ctx, tenantID, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.Status == models.FeeStatusCancelled {
		return assignment, nil
	}
	assignment.Cancel(cancelledBy, reason, s.now())
	if err := s.assignments.Update(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment was modified concurrently, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel assignment")
	}
	return assignment, nil
}

// CancelClassAssignments cancels the unpaid (< 1 paid) assignments of a
// class's students, typically when the class is deleted.
func (s *FeeAssignmentService) CancelClassAssignments(ctx context.Context, tenantID, classID, cancelledBy, reason string) (int, error) {
	n, err := s.assignments.CancelUnpaidForClass(ctx, tenantID, classID, cancelledBy, reason)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel class assignments")
	}
	return n, nil
}

func (s *FeeAssignmentService) buildAssignment(tenantID, studentID string, structure *models.FeeStructureDetail, discount *Discount) (*models.FeeAssignment, error) {
	discountAmount := decimal.Zero
	discountReason := ""
	if discount != nil {
		if discount.Amount.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "discount must not be negative")
		}
		if discount.Amount.GreaterThan(structure.Amount) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "discount exceeds the fee amount")
		}
		discountAmount = discount.Amount
		discountReason = discount.Reason
	}

	now := s.now()
	assignment := &models.FeeAssignment{
		TenantID:       tenantID,
		StudentID:      studentID,
		FeeStructureID: structure.ID,
		AcademicYear:   structure.AcademicYear,
		TotalAmount:    structure.Amount,
		DiscountAmount: discountAmount,
		DiscountReason: discountReason,
		FinalAmount:    structure.Amount.Sub(discountAmount),
		DueDate:        fees.NextDueDate(structure.FrequencyCode, structure.DueDay, now),
		PaidAmount:     decimal.Zero,
		Version:        1,
	}
	assignment.Recompute(now)
	return assignment, nil
}
