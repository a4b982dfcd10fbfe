package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type leaveRepository interface {
	List(ctx context.Context, tenantID string, filter models.LeaveFilter) ([]models.LeaveDetail, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.LeaveDetail, error)
	Create(ctx context.Context, leave *models.LeaveRequest) error
	Decide(ctx context.Context, tenantID, id string, status models.LeaveStatus, decidedBy, msg string) error
}

// ApplyLeaveRequest is filed by a parent on behalf of their child.
type ApplyLeaveRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	FromDate  time.Time `json:"from_date" validate:"required"`
	ToDate    time.Time `json:"to_date" validate:"required"`
	Reason    string    `json:"reason" validate:"required"`
}

// DecideLeaveRequest approves or rejects a pending request.
type DecideLeaveRequest struct {
	Approve bool   `json:"approve"`
	Message string `json:"message"`
}

// LeaveService manages the leave request workflow. Decided requests are
// final; a decision on a non-pending request reports Conflict.
type LeaveService struct {
	repo      leaveRepository
	students  notificationStudentRepository
	notifier  *NotificationService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs a LeaveService. notifier may be nil.
func NewLeaveService(repo leaveRepository, students notificationStudentRepository, notifier *NotificationService, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{repo: repo, students: students, notifier: notifier, validator: validate, logger: logger}
}

// List returns leave requests matching the filter.
func (s *LeaveService) List(ctx context.Context, tenantID string, filter models.LeaveFilter) ([]models.LeaveDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
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

// Get returns one leave request.
func (s *LeaveService) Get(ctx context.Context, tenantID, id string) (*models.LeaveDetail, error) {
	detail, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	return detail, nil
}

// Apply files a pending leave request. Parents may only file for their own
// children; that ownership check happens here against the student row.
func (s *LeaveService) Apply(ctx context.Context, tenantID, appliedBy string, role models.UserRole, req ApplyLeaveRequest) (*models.LeaveDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	if req.ToDate.Before(req.FromDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "leave end date precedes start date")
	}
	student, err := s.students.FindByID(ctx, tenantID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if role == models.RoleParent && (student.ParentID == nil || *student.ParentID != appliedBy) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "parents can only apply for their own children")
	}

	leave := &models.LeaveRequest{
		TenantID:  tenantID,
		StudentID: req.StudentID,
		AppliedBy: appliedBy,
		FromDate:  req.FromDate,
		ToDate:    req.ToDate,
		Reason:    req.Reason,
		Status:    models.LeavePending,
	}
	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to file leave request")
	}
	return s.Get(ctx, tenantID, leave.ID)
}

// Decide approves or rejects a pending request and notifies the applicant.
func (s *LeaveService) Decide(ctx context.Context, tenantID, id, decidedBy string, req DecideLeaveRequest) (*models.LeaveDetail, error) {
	existing, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	status := models.LeaveRejected
	if req.Approve {
		status = models.LeaveApproved
	}
	if err := s.repo.Decide(ctx, tenantID, id, status, decidedBy, req.Message); err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "leave request is already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide leave request")
	}

	if s.notifier != nil {
		verb := "rejected"
		if req.Approve {
			verb = "approved"
		}
		s.notifier.Notify(tenantID, []string{existing.AppliedBy},
			"Leave request "+verb,
			fmt.Sprintf("Leave for %s (%s to %s) was %s.",
				existing.StudentName,
				existing.FromDate.Format("2006-01-02"),
				existing.ToDate.Format("2006-01-02"),
				verb),
			map[string]string{"type": "leave_decision", "leave_id": id})
	}
	return s.Get(ctx, tenantID, id)
}
