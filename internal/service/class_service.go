package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, tenantID string, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class, feeStructureIDs []string) error
	Update(ctx context.Context, class *models.Class, feeStructureIDs []string) error
	Deactivate(ctx context.Context, tenantID, id string) error
}

// CreateClassRequest payload for registering a class or section.
type CreateClassRequest struct {
	Name            string   `json:"name" validate:"required"`
	Section         string   `json:"section"`
	ClassTeacherID  *string  `json:"class_teacher_id"`
	FeeStructureIDs []string `json:"fee_structure_ids"`
}

// UpdateClassRequest payload for modifying a class.
type UpdateClassRequest struct {
	Name            string   `json:"name" validate:"required"`
	Section         string   `json:"section"`
	ClassTeacherID  *string  `json:"class_teacher_id"`
	FeeStructureIDs []string `json:"fee_structure_ids"`
	Active          bool     `json:"active"`
}

// ClassService manages classes and their fee structure bindings. Deleting a
// class best-effort cancels the unpaid assignments of its students.
type ClassService struct {
	repo        classRepository
	assignments *FeeAssignmentService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs a ClassService. assignments may be nil; class
// deletion then skips assignment cleanup.
func NewClassService(repo classRepository, assignments *FeeAssignmentService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, assignments: assignments, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, tenantID string, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
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

// Get returns one class with its fee structure bindings.
func (s *ClassService) Get(ctx context.Context, tenantID, id string) (*models.ClassDetail, error) {
	detail, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// Create registers a class and binds its fee structures in one transaction.
func (s *ClassService) Create(ctx context.Context, tenantID string, req CreateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{
		TenantID:       tenantID,
		Name:           req.Name,
		Section:        req.Section,
		ClassTeacherID: req.ClassTeacherID,
		Active:         true,
	}
	if err := s.repo.Create(ctx, class, req.FeeStructureIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return s.Get(ctx, tenantID, class.ID)
}

// Update modifies a class and rewrites its fee structure bindings. Rebinding
// affects future auto-assignments only; existing assignments are untouched.
func (s *ClassService) Update(ctx context.Context, tenantID, id string, req UpdateClassRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	existing, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	class := existing.Class
	class.Name = req.Name
	class.Section = req.Section
	class.ClassTeacherID = req.ClassTeacherID
	class.Active = req.Active
	if err := s.repo.Update(ctx, &class, req.FeeStructureIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return s.Get(ctx, tenantID, id)
}

// Delete deactivates a class, detaches its fee bindings and best-effort
// cancels the unpaid assignments of its students. A cancellation failure is
// logged, not surfaced: the class is already deactivated and the remaining
// assignments stay individually cancellable.
func (s *ClassService) Delete(ctx context.Context, tenantID, id, actorID string) error {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	if s.assignments != nil {
		n, err := s.assignments.CancelClassAssignments(ctx, tenantID, id, actorID, "class deleted")
		if err != nil {
			s.logger.Warn("failed to cancel class assignments",
				zap.String("tenant_id", tenantID), zap.String("class_id", id), zap.Error(err))
		} else if n > 0 {
			s.logger.Info("cancelled unpaid assignments for deleted class",
				zap.String("tenant_id", tenantID), zap.String("class_id", id), zap.Int("count", n))
		}
	}
	return nil
}
