package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type homeworkRepository interface {
	List(ctx context.Context, tenantID string, filter models.HomeworkFilter) ([]models.HomeworkDetail, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.HomeworkDetail, error)
	Create(ctx context.Context, hw *models.Homework) error
	Update(ctx context.Context, hw *models.Homework) error
	Delete(ctx context.Context, tenantID, id string) error
}

// CreateHomeworkRequest payload for posting homework to a class.
type CreateHomeworkRequest struct {
	ClassID     string    `json:"class_id" validate:"required"`
	Subject     string    `json:"subject" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

// UpdateHomeworkRequest payload for editing posted homework.
type UpdateHomeworkRequest struct {
	Subject     string    `json:"subject" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Active      bool      `json:"active"`
}

// homeworkNotifier receives a fire-and-forget signal after a posting commits.
type homeworkNotifier interface {
	HomeworkPosted(tenantID string, hw *models.Homework)
}

// HomeworkService manages homework postings.
type HomeworkService struct {
	repo      homeworkRepository
	notifier  homeworkNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHomeworkService constructs a HomeworkService. notifier may be nil.
func NewHomeworkService(repo homeworkRepository, notifier homeworkNotifier, validate *validator.Validate, logger *zap.Logger) *HomeworkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HomeworkService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// List returns homework matching the filter with pagination metadata.
func (s *HomeworkService) List(ctx context.Context, tenantID string, filter models.HomeworkFilter) ([]models.HomeworkDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list homework")
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

// Get returns one homework posting.
func (s *HomeworkService) Get(ctx context.Context, tenantID, id string) (*models.HomeworkDetail, error) {
	detail, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "homework not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load homework")
	}
	return detail, nil
}

// Create posts homework to a class.
func (s *HomeworkService) Create(ctx context.Context, tenantID, assignedBy string, req CreateHomeworkRequest) (*models.HomeworkDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}
	hw := &models.Homework{
		TenantID:    tenantID,
		ClassID:     req.ClassID,
		Subject:     req.Subject,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		AssignedBy:  assignedBy,
		Active:      true,
	}
	if err := s.repo.Create(ctx, hw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create homework")
	}
	if s.notifier != nil {
		s.notifier.HomeworkPosted(tenantID, hw)
	}
	return s.Get(ctx, tenantID, hw.ID)
}

// Update edits a posting. Only the original poster or an admin may edit;
// the handler enforces that rule from claims.
func (s *HomeworkService) Update(ctx context.Context, tenantID, id string, req UpdateHomeworkRequest) (*models.HomeworkDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid homework payload")
	}
	existing, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	hw := existing.Homework
	hw.Subject = req.Subject
	hw.Title = req.Title
	hw.Description = req.Description
	hw.DueDate = req.DueDate
	hw.Active = req.Active
	if err := s.repo.Update(ctx, &hw); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update homework")
	}
	return s.Get(ctx, tenantID, id)
}

// Delete removes a posting.
func (s *HomeworkService) Delete(ctx context.Context, tenantID, id string) error {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete homework")
	}
	return nil
}
