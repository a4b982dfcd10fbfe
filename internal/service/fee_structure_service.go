package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type feeStructureRepository interface {
	List(ctx context.Context, tenantID string, filter models.FeeStructureFilter) ([]models.FeeStructureDetail, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.FeeStructureDetail, error)
	ListActiveForClass(ctx context.Context, tenantID, classID string) ([]models.FeeStructureDetail, error)
	Create(ctx context.Context, structure *models.FeeStructure, classIDs []string) error
	Update(ctx context.Context, structure *models.FeeStructure, classIDs []string) error
	SoftDelete(ctx context.Context, tenantID, id string) error
}

// CreateFeeStructureRequest holds payload for creating a priced offering.
type CreateFeeStructureRequest struct {
	Name         string          `json:"name" validate:"required"`
	CategoryID   string          `json:"category_id" validate:"required"`
	FrequencyID  string          `json:"frequency_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	AcademicYear string          `json:"academic_year" validate:"required"`
	DueDay       int             `json:"due_day" validate:"gte=0,lte=31"`
	ClassIDs     []string        `json:"class_ids"`
}

// UpdateFeeStructureRequest holds payload for updating an offering.
type UpdateFeeStructureRequest struct {
	Name         string          `json:"name" validate:"required"`
	CategoryID   string          `json:"category_id" validate:"required"`
	FrequencyID  string          `json:"frequency_id" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
	AcademicYear string          `json:"academic_year" validate:"required"`
	DueDay       int             `json:"due_day" validate:"gte=0,lte=31"`
	ClassIDs     []string        `json:"class_ids"`
	Active       bool            `json:"active"`
}

// FeeStructureService manages priced fee offerings. A structure must
// reference an existing active frequency and category at creation time, so
// an unknown cadence can never reach the due-date calculator at runtime.
type FeeStructureService struct {
	structures    feeStructureRepository
	categories    feeCategoryRepository
	frequencies   feeFrequencyRepository
	validator     *validator.Validate
	logger        *zap.Logger
	defaultDueDay int
}

// NewFeeStructureService constructs the fee structure service.
func NewFeeStructureService(structures feeStructureRepository, categories feeCategoryRepository, frequencies feeFrequencyRepository, defaultDueDay int, validate *validator.Validate, logger *zap.Logger) *FeeStructureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultDueDay < 1 || defaultDueDay > 31 {
		defaultDueDay = 10
	}
	return &FeeStructureService{
		structures:    structures,
		categories:    categories,
		frequencies:   frequencies,
		validator:     validate,
		logger:        logger,
		defaultDueDay: defaultDueDay,
	}
}

// List returns fee structures and pagination metadata.
func (s *FeeStructureService) List(ctx context.Context, tenantID string, filter models.FeeStructureFilter) ([]models.FeeStructureDetail, *models.Pagination, error) {
	items, total, err := s.structures.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee structures")
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

// Get returns one structure with its class bindings.
func (s *FeeStructureService) Get(ctx context.Context, tenantID, id string) (*models.FeeStructureDetail, error) {
	detail, err := s.structures.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee structure not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}
	return detail, nil
}

// Create registers a priced offering after validating its catalog references.
func (s *FeeStructureService) Create(ctx context.Context, tenantID string, req CreateFeeStructureRequest) (*models.FeeStructureDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee structure payload")
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	if !models.ValidAcademicYear(req.AcademicYear) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year must look like 2024-2025")
	}
	if err := s.checkCatalogRefs(ctx, tenantID, req.CategoryID, req.FrequencyID); err != nil {
		return nil, err
	}

	dueDay := req.DueDay
	if dueDay == 0 {
		dueDay = s.defaultDueDay
	}
	structure := &models.FeeStructure{
		TenantID:     tenantID,
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		FrequencyID:  req.FrequencyID,
		Amount:       req.Amount,
		AcademicYear: req.AcademicYear,
		DueDay:       dueDay,
		Active:       true,
	}
	if err := s.structures.Create(ctx, structure, req.ClassIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee structure")
	}
	return s.Get(ctx, tenantID, structure.ID)
}

// Update modifies an offering and rewrites its class bindings. Existing
// assignments keep the amount they copied at assignment time.
func (s *FeeStructureService) Update(ctx context.Context, tenantID, id string, req UpdateFeeStructureRequest) (*models.FeeStructureDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee structure payload")
	}
	if req.Amount.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	if !models.ValidAcademicYear(req.AcademicYear) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year must look like 2024-2025")
	}
	existing, err := s.structures.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee structure not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee structure")
	}
	if err := s.checkCatalogRefs(ctx, tenantID, req.CategoryID, req.FrequencyID); err != nil {
		return nil, err
	}

	dueDay := req.DueDay
	if dueDay == 0 {
		dueDay = s.defaultDueDay
	}
	structure := existing.FeeStructure
	structure.Name = req.Name
	structure.CategoryID = req.CategoryID
	structure.FrequencyID = req.FrequencyID
	structure.Amount = req.Amount
	structure.AcademicYear = req.AcademicYear
	structure.DueDay = dueDay
	structure.Active = req.Active
	if err := s.structures.Update(ctx, &structure, req.ClassIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fee structure")
	}
	return s.Get(ctx, tenantID, id)
}

// Delete soft-deletes an offering. Existing assignments survive; no new
// auto-assignments are generated from an inactive structure.
func (s *FeeStructureService) Delete(ctx context.Context, tenantID, id string) error {
	if err := s.structures.SoftDelete(ctx, tenantID, id); err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee structure not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fee structure")
	}
	return nil
}

// checkCatalogRefs enforces that the category and frequency exist, belong to
// the tenant and are active. Structures never reference a cadence the
// due-date calculator has not been given.
func (s *FeeStructureService) checkCatalogRefs(ctx context.Context, tenantID, categoryID, frequencyID string) error {
	cat, err := s.categories.FindByID(ctx, tenantID, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "category does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category")
	}
	if !cat.Active {
		return appErrors.Clone(appErrors.ErrValidation, "category is inactive")
	}
	freq, err := s.frequencies.FindByID(ctx, tenantID, frequencyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "frequency does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check frequency")
	}
	if !freq.Active {
		return appErrors.Clone(appErrors.ErrValidation, "frequency is inactive")
	}
	return nil
}
