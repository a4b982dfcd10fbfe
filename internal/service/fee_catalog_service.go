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

type feeFrequencyRepository interface {
	List(ctx context.Context, tenantID string, activeOnly bool) ([]models.FeeFrequency, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.FeeFrequency, error)
	ExistsByCode(ctx context.Context, tenantID, code, excludeID string) (bool, error)
	Create(ctx context.Context, freq *models.FeeFrequency) error
	InitDefaults(ctx context.Context, tenantID string, defaults []models.FeeFrequency) (int, error)
	Update(ctx context.Context, freq *models.FeeFrequency) error
	CountStructures(ctx context.Context, tenantID, frequencyID string) (int, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type feeCategoryRepository interface {
	List(ctx context.Context, tenantID string, activeOnly bool) ([]models.FeeCategory, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.FeeCategory, error)
	ExistsByCode(ctx context.Context, tenantID, code, excludeID string) (bool, error)
	Create(ctx context.Context, cat *models.FeeCategory) error
	InitDefaults(ctx context.Context, tenantID string, defaults []models.FeeCategory) (int, error)
	Update(ctx context.Context, cat *models.FeeCategory) error
	CountStructures(ctx context.Context, tenantID, categoryID string) (int, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// CreateFrequencyRequest holds payload for creating a custom cadence.
type CreateFrequencyRequest struct {
	Name           string `json:"name" validate:"required"`
	Code           string `json:"code"`
	MonthsInterval int    `json:"months_interval" validate:"gte=0"`
	DisplayOrder   int    `json:"display_order"`
}

// UpdateFrequencyRequest holds payload for updating a cadence.
type UpdateFrequencyRequest struct {
	Name           string `json:"name" validate:"required"`
	MonthsInterval int    `json:"months_interval" validate:"gte=0"`
	DisplayOrder   int    `json:"display_order"`
	Active         bool   `json:"active"`
}

// CreateCategoryRequest holds payload for creating a custom category.
type CreateCategoryRequest struct {
	Name         string `json:"name" validate:"required"`
	Code         string `json:"code"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
}

// UpdateCategoryRequest holds payload for updating a category.
type UpdateCategoryRequest struct {
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	Active       bool   `json:"active"`
}

// FeeCatalogService manages the frequency and category catalogs. The two
// mirror each other: tenant-scoped codes, protected system rows, and a
// deletion guard while fee structures reference the row.
type FeeCatalogService struct {
	frequencies feeFrequencyRepository
	categories  feeCategoryRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewFeeCatalogService constructs the catalog service.
func NewFeeCatalogService(frequencies feeFrequencyRepository, categories feeCategoryRepository, validate *validator.Validate, logger *zap.Logger) *FeeCatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeCatalogService{frequencies: frequencies, categories: categories, validator: validate, logger: logger}
}

// ListFrequencies returns the tenant's cadences; activeOnly serves dropdowns.
func (s *FeeCatalogService) ListFrequencies(ctx context.Context, tenantID string, activeOnly bool) ([]models.FeeFrequency, error) {
	items, err := s.frequencies.List(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee frequencies")
	}
	return items, nil
}

// InitDefaultFrequencies seeds the five system cadences, skipping existing
// codes. Safe to call repeatedly.
func (s *FeeCatalogService) InitDefaultFrequencies(ctx context.Context, tenantID string) (int, error) {
	inserted, err := s.frequencies.InitDefaults(ctx, tenantID, models.DefaultFrequencies())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialize frequencies")
	}
	return inserted, nil
}

// CreateFrequency registers a custom cadence. The code derives from the name
// when absent.
func (s *FeeCatalogService) CreateFrequency(ctx context.Context, tenantID string, req CreateFrequencyRequest) (*models.FeeFrequency, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid frequency payload")
	}
	code := req.Code
	if code == "" {
		code = models.DeriveFrequencyCode(req.Name)
	}
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "frequency code cannot be empty")
	}
	exists, err := s.frequencies.ExistsByCode(ctx, tenantID, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate frequency code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "frequency code already exists")
	}
	freq := &models.FeeFrequency{
		TenantID:       tenantID,
		Name:           req.Name,
		Code:           code,
		MonthsInterval: req.MonthsInterval,
		DisplayOrder:   req.DisplayOrder,
		Active:         true,
	}
	if err := s.frequencies.Create(ctx, freq); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create frequency")
	}
	return freq, nil
}

// UpdateFrequency modifies a custom cadence. System rows are immutable.
func (s *FeeCatalogService) UpdateFrequency(ctx context.Context, tenantID, id string, req UpdateFrequencyRequest) (*models.FeeFrequency, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid frequency payload")
	}
	freq, err := s.frequencies.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "frequency not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load frequency")
	}
	if freq.IsSystem {
		return nil, appErrors.Clone(appErrors.ErrSystemRecord, "system frequencies cannot be modified")
	}
	freq.Name = req.Name
	freq.MonthsInterval = req.MonthsInterval
	freq.DisplayOrder = req.DisplayOrder
	freq.Active = req.Active
	if err := s.frequencies.Update(ctx, freq); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update frequency")
	}
	return freq, nil
}

// DeleteFrequency hard-deletes a custom cadence with no structures on it.
func (s *FeeCatalogService) DeleteFrequency(ctx context.Context, tenantID, id string) error {
	freq, err := s.frequencies.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "frequency not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load frequency")
	}
	if freq.IsSystem {
		return appErrors.Clone(appErrors.ErrSystemRecord, "system frequencies cannot be deleted")
	}
	count, err := s.frequencies.CountStructures(ctx, tenantID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check frequency usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrRecordInUse, "frequency is used by fee structures")
	}
	if err := s.frequencies.Delete(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete frequency")
	}
	return nil
}

// ListCategories returns the tenant's categories; activeOnly serves dropdowns.
func (s *FeeCatalogService) ListCategories(ctx context.Context, tenantID string, activeOnly bool) ([]models.FeeCategory, error) {
	items, err := s.categories.List(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee categories")
	}
	return items, nil
}

// InitDefaultCategories seeds the system categories, skipping existing codes.
func (s *FeeCatalogService) InitDefaultCategories(ctx context.Context, tenantID string) (int, error) {
	inserted, err := s.categories.InitDefaults(ctx, tenantID, models.DefaultCategories())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialize categories")
	}
	return inserted, nil
}

// CreateCategory registers a custom category.
func (s *FeeCatalogService) CreateCategory(ctx context.Context, tenantID string, req CreateCategoryRequest) (*models.FeeCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	code := req.Code
	if code == "" {
		code = models.DeriveCategoryCode(req.Name)
	}
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category code cannot be empty")
	}
	exists, err := s.categories.ExistsByCode(ctx, tenantID, code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate category code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "category code already exists")
	}
	cat := &models.FeeCategory{
		TenantID:     tenantID,
		Name:         req.Name,
		Code:         code,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
		Active:       true,
	}
	if err := s.categories.Create(ctx, cat); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return cat, nil
}

// UpdateCategory modifies a custom category. System rows are immutable.
func (s *FeeCatalogService) UpdateCategory(ctx context.Context, tenantID, id string, req UpdateCategoryRequest) (*models.FeeCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	cat, err := s.categories.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	if cat.IsSystem {
		return nil, appErrors.Clone(appErrors.ErrSystemRecord, "system categories cannot be modified")
	}
	cat.Name = req.Name
	cat.Description = req.Description
	cat.DisplayOrder = req.DisplayOrder
	cat.Active = req.Active
	if err := s.categories.Update(ctx, cat); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}
	return cat, nil
}

// DeleteCategory hard-deletes a custom category with no structures on it.
func (s *FeeCatalogService) DeleteCategory(ctx context.Context, tenantID, id string) error {
	cat, err := s.categories.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	if cat.IsSystem {
		return appErrors.Clone(appErrors.ErrSystemRecord, "system categories cannot be deleted")
	}
	count, err := s.categories.CountStructures(ctx, tenantID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check category usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrRecordInUse, "category is used by fee structures")
	}
	if err := s.categories.Delete(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}
	return nil
}
