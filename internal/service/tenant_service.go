package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidyalink/vidyalink-api/internal/models"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type tenantRepository interface {
	CreateWithAdmin(ctx context.Context, tenant *models.Tenant, admin *models.User) error
	List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error)
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	Deactivate(ctx context.Context, id string) error
}

// OnboardTenantRequest registers a school together with its first admin.
type OnboardTenantRequest struct {
	Name          string `json:"name" validate:"required"`
	Code          string `json:"code" validate:"required,alphanum,min=3,max=12"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminPassword string `json:"admin_password" validate:"required,min=6"`
	AdminName     string `json:"admin_name" validate:"required"`
	AdminPhone    string `json:"admin_phone"`
}

// UpdateTenantRequest modifies a school's profile.
type UpdateTenantRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Active  bool   `json:"active"`
}

// TenantService onboards and manages schools. Only super admins reach these
// operations; everything else in the system is scoped to one tenant.
type TenantService struct {
	repo      tenantRepository
	catalogs  *FeeCatalogService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTenantService constructs a TenantService. catalogs may be nil; seeding
// the default fee catalogs is then skipped.
func NewTenantService(repo tenantRepository, catalogs *FeeCatalogService, validate *validator.Validate, logger *zap.Logger) *TenantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{repo: repo, catalogs: catalogs, validator: validate, logger: logger}
}

// Onboard creates the school and its admin atomically, then seeds the
// default fee catalogs. Catalog seeding is retryable via the init endpoints,
// so a seeding failure logs and does not roll back the onboarding.
func (s *TenantService) Onboard(ctx context.Context, req OnboardTenantRequest) (*models.Tenant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tenant payload")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	tenant := &models.Tenant{
		Name:    req.Name,
		Code:    strings.ToUpper(req.Code),
		Address: req.Address,
		Phone:   req.Phone,
		Email:   strings.ToLower(req.Email),
		Active:  true,
	}
	admin := &models.User{
		Email:        strings.ToLower(req.AdminEmail),
		PasswordHash: string(hash),
		FullName:     req.AdminName,
		Phone:        req.AdminPhone,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := s.repo.CreateWithAdmin(ctx, tenant, admin); err != nil {
		if strings.Contains(err.Error(), "code taken") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "tenant code is already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to onboard tenant")
	}

	if s.catalogs != nil {
		if _, err := s.catalogs.InitDefaultFrequencies(ctx, tenant.ID); err != nil {
			s.logger.Warn("failed to seed default frequencies", zap.String("tenant_id", tenant.ID), zap.Error(err))
		}
		if _, err := s.catalogs.InitDefaultCategories(ctx, tenant.ID); err != nil {
			s.logger.Warn("failed to seed default categories", zap.String("tenant_id", tenant.ID), zap.Error(err))
		}
	}

	s.logger.Info("tenant onboarded", zap.String("tenant_id", tenant.ID), zap.String("code", tenant.Code))
	return tenant, nil
}

// List returns tenants matching the filter with pagination metadata.
func (s *TenantService) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tenants")
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

// Get returns one tenant.
func (s *TenantService) Get(ctx context.Context, id string) (*models.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}
	return tenant, nil
}

// Update modifies a tenant's profile. The code is immutable after onboarding.
func (s *TenantService) Update(ctx context.Context, id string, req UpdateTenantRequest) (*models.Tenant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tenant payload")
	}
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tenant.Name = req.Name
	tenant.Address = req.Address
	tenant.Phone = req.Phone
	tenant.Email = strings.ToLower(req.Email)
	tenant.Active = req.Active
	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tenant")
	}
	return tenant, nil
}

// Deactivate disables a tenant. Data is retained; users can no longer log in.
func (s *TenantService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate tenant")
	}
	return nil
}
