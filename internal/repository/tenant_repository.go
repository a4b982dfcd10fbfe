package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidyalink/vidyalink-api/internal/models"
)

// TenantRepository manages school onboarding and lifecycle. Tenant rows are
// the one table not carrying a tenant_id predicate; access is restricted to
// super admins at the service layer.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository constructs a TenantRepository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, name, code, address, phone, email, active, created_at, updated_at`

// CreateWithAdmin onboards a school and its first admin user atomically.
// Either both rows commit or neither does.
func (r *TenantRepository) CreateWithAdmin(ctx context.Context, tenant *models.Tenant, admin *models.User) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	admin.TenantID = &tenant.ID
	admin.CreatedAt = now
	admin.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin onboard tenant: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertTenant = `INSERT INTO tenants (id, name, code, address, phone, email, active, created_at, updated_at)
        VALUES (:id, :name, :code, :address, :phone, :email, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertTenant, tenant); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("onboard tenant: code taken: %w", err)
		}
		return fmt.Errorf("onboard tenant: %w", err)
	}

	const insertAdmin = `INSERT INTO users (id, tenant_id, email, password_hash, full_name, phone, role, active, created_at, updated_at)
        VALUES (:id, :tenant_id, :email, :password_hash, :full_name, :phone, :role, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertAdmin, admin); err != nil {
		return fmt.Errorf("onboard tenant admin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit onboard tenant: %w", err)
	}
	return nil
}

// List returns tenants matching the filter.
func (r *TenantRepository) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, tenantColumns, where, size, offset)
	var tenants []models.Tenant
	if err := r.db.SelectContext(ctx, &tenants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tenants WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}
	return tenants, total, nil
}

// FindByID fetches one tenant.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE id = $1`, tenantColumns)
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Update modifies a tenant's profile.
func (r *TenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tenants SET name = :name, address = :address, phone = :phone, email = :email,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tenant); err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	return nil
}

// Deactivate disables a tenant; its users can no longer log in.
func (r *TenantRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE tenants SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate tenant: %w", err)
	}
	return nil
}
