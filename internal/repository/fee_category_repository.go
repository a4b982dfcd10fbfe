package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidyalink/vidyalink-api/internal/models"
)

// FeeCategoryRepository manages persistence for fee categories. Mirrors the
// frequency repository; the two catalogs share their lifecycle rules.
type FeeCategoryRepository struct {
	db *sqlx.DB
}

// NewFeeCategoryRepository constructs a FeeCategoryRepository.
func NewFeeCategoryRepository(db *sqlx.DB) *FeeCategoryRepository {
	return &FeeCategoryRepository{db: db}
}

// List returns the tenant's categories ordered for display.
func (r *FeeCategoryRepository) List(ctx context.Context, tenantID string, activeOnly bool) ([]models.FeeCategory, error) {
	query := `SELECT id, tenant_id, name, code, description, is_system, display_order, active, created_at, updated_at
        FROM fee_categories WHERE tenant_id = $1`
	if activeOnly {
		query += " AND active = true"
	}
	query += " ORDER BY display_order, name"

	var items []models.FeeCategory
	if err := r.db.SelectContext(ctx, &items, query, tenantID); err != nil {
		return nil, fmt.Errorf("list fee categories: %w", err)
	}
	return items, nil
}

// FindByID fetches one category within the tenant.
func (r *FeeCategoryRepository) FindByID(ctx context.Context, tenantID, id string) (*models.FeeCategory, error) {
	const query = `SELECT id, tenant_id, name, code, description, is_system, display_order, active, created_at, updated_at
        FROM fee_categories WHERE tenant_id = $1 AND id = $2`
	var cat models.FeeCategory
	if err := r.db.GetContext(ctx, &cat, query, tenantID, id); err != nil {
		return nil, err
	}
	return &cat, nil
}

// ExistsByCode reports whether a code is taken, optionally excluding a row.
func (r *FeeCategoryRepository) ExistsByCode(ctx context.Context, tenantID, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM fee_categories WHERE tenant_id = $1 AND code = $2"
	args := []interface{}{tenantID, code}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check category code: %w", err)
	}
	return true, nil
}

// Create inserts a new category row.
func (r *FeeCategoryRepository) Create(ctx context.Context, cat *models.FeeCategory) error {
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cat.CreatedAt = now
	cat.UpdatedAt = now
	const query = `INSERT INTO fee_categories (id, tenant_id, name, code, description, is_system, display_order, active, created_at, updated_at)
        VALUES (:id, :tenant_id, :name, :code, :description, :is_system, :display_order, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cat); err != nil {
		return fmt.Errorf("create fee category: %w", err)
	}
	return nil
}

// InitDefaults seeds the system categories for a tenant in one transaction,
// skipping codes that already exist. Returns the number of rows inserted.
func (r *FeeCategoryRepository) InitDefaults(ctx context.Context, tenantID string, defaults []models.FeeCategory) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin init categories: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	inserted := 0
	const query = `INSERT INTO fee_categories (id, tenant_id, name, code, description, is_system, display_order, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (tenant_id, code) DO NOTHING`
	for _, d := range defaults {
		res, err := tx.ExecContext(ctx, query, uuid.NewString(), tenantID, d.Name, d.Code, d.Description, d.IsSystem, d.DisplayOrder, d.Active, now, now)
		if err != nil {
			return 0, fmt.Errorf("seed category %s: %w", d.Code, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit init categories: %w", err)
	}
	return inserted, nil
}

// Update modifies a category's mutable fields.
func (r *FeeCategoryRepository) Update(ctx context.Context, cat *models.FeeCategory) error {
	cat.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fee_categories SET name = :name, code = :code, description = :description,
        display_order = :display_order, active = :active, updated_at = :updated_at
        WHERE tenant_id = :tenant_id AND id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cat); err != nil {
		return fmt.Errorf("update fee category: %w", err)
	}
	return nil
}

// CountStructures counts fee structures referencing a category.
func (r *FeeCategoryRepository) CountStructures(ctx context.Context, tenantID, categoryID string) (int, error) {
	const query = `SELECT COUNT(*) FROM fee_structures WHERE tenant_id = $1 AND category_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, categoryID); err != nil {
		return 0, fmt.Errorf("count structures for category: %w", err)
	}
	return count, nil
}

// Delete removes a non-system category row.
func (r *FeeCategoryRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM fee_categories WHERE tenant_id = $1 AND id = $2 AND is_system = false`
	if _, err := r.db.ExecContext(ctx, query, tenantID, id); err != nil {
		return fmt.Errorf("delete fee category: %w", err)
	}
	return nil
}
