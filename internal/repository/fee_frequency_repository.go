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

// FeeFrequencyRepository manages persistence for fee billing cadences.
// Every method takes the tenant explicitly; the tenant predicate is built
// here and nowhere else.
type FeeFrequencyRepository struct {
	db *sqlx.DB
}

// NewFeeFrequencyRepository constructs a FeeFrequencyRepository.
func NewFeeFrequencyRepository(db *sqlx.DB) *FeeFrequencyRepository {
	return &FeeFrequencyRepository{db: db}
}

// List returns the tenant's frequencies ordered for display.
func (r *FeeFrequencyRepository) List(ctx context.Context, tenantID string, activeOnly bool) ([]models.FeeFrequency, error) {
	query := `SELECT id, tenant_id, name, code, months_interval, is_system, display_order, active, created_at, updated_at
        FROM fee_frequencies WHERE tenant_id = $1`
	if activeOnly {
		query += " AND active = true"
	}
	query += " ORDER BY display_order, name"

	var items []models.FeeFrequency
	if err := r.db.SelectContext(ctx, &items, query, tenantID); err != nil {
		return nil, fmt.Errorf("list fee frequencies: %w", err)
	}
	return items, nil
}

// FindByID fetches one frequency within the tenant.
func (r *FeeFrequencyRepository) FindByID(ctx context.Context, tenantID, id string) (*models.FeeFrequency, error) {
	const query = `SELECT id, tenant_id, name, code, months_interval, is_system, display_order, active, created_at, updated_at
        FROM fee_frequencies WHERE tenant_id = $1 AND id = $2`
	var freq models.FeeFrequency
	if err := r.db.GetContext(ctx, &freq, query, tenantID, id); err != nil {
		return nil, err
	}
	return &freq, nil
}

// ExistsByCode reports whether a code is taken, optionally excluding a row.
func (r *FeeFrequencyRepository) ExistsByCode(ctx context.Context, tenantID, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM fee_frequencies WHERE tenant_id = $1 AND code = $2"
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
		return false, fmt.Errorf("check frequency code: %w", err)
	}
	return true, nil
}

// Create inserts a new frequency row.
func (r *FeeFrequencyRepository) Create(ctx context.Context, freq *models.FeeFrequency) error {
	if freq.ID == "" {
		freq.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	freq.CreatedAt = now
	freq.UpdatedAt = now
	const query = `INSERT INTO fee_frequencies (id, tenant_id, name, code, months_interval, is_system, display_order, active, created_at, updated_at)
        VALUES (:id, :tenant_id, :name, :code, :months_interval, :is_system, :display_order, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, freq); err != nil {
		return fmt.Errorf("create fee frequency: %w", err)
	}
	return nil
}

// InitDefaults seeds the system cadences for a tenant in one transaction,
// skipping codes that already exist. Returns the number of rows inserted.
func (r *FeeFrequencyRepository) InitDefaults(ctx context.Context, tenantID string, defaults []models.FeeFrequency) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin init frequencies: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	inserted := 0
	const query = `INSERT INTO fee_frequencies (id, tenant_id, name, code, months_interval, is_system, display_order, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (tenant_id, code) DO NOTHING`
	for _, d := range defaults {
		res, err := tx.ExecContext(ctx, query, uuid.NewString(), tenantID, d.Name, d.Code, d.MonthsInterval, d.IsSystem, d.DisplayOrder, d.Active, now, now)
		if err != nil {
			return 0, fmt.Errorf("seed frequency %s: %w", d.Code, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit init frequencies: %w", err)
	}
	return inserted, nil
}

// Update modifies name, interval, order and active flag of a frequency.
func (r *FeeFrequencyRepository) Update(ctx context.Context, freq *models.FeeFrequency) error {
	freq.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fee_frequencies SET name = :name, code = :code, months_interval = :months_interval,
        display_order = :display_order, active = :active, updated_at = :updated_at
        WHERE tenant_id = :tenant_id AND id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, freq); err != nil {
		return fmt.Errorf("update fee frequency: %w", err)
	}
	return nil
}

// CountStructures counts fee structures referencing a frequency; the service
// uses this as the deletion guard.
func (r *FeeFrequencyRepository) CountStructures(ctx context.Context, tenantID, frequencyID string) (int, error) {
	const query = `SELECT COUNT(*) FROM fee_structures WHERE tenant_id = $1 AND frequency_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, frequencyID); err != nil {
		return 0, fmt.Errorf("count structures for frequency: %w", err)
	}
	return count, nil
}

// Delete removes a non-system frequency row.
func (r *FeeFrequencyRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM fee_frequencies WHERE tenant_id = $1 AND id = $2 AND is_system = false`
	if _, err := r.db.ExecContext(ctx, query, tenantID, id); err != nil {
		return fmt.Errorf("delete fee frequency: %w", err)
	}
	return nil
}
