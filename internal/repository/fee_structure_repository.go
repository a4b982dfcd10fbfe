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

// FeeStructureRepository manages priced fee offerings and their class
// bindings. The structure ↔ class relation lives in fee_structure_classes
// and is always rewritten transactionally so both sides stay consistent.
type FeeStructureRepository struct {
	db *sqlx.DB
}

// NewFeeStructureRepository constructs a FeeStructureRepository.
func NewFeeStructureRepository(db *sqlx.DB) *FeeStructureRepository {
	return &FeeStructureRepository{db: db}
}

const feeStructureColumns = `fs.id, fs.tenant_id, fs.name, fs.category_id, fs.frequency_id, fs.amount,
        fs.academic_year, fs.due_day, fs.active, fs.created_at, fs.updated_at,
        fc.name AS category_name, fc.code AS category_code,
        ff.name AS frequency_name, ff.code AS frequency_code`

const feeStructureJoins = `FROM fee_structures fs
        JOIN fee_categories fc ON fc.id = fs.category_id
        JOIN fee_frequencies ff ON ff.id = fs.frequency_id`

// List returns structures matching the filter with catalog names resolved.
func (r *FeeStructureRepository) List(ctx context.Context, tenantID string, filter models.FeeStructureFilter) ([]models.FeeStructureDetail, int, error) {
	conditions := []string{"fs.tenant_id = $1"}
	args := []interface{}{tenantID}

	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("fs.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("fs.category_id = $%d", len(args)+1))
		args = append(args, filter.CategoryID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM fee_structure_classes fsc WHERE fsc.fee_structure_id = fs.id AND fsc.class_id = $%d)", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("fs.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
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

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY fs.created_at DESC LIMIT %d OFFSET %d`,
		feeStructureColumns, feeStructureJoins, where, size, offset)

	var items []models.FeeStructureDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee structures: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", feeStructureJoins, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee structures: %w", err)
	}

	for i := range items {
		classIDs, err := r.classIDs(ctx, items[i].ID)
		if err != nil {
			return nil, 0, err
		}
		items[i].ClassIDs = classIDs
	}
	return items, total, nil
}

// FindByID fetches one structure with catalog names and class bindings.
func (r *FeeStructureRepository) FindByID(ctx context.Context, tenantID, id string) (*models.FeeStructureDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE fs.tenant_id = $1 AND fs.id = $2`, feeStructureColumns, feeStructureJoins)
	var detail models.FeeStructureDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		return nil, err
	}
	classIDs, err := r.classIDs(ctx, detail.ID)
	if err != nil {
		return nil, err
	}
	detail.ClassIDs = classIDs
	return &detail, nil
}

// ListActiveForClass returns active structures bound to a class, with the
// frequency code the assignment engine needs for due-date computation.
func (r *FeeStructureRepository) ListActiveForClass(ctx context.Context, tenantID, classID string) ([]models.FeeStructureDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
        JOIN fee_structure_classes fsc ON fsc.fee_structure_id = fs.id
        WHERE fs.tenant_id = $1 AND fsc.class_id = $2 AND fs.active = true
        ORDER BY fs.created_at`, feeStructureColumns, feeStructureJoins)
	var items []models.FeeStructureDetail
	if err := r.db.SelectContext(ctx, &items, query, tenantID, classID); err != nil {
		return nil, fmt.Errorf("list structures for class: %w", err)
	}
	return items, nil
}

// Create inserts a structure and its class bindings atomically.
func (r *FeeStructureRepository) Create(ctx context.Context, structure *models.FeeStructure, classIDs []string) error {
	if structure.ID == "" {
		structure.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	structure.CreatedAt = now
	structure.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create structure: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `INSERT INTO fee_structures (id, tenant_id, name, category_id, frequency_id, amount, academic_year, due_day, active, created_at, updated_at)
        VALUES (:id, :tenant_id, :name, :category_id, :frequency_id, :amount, :academic_year, :due_day, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, structure); err != nil {
		return fmt.Errorf("create fee structure: %w", err)
	}
	if err := replaceClassBindings(ctx, tx, structure.ID, classIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create structure: %w", err)
	}
	return nil
}

// Update modifies a structure and rewrites its class bindings atomically.
// Existing assignments are untouched: they copied the amount at creation.
func (r *FeeStructureRepository) Update(ctx context.Context, structure *models.FeeStructure, classIDs []string) error {
	structure.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update structure: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `UPDATE fee_structures SET name = :name, category_id = :category_id, frequency_id = :frequency_id,
        amount = :amount, academic_year = :academic_year, due_day = :due_day, active = :active, updated_at = :updated_at
        WHERE tenant_id = :tenant_id AND id = :id`
	if _, err := tx.NamedExecContext(ctx, query, structure); err != nil {
		return fmt.Errorf("update fee structure: %w", err)
	}
	if err := replaceClassBindings(ctx, tx, structure.ID, classIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update structure: %w", err)
	}
	return nil
}

// ReplaceClassBindings rewrites the classes a structure applies to. Used by
// class management when a class update pulls old bindings and pushes new ones.
func (r *FeeStructureRepository) ReplaceClassBindings(ctx context.Context, structureID string, classIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace bindings: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := replaceClassBindings(ctx, tx, structureID, classIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace bindings: %w", err)
	}
	return nil
}

// SetClassBindings rewrites the structure side of the relation for one class:
// the class is detached from every structure not in structureIDs and attached
// to each one listed, all inside the caller's transaction.
func SetClassBindings(ctx context.Context, tx *sqlx.Tx, classID string, structureIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM fee_structure_classes WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("detach class bindings: %w", err)
	}
	for _, sid := range structureIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fee_structure_classes (fee_structure_id, class_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			sid, classID); err != nil {
			return fmt.Errorf("attach class binding: %w", err)
		}
	}
	return nil
}

// SoftDelete marks a structure inactive so no new assignments are generated.
func (r *FeeStructureRepository) SoftDelete(ctx context.Context, tenantID, id string) error {
	const query = `UPDATE fee_structures SET active = false, updated_at = $3 WHERE tenant_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, tenantID, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("soft delete fee structure: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errNoRowsAffected
	}
	return nil
}

func (r *FeeStructureRepository) classIDs(ctx context.Context, structureID string) ([]string, error) {
	var ids []string
	const query = `SELECT class_id FROM fee_structure_classes WHERE fee_structure_id = $1 ORDER BY class_id`
	if err := r.db.SelectContext(ctx, &ids, query, structureID); err != nil {
		return nil, fmt.Errorf("load structure classes: %w", err)
	}
	return ids, nil
}

func replaceClassBindings(ctx context.Context, tx *sqlx.Tx, structureID string, classIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM fee_structure_classes WHERE fee_structure_id = $1`, structureID); err != nil {
		return fmt.Errorf("clear structure classes: %w", err)
	}
	for _, classID := range classIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fee_structure_classes (fee_structure_id, class_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			structureID, classID); err != nil {
			return fmt.Errorf("bind structure class: %w", err)
		}
	}
	return nil
}
