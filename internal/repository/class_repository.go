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

// ClassRepository manages classes and their side of the class ↔ fee-structure
// relation. Binding rewrites happen in the same transaction as the class
// write so the relation never half-updates.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns a tenant's classes with teacher names and student counts.
func (r *ClassRepository) List(ctx context.Context, tenantID string, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	conditions := []string{"c.tenant_id = $1"}
	args := []interface{}{tenantID}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("c.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT c.id, c.tenant_id, c.name, c.section, c.class_teacher_id, c.active, c.created_at, c.updated_at,
        u.full_name AS class_teacher_name,
        (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id AND s.active = true) AS student_count
        FROM classes c
        LEFT JOIN users u ON u.id = c.class_teacher_id
        WHERE %s ORDER BY c.name, c.section LIMIT %d OFFSET %d`, where, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM classes c WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID fetches a class with its fee-structure bindings.
func (r *ClassRepository) FindByID(ctx context.Context, tenantID, id string) (*models.ClassDetail, error) {
	const query = `SELECT c.id, c.tenant_id, c.name, c.section, c.class_teacher_id, c.active, c.created_at, c.updated_at,
        u.full_name AS class_teacher_name,
        (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id AND s.active = true) AS student_count
        FROM classes c
        LEFT JOIN users u ON u.id = c.class_teacher_id
        WHERE c.tenant_id = $1 AND c.id = $2`
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		return nil, err
	}
	ids, err := r.FeeStructureIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.FeeStructureIDs = ids
	return &detail, nil
}

// FeeStructureIDs returns the structures currently bound to a class.
func (r *ClassRepository) FeeStructureIDs(ctx context.Context, classID string) ([]string, error) {
	var ids []string
	const query = `SELECT fee_structure_id FROM fee_structure_classes WHERE class_id = $1 ORDER BY fee_structure_id`
	if err := r.db.SelectContext(ctx, &ids, query, classID); err != nil {
		return nil, fmt.Errorf("load class fee structures: %w", err)
	}
	return ids, nil
}

// Create inserts a class and attaches its fee structures atomically.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class, feeStructureIDs []string) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create class: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `INSERT INTO classes (id, tenant_id, name, section, class_teacher_id, active, created_at, updated_at)
        VALUES (:id, :tenant_id, :name, :section, :class_teacher_id, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	if err := SetClassBindings(ctx, tx, class.ID, feeStructureIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create class: %w", err)
	}
	return nil
}

// Update modifies a class and rewrites its fee-structure bindings: old
// bindings are pulled and new ones pushed in one transaction, keeping both
// sides of the relation consistent.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class, feeStructureIDs []string) error {
	class.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update class: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `UPDATE classes SET name = :name, section = :section, class_teacher_id = :class_teacher_id,
        active = :active, updated_at = :updated_at WHERE tenant_id = :tenant_id AND id = :id`
	if _, err := tx.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if err := SetClassBindings(ctx, tx, class.ID, feeStructureIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update class: %w", err)
	}
	return nil
}

// Deactivate marks a class inactive and detaches its fee structures.
// Cancelling the enrolled students' unpaid assignments is the service's job
// and deliberately best-effort (see FeeAssignmentRepository.CancelUnpaidForClass).
func (r *ClassRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deactivate class: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `UPDATE classes SET active = false, updated_at = $3 WHERE tenant_id = $1 AND id = $2`
	res, err := tx.ExecContext(ctx, query, tenantID, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate class: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errNoRowsAffected
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fee_structure_classes WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("detach class fee structures: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit deactivate class: %w", err)
	}
	return nil
}
