package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidyalink/vidyalink-api/internal/models"
)

// FeeAssignmentRepository manages per-student fee obligations. Rows carry a
// version column asserted on every update; payment mutations additionally
// run under a row lock (see FeePaymentRepository.Record).
type FeeAssignmentRepository struct {
	db *sqlx.DB
}

// NewFeeAssignmentRepository constructs a FeeAssignmentRepository.
func NewFeeAssignmentRepository(db *sqlx.DB) *FeeAssignmentRepository {
	return &FeeAssignmentRepository{db: db}
}

const feeAssignmentColumns = `id, tenant_id, student_id, fee_structure_id, academic_year, total_amount,
        discount_amount, discount_reason, final_amount, due_date, status, paid_amount, paid_date,
        payment_id, cancelled_at, cancelled_by, cancel_reason, version, created_at, updated_at`

// Create inserts a new assignment. A unique-index violation on the
// (tenant, student, structure, year) tuple maps to ErrDuplicateAssignment.
func (r *FeeAssignmentRepository) Create(ctx context.Context, a *models.FeeAssignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Version == 0 {
		a.Version = 1
	}
	const query = `INSERT INTO fee_assignments (id, tenant_id, student_id, fee_structure_id, academic_year, total_amount,
        discount_amount, discount_reason, final_amount, due_date, status, paid_amount, paid_date, payment_id,
        cancelled_at, cancelled_by, cancel_reason, version, created_at, updated_at)
        VALUES (:id, :tenant_id, :student_id, :fee_structure_id, :academic_year, :total_amount,
        :discount_amount, :discount_reason, :final_amount, :due_date, :status, :paid_amount, :paid_date, :payment_id,
        :cancelled_at, :cancelled_by, :cancel_reason, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAssignment
		}
		return fmt.Errorf("create fee assignment: %w", err)
	}
	return nil
}

// Exists reports whether an assignment already exists for the tuple.
func (r *FeeAssignmentRepository) Exists(ctx context.Context, tenantID, studentID, structureID, academicYear string) (bool, error) {
	const query = `SELECT 1 FROM fee_assignments
        WHERE tenant_id = $1 AND student_id = $2 AND fee_structure_id = $3 AND academic_year = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, tenantID, studentID, structureID, academicYear); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment exists: %w", err)
	}
	return true, nil
}

// FindByID fetches one assignment within the tenant.
func (r *FeeAssignmentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.FeeAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_assignments WHERE tenant_id = $1 AND id = $2`, feeAssignmentColumns)
	var a models.FeeAssignment
	if err := r.db.GetContext(ctx, &a, query, tenantID, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByStudent returns a student's assignments with structure and catalog
// context, newest first. Cancelled rows are included; callers that need only
// active obligations filter on status.
func (r *FeeAssignmentRepository) ListByStudent(ctx context.Context, tenantID, studentID, academicYear string) ([]models.FeeAssignmentDetail, error) {
	query := `SELECT fa.id, fa.tenant_id, fa.student_id, fa.fee_structure_id, fa.academic_year, fa.total_amount,
        fa.discount_amount, fa.discount_reason, fa.final_amount, fa.due_date, fa.status, fa.paid_amount, fa.paid_date,
        fa.payment_id, fa.cancelled_at, fa.cancelled_by, fa.cancel_reason, fa.version, fa.created_at, fa.updated_at,
        COALESCE(fs.name, 'Unknown Fee') AS fee_name,
        fc.name AS category_name, fc.code AS category_code, ff.code AS frequency_code,
        s.full_name AS student_name
        FROM fee_assignments fa
        LEFT JOIN fee_structures fs ON fs.id = fa.fee_structure_id
        LEFT JOIN fee_categories fc ON fc.id = fs.category_id
        LEFT JOIN fee_frequencies ff ON ff.id = fs.frequency_id
        LEFT JOIN students s ON s.id = fa.student_id
        WHERE fa.tenant_id = $1 AND fa.student_id = $2`
	args := []interface{}{tenantID, studentID}
	if academicYear != "" {
		query += " AND fa.academic_year = $3"
		args = append(args, academicYear)
	}
	query += " ORDER BY fa.created_at DESC"

	var items []models.FeeAssignmentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list student assignments: %w", err)
	}
	return items, nil
}

// SummaryScope restricts the aggregator's input rows.
type SummaryScope struct {
	ClassID      string
	StudentID    string
	AcademicYear string
}

// SummaryRows streams non-cancelled assignments with left-joined context for
// the summary aggregator. Assignments whose student no longer resolves are
// filtered here; dangling structure references surface as NULL names the
// aggregator buckets under "other".
func (r *FeeAssignmentRepository) SummaryRows(ctx context.Context, tenantID string, scope SummaryScope) ([]models.FeeSummaryRow, error) {
	conditions := []string{"fa.tenant_id = $1", "fa.status <> 'cancelled'", "s.id IS NOT NULL"}
	args := []interface{}{tenantID}

	if scope.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, scope.ClassID)
	}
	if scope.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("fa.student_id = $%d", len(args)+1))
		args = append(args, scope.StudentID)
	}
	if scope.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("fa.academic_year = $%d", len(args)+1))
		args = append(args, scope.AcademicYear)
	}

	query := fmt.Sprintf(`SELECT fa.id AS assignment_id, fa.student_id, s.full_name AS student_name,
        s.class_id, c.name AS class_name, fs.name AS fee_name, fc.name AS category_name, fc.code AS category_code,
        fa.final_amount, fa.paid_amount, fa.due_date, fa.status
        FROM fee_assignments fa
        LEFT JOIN students s ON s.id = fa.student_id
        LEFT JOIN classes c ON c.id = s.class_id
        LEFT JOIN fee_structures fs ON fs.id = fa.fee_structure_id
        LEFT JOIN fee_categories fc ON fc.id = fs.category_id
        WHERE %s`, strings.Join(conditions, " AND "))

	var rows []models.FeeSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("load summary rows: %w", err)
	}
	return rows, nil
}

// Update persists an assignment asserting its version. The version bumps on
// success; a stale version returns ErrVersionConflict.
func (r *FeeAssignmentRepository) Update(ctx context.Context, a *models.FeeAssignment) error {
	expected := a.Version
	a.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fee_assignments SET discount_amount = $1, discount_reason = $2, final_amount = $3,
        due_date = $4, status = $5, paid_amount = $6, paid_date = $7, payment_id = $8,
        cancelled_at = $9, cancelled_by = $10, cancel_reason = $11, version = version + 1, updated_at = $12
        WHERE tenant_id = $13 AND id = $14 AND version = $15`
	res, err := r.db.ExecContext(ctx, query,
		a.DiscountAmount, a.DiscountReason, a.FinalAmount,
		a.DueDate, a.Status, a.PaidAmount, a.PaidDate, a.PaymentID,
		a.CancelledAt, a.CancelledBy, a.CancelReason, a.UpdatedAt,
		a.TenantID, a.ID, expected)
	if err != nil {
		return fmt.Errorf("update fee assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrVersionConflict
	}
	a.Version = expected + 1
	return nil
}

// CancelUnpaidForClass cancels every assignment of the class's students with
// less than one unit paid, in a single statement. Used when a class is
// deleted so dead obligations stop polluting summaries. Returns the number
// of assignments cancelled.
func (r *FeeAssignmentRepository) CancelUnpaidForClass(ctx context.Context, tenantID, classID, cancelledBy, reason string) (int, error) {
	now := time.Now().UTC()
	const query = `UPDATE fee_assignments SET status = 'cancelled', cancelled_at = $1, cancelled_by = $2,
        cancel_reason = $3, version = version + 1, updated_at = $1
        WHERE tenant_id = $4 AND status <> 'cancelled' AND paid_amount < 1
        AND student_id IN (SELECT id FROM students WHERE tenant_id = $4 AND class_id = $5)`
	res, err := r.db.ExecContext(ctx, query, now, cancelledBy, reason, tenantID, classID)
	if err != nil {
		return 0, fmt.Errorf("cancel class assignments: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
