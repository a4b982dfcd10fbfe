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

// FeePaymentRepository persists payment records. Recording a payment is the
// one multi-row write in the fee subsystem that must be atomic: the
// assignment row is locked, the receipt sequence bumped, the payment
// inserted and the assignment updated in a single transaction.
type FeePaymentRepository struct {
	db *sqlx.DB
}

// NewFeePaymentRepository constructs a FeePaymentRepository.
func NewFeePaymentRepository(db *sqlx.DB) *FeePaymentRepository {
	return &FeePaymentRepository{db: db}
}

// RecordFunc receives the locked assignment and the issued receipt sequence,
// and returns the payment to insert plus the mutated assignment to persist.
// Domain rules (balance guard, status derivation) live in the service; this
// repository only guarantees atomicity and isolation.
type RecordFunc func(assignment *models.FeeAssignment, receiptSeq int64) (*models.FeePayment, error)

// Record runs the payment transaction: lock the assignment FOR UPDATE, issue
// the next per-tenant receipt sequence, let build validate and mutate, then
// insert the payment and update the assignment asserting its version.
func (r *FeePaymentRepository) Record(ctx context.Context, tenantID, assignmentID string, build RecordFunc) (*models.FeePayment, *models.FeeAssignment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin record payment: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := fmt.Sprintf(`SELECT %s FROM fee_assignments WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, feeAssignmentColumns)
	var assignment models.FeeAssignment
	if err := tx.GetContext(ctx, &assignment, query, tenantID, assignmentID); err != nil {
		return nil, nil, err
	}

	seq, err := nextCounter(ctx, tx, tenantID, "receipt")
	if err != nil {
		return nil, nil, err
	}

	expected := assignment.Version
	payment, err := build(&assignment, seq)
	if err != nil {
		return nil, nil, err
	}

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = time.Now().UTC()
	const insert = `INSERT INTO fee_payments (id, tenant_id, student_id, fee_assignment_id, amount, payment_date,
        method, transaction_id, receipt_number, remarks, collected_by, status, created_at)
        VALUES (:id, :tenant_id, :student_id, :fee_assignment_id, :amount, :payment_date,
        :method, :transaction_id, :receipt_number, :remarks, :collected_by, :status, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, payment); err != nil {
		return nil, nil, fmt.Errorf("insert payment: %w", err)
	}

	assignment.UpdatedAt = time.Now().UTC()
	const update = `UPDATE fee_assignments SET status = $1, paid_amount = $2, paid_date = $3, payment_id = $4,
        version = version + 1, updated_at = $5
        WHERE tenant_id = $6 AND id = $7 AND version = $8`
	res, err := tx.ExecContext(ctx, update,
		assignment.Status, assignment.PaidAmount, assignment.PaidDate, assignment.PaymentID,
		assignment.UpdatedAt, tenantID, assignment.ID, expected)
	if err != nil {
		return nil, nil, fmt.Errorf("apply payment to assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil, ErrVersionConflict
	}
	assignment.Version = expected + 1

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit record payment: %w", err)
	}
	return payment, &assignment, nil
}

// List returns payments matching the filter with joined names, newest first.
func (r *FeePaymentRepository) List(ctx context.Context, tenantID string, filter models.FeePaymentFilter) ([]models.FeePaymentDetail, int, error) {
	conditions := []string{"fp.tenant_id = $1"}
	args := []interface{}{tenantID}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("fp.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AssignmentID != "" {
		conditions = append(conditions, fmt.Sprintf("fp.fee_assignment_id = $%d", len(args)+1))
		args = append(args, filter.AssignmentID)
	}
	if filter.Method != "" {
		conditions = append(conditions, fmt.Sprintf("fp.method = $%d", len(args)+1))
		args = append(args, filter.Method)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("fp.payment_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("fp.payment_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	where := strings.Join(conditions, " AND ")
	base := `FROM fee_payments fp
        LEFT JOIN students s ON s.id = fp.student_id
        LEFT JOIN fee_assignments fa ON fa.id = fp.fee_assignment_id
        LEFT JOIN fee_structures fs ON fs.id = fa.fee_structure_id
        LEFT JOIN users u ON u.id = fp.collected_by`

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT fp.id, fp.tenant_id, fp.student_id, fp.fee_assignment_id, fp.amount, fp.payment_date,
        fp.method, fp.transaction_id, fp.receipt_number, fp.remarks, fp.collected_by, fp.status, fp.created_at,
        s.full_name AS student_name, fs.name AS fee_name, u.full_name AS collector_name
        %s WHERE %s ORDER BY fp.payment_date DESC LIMIT %d OFFSET %d`, base, where, size, offset)

	var items []models.FeePaymentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return items, total, nil
}

// Recent returns the latest payments for the summary views, optionally
// restricted to one student.
func (r *FeePaymentRepository) Recent(ctx context.Context, tenantID, studentID string, limit int) ([]models.FeePaymentDetail, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT fp.id, fp.tenant_id, fp.student_id, fp.fee_assignment_id, fp.amount, fp.payment_date,
        fp.method, fp.transaction_id, fp.receipt_number, fp.remarks, fp.collected_by, fp.status, fp.created_at,
        s.full_name AS student_name, fs.name AS fee_name, u.full_name AS collector_name
        FROM fee_payments fp
        LEFT JOIN students s ON s.id = fp.student_id
        LEFT JOIN fee_assignments fa ON fa.id = fp.fee_assignment_id
        LEFT JOIN fee_structures fs ON fs.id = fa.fee_structure_id
        LEFT JOIN users u ON u.id = fp.collected_by
        WHERE fp.tenant_id = $1`
	args := []interface{}{tenantID}
	if studentID != "" {
		query += " AND fp.student_id = $2"
		args = append(args, studentID)
	}
	query += fmt.Sprintf(" ORDER BY fp.payment_date DESC LIMIT %d", limit)

	var items []models.FeePaymentDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("load recent payments: %w", err)
	}
	return items, nil
}

// FindByID fetches one payment with joined names.
func (r *FeePaymentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.FeePaymentDetail, error) {
	const query = `SELECT fp.id, fp.tenant_id, fp.student_id, fp.fee_assignment_id, fp.amount, fp.payment_date,
        fp.method, fp.transaction_id, fp.receipt_number, fp.remarks, fp.collected_by, fp.status, fp.created_at,
        s.full_name AS student_name, fs.name AS fee_name, u.full_name AS collector_name
        FROM fee_payments fp
        LEFT JOIN students s ON s.id = fp.student_id
        LEFT JOIN fee_assignments fa ON fa.id = fp.fee_assignment_id
        LEFT JOIN fee_structures fs ON fs.id = fa.fee_structure_id
        LEFT JOIN users u ON u.id = fp.collected_by
        WHERE fp.tenant_id = $1 AND fp.id = $2`
	var detail models.FeePaymentDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// nextCounter bumps a named per-tenant sequence atomically and returns the
// new value. Safe under concurrency: the upsert serialises on the counter
// row, so two racing payments get distinct numbers.
func nextCounter(ctx context.Context, tx *sqlx.Tx, tenantID, name string) (int64, error) {
	const query = `INSERT INTO fee_counters (tenant_id, name, value) VALUES ($1, $2, 1)
        ON CONFLICT (tenant_id, name) DO UPDATE SET value = fee_counters.value + 1
        RETURNING value`
	var value int64
	if err := tx.GetContext(ctx, &value, query, tenantID, name); err != nil {
		return 0, fmt.Errorf("next %s counter: %w", name, err)
	}
	return value, nil
}
