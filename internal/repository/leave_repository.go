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

// LeaveRepository persists leave requests and their decisions.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs a LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

const leaveColumns = `l.id, l.tenant_id, l.student_id, l.applied_by, l.from_date, l.to_date, l.reason,
        l.status, l.decided_by, l.decided_at, l.decision_msg, l.created_at, l.updated_at`

// List returns leave requests matching the filter, newest first.
func (r *LeaveRepository) List(ctx context.Context, tenantID string, filter models.LeaveFilter) ([]models.LeaveDetail, int, error) {
	base := `FROM leave_requests l
        JOIN students s ON s.id = l.student_id
        JOIN users u ON u.id = l.applied_by`
	conditions := []string{"l.tenant_id = $1"}
	args := []interface{}{tenantID}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("l.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, u.full_name AS applied_name
        %s WHERE %s ORDER BY l.created_at DESC LIMIT %d OFFSET %d`, leaveColumns, base, where, size, offset)

	var items []models.LeaveDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return items, total, nil
}

// FindByID fetches one leave request within the tenant.
func (r *LeaveRepository) FindByID(ctx context.Context, tenantID, id string) (*models.LeaveDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, u.full_name AS applied_name
        FROM leave_requests l
        JOIN students s ON s.id = l.student_id
        JOIN users u ON u.id = l.applied_by
        WHERE l.tenant_id = $1 AND l.id = $2`, leaveColumns)
	var detail models.LeaveDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a pending leave request.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	leave.CreatedAt = now
	leave.UpdatedAt = now
	const query = `INSERT INTO leave_requests (id, tenant_id, student_id, applied_by, from_date, to_date, reason, status, decision_msg, created_at, updated_at)
        VALUES (:id, :tenant_id, :student_id, :applied_by, :from_date, :to_date, :reason, :status, :decision_msg, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// Decide transitions a pending request to approved or rejected. Decided
// requests are final; the status predicate makes the transition idempotent.
func (r *LeaveRepository) Decide(ctx context.Context, tenantID, id string, status models.LeaveStatus, decidedBy, msg string) error {
	now := time.Now().UTC()
	const query = `UPDATE leave_requests SET status = $3, decided_by = $4, decided_at = $5, decision_msg = $6, updated_at = $5
        WHERE tenant_id = $1 AND id = $2 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, tenantID, id, status, decidedBy, now, msg)
	if err != nil {
		return fmt.Errorf("decide leave request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errNoRowsAffected
	}
	return nil
}
