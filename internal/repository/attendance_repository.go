package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidyalink/vidyalink-api/internal/models"
)

// AttendanceRepository persists daily attendance. Marking is an upsert keyed
// on (tenant, student, date) so re-marking a day overwrites the earlier row.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// BulkUpsert writes a class's attendance for one day in a single transaction.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark attendance: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	const query = `INSERT INTO attendance_records (id, tenant_id, student_id, class_id, date, status, remarks, marked_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
        ON CONFLICT (tenant_id, student_id, date)
        DO UPDATE SET status = EXCLUDED.status, remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at`
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query, rec.ID, rec.TenantID, rec.StudentID, rec.ClassID, rec.Date, rec.Status, rec.Remarks, rec.MarkedBy, now); err != nil {
			return fmt.Errorf("upsert attendance for %s: %w", rec.StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark attendance: %w", err)
	}
	return nil
}

// ListByClassAndDate returns a class's records for one day with student names.
func (r *AttendanceRepository) ListByClassAndDate(ctx context.Context, tenantID, classID string, date time.Time) ([]models.AttendanceDetail, error) {
	const query = `SELECT a.id, a.tenant_id, a.student_id, a.class_id, a.date, a.status, a.remarks, a.marked_by, a.created_at, a.updated_at,
        s.full_name AS student_name
        FROM attendance_records a
        JOIN students s ON s.id = a.student_id
        WHERE a.tenant_id = $1 AND a.class_id = $2 AND a.date = $3
        ORDER BY s.full_name`
	var items []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &items, query, tenantID, classID, date); err != nil {
		return nil, fmt.Errorf("list class attendance: %w", err)
	}
	return items, nil
}

// ListByStudent returns one student's history within a date range.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, tenantID, studentID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, tenant_id, student_id, class_id, date, status, remarks, marked_by, created_at, updated_at
        FROM attendance_records
        WHERE tenant_id = $1 AND student_id = $2 AND date BETWEEN $3 AND $4
        ORDER BY date DESC`
	var items []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &items, query, tenantID, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return items, nil
}
