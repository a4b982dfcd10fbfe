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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.tenant_id, s.admission_number, s.full_name, s.gender, s.birth_date,
        s.class_id, s.parent_id, s.address, s.phone, s.active, s.created_at, s.updated_at`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, tenantID string, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN classes c ON c.id = s.class_id LEFT JOIN users p ON p.id = s.parent_id"
	conditions := []string{"s.tenant_id = $1"}
	args := []interface{}{tenantID}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.ParentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.parent_id = $%d", len(args)+1))
		args = append(args, filter.ParentID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.admission_number) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":        "s.full_name",
		"admission_number": "s.admission_number",
		"created_at":       "s.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, c.name AS class_name, p.full_name AS parent_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentColumns, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail within the tenant.
func (r *StudentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, c.name AS class_name, p.full_name AS parent_name
        FROM students s
        LEFT JOIN classes c ON c.id = s.class_id
        LEFT JOIN users p ON p.id = s.parent_id
        WHERE s.tenant_id = $1 AND s.id = $2`, studentColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByAdmissionNumber checks admission-number uniqueness within a tenant.
func (r *StudentRepository) ExistsByAdmissionNumber(ctx context.Context, tenantID, number, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE tenant_id = $1 AND admission_number = $2"
	args := []interface{}{tenantID, number}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check admission number: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, tenant_id, admission_number, full_name, gender, birth_date, class_id, parent_id, address, phone, active, created_at, updated_at)
        VALUES (:id, :tenant_id, :admission_number, :full_name, :gender, :birth_date, :class_id, :parent_id, :address, :phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET admission_number = :admission_number, full_name = :full_name, gender = :gender,
        birth_date = :birth_date, class_id = :class_id, parent_id = :parent_id, address = :address, phone = :phone,
        active = :active, updated_at = :updated_at WHERE tenant_id = :tenant_id AND id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetClass moves a student to a class (or out of one, with a nil class).
func (r *StudentRepository) SetClass(ctx context.Context, tenantID, id string, classID *string) error {
	const query = `UPDATE students SET class_id = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, tenantID, id, classID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set student class: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errNoRowsAffected
	}
	return nil
}

// Deactivate marks a student as inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	const query = `UPDATE students SET active = false, updated_at = $3 WHERE tenant_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, tenantID, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}
