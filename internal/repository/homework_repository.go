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

// HomeworkRepository persists homework postings.
type HomeworkRepository struct {
	db *sqlx.DB
}

// NewHomeworkRepository constructs a HomeworkRepository.
func NewHomeworkRepository(db *sqlx.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

// List returns homework matching the filter, soonest due first.
func (r *HomeworkRepository) List(ctx context.Context, tenantID string, filter models.HomeworkFilter) ([]models.HomeworkDetail, int, error) {
	conditions := []string{"h.tenant_id = $1", "h.active = true"}
	args := []interface{}{tenantID}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("h.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(h.subject) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.DueFrom != nil {
		conditions = append(conditions, fmt.Sprintf("h.due_date >= $%d", len(args)+1))
		args = append(args, *filter.DueFrom)
	}
	if filter.DueTo != nil {
		conditions = append(conditions, fmt.Sprintf("h.due_date <= $%d", len(args)+1))
		args = append(args, *filter.DueTo)
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

	query := fmt.Sprintf(`SELECT h.id, h.tenant_id, h.class_id, h.subject, h.title, h.description, h.due_date,
        h.assigned_by, h.active, h.created_at, h.updated_at,
        c.name AS class_name, u.full_name AS assigned_name
        FROM homework h
        JOIN classes c ON c.id = h.class_id
        JOIN users u ON u.id = h.assigned_by
        WHERE %s ORDER BY h.due_date LIMIT %d OFFSET %d`, where, size, offset)

	var items []models.HomeworkDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list homework: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM homework h WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count homework: %w", err)
	}
	return items, total, nil
}

// FindByID fetches one homework posting within the tenant.
func (r *HomeworkRepository) FindByID(ctx context.Context, tenantID, id string) (*models.HomeworkDetail, error) {
	const query = `SELECT h.id, h.tenant_id, h.class_id, h.subject, h.title, h.description, h.due_date,
        h.assigned_by, h.active, h.created_at, h.updated_at,
        c.name AS class_name, u.full_name AS assigned_name
        FROM homework h
        JOIN classes c ON c.id = h.class_id
        JOIN users u ON u.id = h.assigned_by
        WHERE h.tenant_id = $1 AND h.id = $2`
	var detail models.HomeworkDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new posting.
func (r *HomeworkRepository) Create(ctx context.Context, hw *models.Homework) error {
	if hw.ID == "" {
		hw.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	hw.CreatedAt = now
	hw.UpdatedAt = now
	const query = `INSERT INTO homework (id, tenant_id, class_id, subject, title, description, due_date, assigned_by, active, created_at, updated_at)
        VALUES (:id, :tenant_id, :class_id, :subject, :title, :description, :due_date, :assigned_by, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hw); err != nil {
		return fmt.Errorf("create homework: %w", err)
	}
	return nil
}

// Update modifies a posting.
func (r *HomeworkRepository) Update(ctx context.Context, hw *models.Homework) error {
	hw.UpdatedAt = time.Now().UTC()
	const query = `UPDATE homework SET subject = :subject, title = :title, description = :description,
        due_date = :due_date, active = :active, updated_at = :updated_at
        WHERE tenant_id = :tenant_id AND id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, hw); err != nil {
		return fmt.Errorf("update homework: %w", err)
	}
	return nil
}

// Delete removes a posting.
func (r *HomeworkRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM homework WHERE tenant_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, tenantID, id); err != nil {
		return fmt.Errorf("delete homework: %w", err)
	}
	return nil
}
