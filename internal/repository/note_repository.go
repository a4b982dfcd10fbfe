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

// NoteRepository persists teacher diary notes.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs a NoteRepository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// List returns notes addressed to a class or student, newest first.
func (r *NoteRepository) List(ctx context.Context, tenantID, classID, studentID string, page, size int) ([]models.NoteDetail, int, error) {
	conditions := []string{"n.tenant_id = $1"}
	args := []interface{}{tenantID}

	if classID != "" {
		conditions = append(conditions, fmt.Sprintf("n.class_id = $%d", len(args)+1))
		args = append(args, classID)
	}
	if studentID != "" {
		conditions = append(conditions, fmt.Sprintf("n.student_id = $%d", len(args)+1))
		args = append(args, studentID)
	}
	where := strings.Join(conditions, " AND ")

	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT n.id, n.tenant_id, n.class_id, n.student_id, n.title, n.content, n.author_id,
        n.created_at, n.updated_at,
        u.full_name AS author_name, c.name AS class_name, s.full_name AS student_name
        FROM notes n
        JOIN users u ON u.id = n.author_id
        LEFT JOIN classes c ON c.id = n.class_id
        LEFT JOIN students s ON s.id = n.student_id
        WHERE %s ORDER BY n.created_at DESC LIMIT %d OFFSET %d`, where, size, offset)

	var items []models.NoteDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notes n WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}
	return items, total, nil
}

// FindByID fetches one note within the tenant.
func (r *NoteRepository) FindByID(ctx context.Context, tenantID, id string) (*models.NoteDetail, error) {
	const query = `SELECT n.id, n.tenant_id, n.class_id, n.student_id, n.title, n.content, n.author_id,
        n.created_at, n.updated_at,
        u.full_name AS author_name, c.name AS class_name, s.full_name AS student_name
        FROM notes n
        JOIN users u ON u.id = n.author_id
        LEFT JOIN classes c ON c.id = n.class_id
        LEFT JOIN students s ON s.id = n.student_id
        WHERE n.tenant_id = $1 AND n.id = $2`
	var detail models.NoteDetail
	if err := r.db.GetContext(ctx, &detail, query, tenantID, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a note.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now
	const query = `INSERT INTO notes (id, tenant_id, class_id, student_id, title, content, author_id, created_at, updated_at)
        VALUES (:id, :tenant_id, :class_id, :student_id, :title, :content, :author_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// Update modifies a note's title and content.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	note.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notes SET title = :title, content = :content, updated_at = :updated_at
        WHERE tenant_id = :tenant_id AND id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// Delete removes a note.
func (r *NoteRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM notes WHERE tenant_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, tenantID, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}
