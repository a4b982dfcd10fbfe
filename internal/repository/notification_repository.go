package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vidyalink/vidyalink-api/internal/models"
)

// NotificationRepository persists device tokens and the in-app notification
// history the dispatcher writes as it fans out pushes.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// RegisterDeviceToken upserts a device token for a user.
func (r *NotificationRepository) RegisterDeviceToken(ctx context.Context, token *models.DeviceToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	token.CreatedAt = now
	token.UpdatedAt = now
	const query = `INSERT INTO device_tokens (id, tenant_id, user_id, token, platform, created_at, updated_at)
        VALUES (:id, :tenant_id, :user_id, :token, :platform, :created_at, :updated_at)
        ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("register device token: %w", err)
	}
	return nil
}

// DeviceTokensForUsers returns the registered tokens of the given users.
func (r *NotificationRepository) DeviceTokensForUsers(ctx context.Context, tenantID string, userIDs []string) ([]models.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, tenant_id, user_id, token, platform, created_at, updated_at
        FROM device_tokens WHERE tenant_id = ? AND user_id IN (?)`, tenantID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("build token query: %w", err)
	}
	query = r.db.Rebind(query)
	var tokens []models.DeviceToken
	if err := r.db.SelectContext(ctx, &tokens, query, args...); err != nil {
		return nil, fmt.Errorf("load device tokens: %w", err)
	}
	return tokens, nil
}

// ParentIDsForClass returns the distinct parent user IDs of a class's active
// students.
func (r *NotificationRepository) ParentIDsForClass(ctx context.Context, tenantID, classID string) ([]string, error) {
	const query = `SELECT DISTINCT parent_id FROM students
        WHERE tenant_id = $1 AND class_id = $2 AND active = true AND parent_id IS NOT NULL`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, tenantID, classID); err != nil {
		return nil, fmt.Errorf("load class parents: %w", err)
	}
	return ids, nil
}

// CreateNotification appends one history row per addressed user.
func (r *NotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, tenant_id, user_id, title, body, data, read, created_at)
        VALUES (:id, :tenant_id, :user_id, :title, :body, :data, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListForUser returns a user's notification history, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, tenantID, userID string, unreadOnly bool, page, size int) ([]models.Notification, int, error) {
	where := "tenant_id = $1 AND user_id = $2"
	if unreadOnly {
		where += " AND read = false"
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, tenant_id, user_id, title, body, data, read, read_at, created_at
        FROM notifications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, size, offset)
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, tenantID, userID); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notifications WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, tenantID, userID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead flags one notification as read for its owner.
func (r *NotificationRepository) MarkRead(ctx context.Context, tenantID, userID, id string) error {
	const query = `UPDATE notifications SET read = true, read_at = $4
        WHERE tenant_id = $1 AND user_id = $2 AND id = $3 AND read = false`
	res, err := r.db.ExecContext(ctx, query, tenantID, userID, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errNoRowsAffected
	}
	return nil
}
