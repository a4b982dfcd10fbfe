package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/jobs"
)

// notifyLookupTimeout bounds the student lookup behind fire-and-forget hooks.
const notifyLookupTimeout = 5 * time.Second

type notificationRepository interface {
	RegisterDeviceToken(ctx context.Context, token *models.DeviceToken) error
	DeviceTokensForUsers(ctx context.Context, tenantID string, userIDs []string) ([]models.DeviceToken, error)
	ParentIDsForClass(ctx context.Context, tenantID, classID string) ([]string, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, tenantID, userID string, unreadOnly bool, page, size int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, tenantID, userID, id string) error
}

type notificationStudentRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error)
}

// PushSender delivers one push message to one device. Implementations wrap a
// provider SDK; the default logs instead of sending so the dispatcher works
// without provider credentials.
type PushSender interface {
	Push(ctx context.Context, token models.DeviceToken, title, body string, data map[string]string) error
}

// LogSender is the no-provider PushSender used in development.
type LogSender struct {
	Logger *zap.Logger
}

// Push logs the message instead of delivering it.
func (s LogSender) Push(_ context.Context, token models.DeviceToken, title, body string, _ map[string]string) error {
	if s.Logger != nil {
		s.Logger.Debug("push suppressed",
			zap.String("user_id", token.UserID),
			zap.String("platform", token.Platform),
			zap.String("title", title),
			zap.String("body", body))
	}
	return nil
}

// notificationJob is the queue payload for one fan-out.
type notificationJob struct {
	TenantID string
	UserIDs  []string
	Title    string
	Body     string
	Data     map[string]string
}

// RegisterDeviceRequest binds a push token to the calling user.
type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=android ios web"`
}

// NotificationService dispatches push notifications through a background
// worker queue and records each fan-out as in-app history. Enqueueing never
// blocks a request path on provider latency.
type NotificationService struct {
	repo     notificationRepository
	students notificationStudentRepository
	sender   PushSender
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewNotificationService constructs the dispatcher. sender may be nil, in
// which case pushes are logged, not delivered.
func NewNotificationService(repo notificationRepository, students notificationStudentRepository, sender PushSender, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s := &NotificationService{
		repo:     repo,
		students: students,
		sender:   sender,
		logger:   logger,
	}
	s.queue = jobs.NewQueue("notifications", s.process, cfg)
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues a fan-out to the given users. Failures to enqueue are
// logged, never propagated: notifications are best-effort side effects.
func (s *NotificationService) Notify(tenantID string, userIDs []string, title, body string, data map[string]string) {
	if len(userIDs) == 0 {
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "push",
		Payload: notificationJob{
			TenantID: tenantID,
			UserIDs:  userIDs,
			Title:    title,
			Body:     body,
			Data:     data,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// PaymentRecorded notifies the paying student's parent that a receipt was
// issued. Satisfies the payment service's notifier hook.
func (s *NotificationService) PaymentRecorded(tenantID string, payment *models.FeePayment, assignment *models.FeeAssignment) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyLookupTimeout)
	defer cancel()
	student, err := s.students.FindByID(ctx, tenantID, payment.StudentID)
	if err != nil {
		s.logger.Warn("payment notification skipped, student lookup failed",
			zap.String("tenant_id", tenantID), zap.String("student_id", payment.StudentID), zap.Error(err))
		return
	}
	if student.ParentID == nil {
		return
	}
	s.Notify(tenantID, []string{*student.ParentID},
		"Payment received",
		fmt.Sprintf("Receipt %s issued for %s: %s paid.", payment.ReceiptNumber, student.FullName, payment.Amount.StringFixed(2)),
		map[string]string{
			"type":          "fee_payment",
			"payment_id":    payment.ID,
			"assignment_id": assignment.ID,
		})
}

// HomeworkPosted notifies the parents of the class the homework targets.
// Satisfies the homework service's notifier hook.
func (s *NotificationService) HomeworkPosted(tenantID string, hw *models.Homework) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyLookupTimeout)
	defer cancel()
	parents, err := s.repo.ParentIDsForClass(ctx, tenantID, hw.ClassID)
	if err != nil {
		s.logger.Warn("homework notification skipped, parent lookup failed",
			zap.String("tenant_id", tenantID), zap.String("class_id", hw.ClassID), zap.Error(err))
		return
	}
	s.Notify(tenantID, parents,
		"New homework: "+hw.Subject,
		fmt.Sprintf("%s, due %s.", hw.Title, hw.DueDate.Format("02 Jan 2006")),
		map[string]string{
			"type":        "homework",
			"homework_id": hw.ID,
			"class_id":    hw.ClassID,
		})
}

// process is the queue handler: resolve device tokens, push to each, and
// append one history row per addressed user.
func (s *NotificationService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notificationJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	tokens, err := s.repo.DeviceTokensForUsers(ctx, payload.TenantID, payload.UserIDs)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if err := s.sender.Push(ctx, token, payload.Title, payload.Body, payload.Data); err != nil {
			s.logger.Warn("push delivery failed",
				zap.String("tenant_id", payload.TenantID),
				zap.String("user_id", token.UserID),
				zap.Error(err))
		}
	}

	var data []byte
	if len(payload.Data) > 0 {
		data, _ = json.Marshal(payload.Data)
	}
	for _, userID := range payload.UserIDs {
		n := &models.Notification{
			TenantID: payload.TenantID,
			UserID:   userID,
			Title:    payload.Title,
			Body:     payload.Body,
			Data:     data,
		}
		if err := s.repo.CreateNotification(ctx, n); err != nil {
			s.logger.Warn("failed to record notification history",
				zap.String("tenant_id", payload.TenantID),
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	return nil
}

// RegisterDevice upserts a push token for the calling user.
func (s *NotificationService) RegisterDevice(ctx context.Context, tenantID, userID string, req RegisterDeviceRequest) error {
	if req.Token == "" {
		return appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	token := &models.DeviceToken{
		TenantID: tenantID,
		UserID:   userID,
		Token:    req.Token,
		Platform: req.Platform,
	}
	if err := s.repo.RegisterDeviceToken(ctx, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register device")
	}
	return nil
}

// List returns the caller's notification history.
func (s *NotificationService) List(ctx context.Context, tenantID, userID string, unreadOnly bool, page, size int) ([]models.Notification, *models.Pagination, error) {
	items, total, err := s.repo.ListForUser(ctx, tenantID, userID, unreadOnly, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkRead flags one notification as read for the caller.
func (s *NotificationService) MarkRead(ctx context.Context, tenantID, userID, id string) error {
	if err := s.repo.MarkRead(ctx, tenantID, userID, id); err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
