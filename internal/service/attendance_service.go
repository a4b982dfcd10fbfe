package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type attendanceRepository interface {
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord) error
	ListByClassAndDate(ctx context.Context, tenantID, classID string, date time.Time) ([]models.AttendanceDetail, error)
	ListByStudent(ctx context.Context, tenantID, studentID string, from, to time.Time) ([]models.AttendanceRecord, error)
}

// MarkAttendanceEntry is one student's status in a bulk marking.
type MarkAttendanceEntry struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
	Remarks   string                  `json:"remarks"`
}

// MarkAttendanceRequest records a class's attendance for one day.
type MarkAttendanceRequest struct {
	ClassID string                `json:"class_id" validate:"required"`
	Date    time.Time             `json:"date" validate:"required"`
	Entries []MarkAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceService records daily attendance. Marking is an upsert keyed on
// (student, date): re-marking the same day replaces the earlier status.
type AttendanceService struct {
	repo      attendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger}
}

// Mark bulk-upserts one day's attendance for a class.
func (s *AttendanceService) Mark(ctx context.Context, tenantID, markedBy string, req MarkAttendanceRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	records := make([]models.AttendanceRecord, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return 0, appErrors.Clone(appErrors.ErrValidation, "unsupported attendance status "+string(entry.Status))
		}
		records = append(records, models.AttendanceRecord{
			TenantID:  tenantID,
			StudentID: entry.StudentID,
			ClassID:   req.ClassID,
			Date:      truncateToDay(req.Date),
			Status:    entry.Status,
			Remarks:   entry.Remarks,
			MarkedBy:  markedBy,
		})
	}
	if err := s.repo.BulkUpsert(ctx, records); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	return len(records), nil
}

// ClassDay returns the class register for one day.
func (s *AttendanceService) ClassDay(ctx context.Context, tenantID, classID string, date time.Time) ([]models.AttendanceDetail, error) {
	items, err := s.repo.ListByClassAndDate(ctx, tenantID, classID, truncateToDay(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return items, nil
}

// StudentRange returns one student's attendance over a date range.
func (s *AttendanceService) StudentRange(ctx context.Context, tenantID, studentID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range end precedes start")
	}
	items, err := s.repo.ListByStudent(ctx, tenantID, studentID, truncateToDay(from), truncateToDay(to))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return items, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
