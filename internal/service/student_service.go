package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, tenantID string, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error)
	ExistsByAdmissionNumber(ctx context.Context, tenantID, number, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetClass(ctx context.Context, tenantID, id string, classID *string) error
	Deactivate(ctx context.Context, tenantID, id string) error
}

// CreateStudentRequest payload for registering a student.
type CreateStudentRequest struct {
	AdmissionNumber string     `json:"admission_number" validate:"required"`
	FullName        string     `json:"full_name" validate:"required"`
	Gender          string     `json:"gender" validate:"omitempty,oneof=male female other"`
	BirthDate       *time.Time `json:"birth_date"`
	ClassID         *string    `json:"class_id"`
	ParentID        *string    `json:"parent_id"`
	Address         string     `json:"address"`
	Phone           string     `json:"phone"`
}

// UpdateStudentRequest payload for modifying a student.
type UpdateStudentRequest struct {
	FullName  string     `json:"full_name" validate:"required"`
	Gender    string     `json:"gender" validate:"omitempty,oneof=male female other"`
	BirthDate *time.Time `json:"birth_date"`
	ParentID  *string    `json:"parent_id"`
	Address   string     `json:"address"`
	Phone     string     `json:"phone"`
	Active    *bool      `json:"active"`
}

// StudentService manages student records. Enrolling a student into a class
// triggers auto-assignment of the class's active fee structures; the
// enrollment itself never fails because of a fee problem.
type StudentService struct {
	repo        studentRepository
	assignments *FeeAssignmentService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs a StudentService. assignments may be nil;
// enrollment then skips fee auto-assignment.
func NewStudentService(repo studentRepository, assignments *FeeAssignmentService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, assignments: assignments, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, tenantID string, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student with class and parent context.
func (s *StudentService) Get(ctx context.Context, tenantID, id string) (*models.StudentDetail, error) {
	detail, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return detail, nil
}

// Create registers a student. When a class is given, the class's active fee
// structures are auto-assigned best-effort after the student row commits.
func (s *StudentService) Create(ctx context.Context, tenantID string, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.repo.ExistsByAdmissionNumber(ctx, tenantID, req.AdmissionNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already in use")
	}

	student := &models.Student{
		TenantID:        tenantID,
		AdmissionNumber: req.AdmissionNumber,
		FullName:        req.FullName,
		Gender:          req.Gender,
		BirthDate:       req.BirthDate,
		ClassID:         req.ClassID,
		ParentID:        req.ParentID,
		Address:         req.Address,
		Phone:           req.Phone,
		Active:          true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	if req.ClassID != nil {
		s.autoAssign(ctx, tenantID, student.ID, *req.ClassID)
	}
	return s.Get(ctx, tenantID, student.ID)
}

// Update modifies a student's profile. Class moves go through AssignClass.
func (s *StudentService) Update(ctx context.Context, tenantID, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	existing, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	student := existing.Student
	student.FullName = req.FullName
	student.Gender = req.Gender
	student.BirthDate = req.BirthDate
	student.ParentID = req.ParentID
	student.Address = req.Address
	student.Phone = req.Phone
	if req.Active != nil {
		student.Active = *req.Active
	}
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, tenantID, id)
}

// AssignClass moves a student into a class (or out of any class with nil) and
// auto-assigns the new class's fee structures. Existing assignments from the
// previous class survive; they were real obligations when incurred.
func (s *StudentService) AssignClass(ctx context.Context, tenantID, id string, classID *string) (*models.StudentDetail, error) {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetClass(ctx, tenantID, id, classID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign class")
	}
	if classID != nil {
		s.autoAssign(ctx, tenantID, id, *classID)
	}
	return s.Get(ctx, tenantID, id)
}

// Deactivate soft-deletes a student. Fee history remains queryable.
func (s *StudentService) Deactivate(ctx context.Context, tenantID, id string) error {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

// autoAssign runs class fee auto-assignment best-effort: a failure is logged
// and the enrollment stands, with the admin able to assign manually later.
func (s *StudentService) autoAssign(ctx context.Context, tenantID, studentID, classID string) {
	if s.assignments == nil {
		return
	}
	created, err := s.assignments.AutoAssignClassFees(ctx, tenantID, studentID, classID)
	if err != nil {
		s.logger.Warn("auto-assignment of class fees failed",
			zap.String("tenant_id", tenantID),
			zap.String("student_id", studentID),
			zap.String("class_id", classID),
			zap.Error(err))
		return
	}
	if len(created) > 0 {
		s.logger.Info("auto-assigned class fees",
			zap.String("tenant_id", tenantID),
			zap.String("student_id", studentID),
			zap.Int("count", len(created)))
	}
}
