package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type noteRepository interface {
	List(ctx context.Context, tenantID, classID, studentID string, page, size int) ([]models.NoteDetail, int, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.NoteDetail, error)
	Create(ctx context.Context, note *models.Note) error
	Update(ctx context.Context, note *models.Note) error
	Delete(ctx context.Context, tenantID, id string) error
}

// CreateNoteRequest payload for a diary note. Exactly one of ClassID or
// StudentID addresses the note.
type CreateNoteRequest struct {
	ClassID   *string `json:"class_id"`
	StudentID *string `json:"student_id"`
	Title     string  `json:"title" validate:"required"`
	Content   string  `json:"content" validate:"required"`
}

// UpdateNoteRequest payload for editing a note.
type UpdateNoteRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// NoteService manages teacher diary notes.
type NoteService struct {
	repo      noteRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoteService constructs a NoteService.
func NewNoteService(repo noteRepository, validate *validator.Validate, logger *zap.Logger) *NoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{repo: repo, validator: validate, logger: logger}
}

// List returns notes filtered by class or student.
func (s *NoteService) List(ctx context.Context, tenantID, classID, studentID string, page, size int) ([]models.NoteDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, tenantID, classID, studentID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one note.
func (s *NoteService) Get(ctx context.Context, tenantID, id string) (*models.NoteDetail, error) {
	detail, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	return detail, nil
}

// Create writes a note addressed to a class or a single student.
func (s *NoteService) Create(ctx context.Context, tenantID, authorID string, req CreateNoteRequest) (*models.NoteDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}
	if (req.ClassID == nil) == (req.StudentID == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "note must target exactly one class or student")
	}
	note := &models.Note{
		TenantID:  tenantID,
		ClassID:   req.ClassID,
		StudentID: req.StudentID,
		Title:     req.Title,
		Content:   req.Content,
		AuthorID:  authorID,
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}
	return s.Get(ctx, tenantID, note.ID)
}

// Update edits a note. Only the author may edit, enforced here because the
// rule depends on the stored row, not just the claims.
func (s *NoteService) Update(ctx context.Context, tenantID, id, actorID string, req UpdateNoteRequest) (*models.NoteDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}
	existing, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can edit a note")
	}
	note := existing.Note
	note.Title = req.Title
	note.Content = req.Content
	if err := s.repo.Update(ctx, &note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}
	return s.Get(ctx, tenantID, id)
}

// Delete removes a note; the author or an admin may delete.
func (s *NoteService) Delete(ctx context.Context, tenantID, id, actorID string, isAdmin bool) error {
	existing, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if existing.AuthorID != actorID && !isAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author or an admin can delete a note")
	}
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}
	return nil
}
