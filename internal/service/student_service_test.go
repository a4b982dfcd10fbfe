package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type mockStudentRepo struct {
	students    map[string]models.Student
	admissions  map[string]string
	deactivated []string
	classMoves  map[string]*string
	listTotal   int
	listErr     error
}

func (m *mockStudentRepo) List(ctx context.Context, tenantID string, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	details := make([]models.StudentDetail, 0, len(m.students))
	for _, s := range m.students {
		if s.TenantID == tenantID {
			details = append(details, models.StudentDetail{Student: s})
		}
	}
	return details, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, tenantID, id string) (*models.StudentDetail, error) {
	s, ok := m.students[id]
	if !ok || s.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return &models.StudentDetail{Student: s}, nil
}

func (m *mockStudentRepo) ExistsByAdmissionNumber(ctx context.Context, tenantID, number, excludeID string) (bool, error) {
	if id, ok := m.admissions[tenantID+"/"+number]; ok {
		if excludeID == "" || id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) SetClass(ctx context.Context, tenantID, id string, classID *string) error {
	if m.classMoves == nil {
		m.classMoves = make(map[string]*string)
	}
	m.classMoves[id] = classID
	s, ok := m.students[id]
	if !ok || s.TenantID != tenantID {
		return sql.ErrNoRows
	}
	s.ClassID = classID
	m.students[id] = s
	return nil
}

func (m *mockStudentRepo) Deactivate(ctx context.Context, tenantID, id string) error {
	m.deactivated = append(m.deactivated, id)
	if s, ok := m.students[id]; ok {
		s.Active = false
		m.students[id] = s
	}
	return nil
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{admissions: make(map[string]string)}
	svc := NewStudentService(repo, nil, validator.New(), zap.NewNop())

	student, err := svc.Create(context.Background(), "t1", CreateStudentRequest{
		AdmissionNumber: "ADM001",
		FullName:        "John Doe",
		Gender:          "male",
		Address:         "Street",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Equal(t, "t1", student.TenantID)
	assert.True(t, student.Active)
}

func TestStudentServiceCreateDuplicateAdmissionNumber(t *testing.T) {
	repo := &mockStudentRepo{admissions: map[string]string{"t1/ADM001": "another"}}
	svc := NewStudentService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "t1", CreateStudentRequest{AdmissionNumber: "ADM001", FullName: "A"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdate(t *testing.T) {
	repo := &mockStudentRepo{
		students:   map[string]models.Student{"id1": {ID: "id1", TenantID: "t1", AdmissionNumber: "ADM001", FullName: "Old", Active: true}},
		admissions: make(map[string]string),
	}
	svc := NewStudentService(repo, nil, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), "t1", "id1", UpdateStudentRequest{FullName: "New", Gender: "female"})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.FullName)
	assert.Equal(t, "ADM001", updated.AdmissionNumber)
}

func TestStudentServiceGetWrongTenant(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"id1": {ID: "id1", TenantID: "t1", FullName: "A"}}}
	svc := NewStudentService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "t2", "id1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceAssignClass(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"id1": {ID: "id1", TenantID: "t1", FullName: "A", Active: true}}}
	svc := NewStudentService(repo, nil, validator.New(), zap.NewNop())

	classID := "c1"
	detail, err := svc.AssignClass(context.Background(), "t1", "id1", &classID)
	require.NoError(t, err)
	require.NotNil(t, detail.ClassID)
	assert.Equal(t, "c1", *detail.ClassID)
}

func TestStudentServiceDeactivate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"id1": {ID: "id1", TenantID: "t1", FullName: "A", Active: true}}}
	svc := NewStudentService(repo, nil, validator.New(), zap.NewNop())

	err := svc.Deactivate(context.Background(), "t1", "id1")
	require.NoError(t, err)
	assert.Contains(t, repo.deactivated, "id1")
}
