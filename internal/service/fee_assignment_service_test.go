package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]*models.FeeAssignment
	existing    map[string]bool
	details     []models.FeeAssignmentDetail
	createErr   error
	updateErr   error
	cancelled   int
}

func assignmentKey(studentID, structureID, year string) string {
	return studentID + "/" + structureID + "/" + year
}

func (m *mockAssignmentRepo) Create(ctx context.Context, a *models.FeeAssignment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.assignments == nil {
		m.assignments = make(map[string]*models.FeeAssignment)
	}
	if a.ID == "" {
		a.ID = "assignment-" + a.FeeStructureID
	}
	copy := *a
	m.assignments[a.ID] = &copy
	if m.existing == nil {
		m.existing = make(map[string]bool)
	}
	m.existing[assignmentKey(a.StudentID, a.FeeStructureID, a.AcademicYear)] = true
	return nil
}

func (m *mockAssignmentRepo) Exists(ctx context.Context, tenantID, studentID, structureID, academicYear string) (bool, error) {
	return m.existing[assignmentKey(studentID, structureID, academicYear)], nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, tenantID, id string) (*models.FeeAssignment, error) {
	a, ok := m.assignments[id]
	if !ok || a.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	copy := *a
	return &copy, nil
}

func (m *mockAssignmentRepo) ListByStudent(ctx context.Context, tenantID, studentID, academicYear string) ([]models.FeeAssignmentDetail, error) {
	return m.details, nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, a *models.FeeAssignment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copy := *a
	m.assignments[a.ID] = &copy
	return nil
}

func (m *mockAssignmentRepo) CancelUnpaidForClass(ctx context.Context, tenantID, classID, cancelledBy, reason string) (int, error) {
	m.cancelled++
	return 2, nil
}

type mockStructureRepo struct {
	structures map[string]*models.FeeStructureDetail
	forClass   []models.FeeStructureDetail
}

func (m *mockStructureRepo) List(ctx context.Context, tenantID string, filter models.FeeStructureFilter) ([]models.FeeStructureDetail, int, error) {
	return nil, 0, nil
}

func (m *mockStructureRepo) FindByID(ctx context.Context, tenantID, id string) (*models.FeeStructureDetail, error) {
	s, ok := m.structures[id]
	if !ok || s.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockStructureRepo) ListActiveForClass(ctx context.Context, tenantID, classID string) ([]models.FeeStructureDetail, error) {
	return m.forClass, nil
}

func (m *mockStructureRepo) Create(ctx context.Context, structure *models.FeeStructure, classIDs []string) error {
	return nil
}

func (m *mockStructureRepo) Update(ctx context.Context, structure *models.FeeStructure, classIDs []string) error {
	return nil
}

func (m *mockStructureRepo) SoftDelete(ctx context.Context, tenantID, id string) error {
	return nil
}

func tuitionStructure(id string) *models.FeeStructureDetail {
	return &models.FeeStructureDetail{
		FeeStructure: models.FeeStructure{
			ID:           id,
			TenantID:     "t1",
			Name:         "Tuition",
			Amount:       decimal.NewFromInt(1000),
			AcademicYear: "2026-2027",
			DueDay:       10,
			Active:       true,
		},
		FrequencyCode: "monthly",
	}
}

func newAssignmentFixture(t *testing.T) (*FeeAssignmentService, *mockAssignmentRepo, *mockStructureRepo) {
	t.Helper()
	assignments := &mockAssignmentRepo{assignments: make(map[string]*models.FeeAssignment), existing: make(map[string]bool)}
	structures := &mockStructureRepo{structures: map[string]*models.FeeStructureDetail{"fs1": tuitionStructure("fs1")}}
	students := &mockStudentRepo{students: map[string]models.Student{"st1": {ID: "st1", TenantID: "t1", FullName: "Student", Active: true}}}
	svc := NewFeeAssignmentService(assignments, structures, students, validator.New(), zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) })
	return svc, assignments, structures
}

func TestFeeAssignmentAssign(t *testing.T) {
	svc, _, _ := newAssignmentFixture(t)

	a, err := svc.Assign(context.Background(), "t1", AssignFeeRequest{StudentID: "st1", FeeStructureID: "fs1"})
	require.NoError(t, err)
	assert.True(t, a.TotalAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, a.FinalAmount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, models.FeeStatusPending, a.Status)
	assert.Equal(t, 1, a.Version)
	assert.Equal(t, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), a.DueDate)
}

func TestFeeAssignmentAssignWithDiscount(t *testing.T) {
	svc, _, _ := newAssignmentFixture(t)

	a, err := svc.Assign(context.Background(), "t1", AssignFeeRequest{
		StudentID:      "st1",
		FeeStructureID: "fs1",
		Discount:       &Discount{Amount: decimal.NewFromInt(200), Reason: "sibling"},
	})
	require.NoError(t, err)
	assert.True(t, a.FinalAmount.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, "sibling", a.DiscountReason)
}

func TestFeeAssignmentAssignDiscountExceedsAmount(t *testing.T) {
	svc, _, _ := newAssignmentFixture(t)

	_, err := svc.Assign(context.Background(), "t1", AssignFeeRequest{
		StudentID:      "st1",
		FeeStructureID: "fs1",
		Discount:       &Discount{Amount: decimal.NewFromInt(1500)},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeeAssignmentAssignDuplicate(t *testing.T) {
	svc, assignments, _ := newAssignmentFixture(t)
	assignments.existing[assignmentKey("st1", "fs1", "2026-2027")] = true

	_, err := svc.Assign(context.Background(), "t1", AssignFeeRequest{StudentID: "st1", FeeStructureID: "fs1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFeeAssignmentAssignRacingDuplicate(t *testing.T) {
	svc, assignments, _ := newAssignmentFixture(t)
	assignments.createErr = repository.ErrDuplicateAssignment

	_, err := svc.Assign(context.Background(), "t1", AssignFeeRequest{StudentID: "st1", FeeStructureID: "fs1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFeeAssignmentAssignUnknownStudent(t *testing.T) {
	svc, _, _ := newAssignmentFixture(t)

	_, err := svc.Assign(context.Background(), "t1", AssignFeeRequest{StudentID: "missing", FeeStructureID: "fs1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFeeAssignmentAutoAssignSkipsExisting(t *testing.T) {
	svc, assignments, structures := newAssignmentFixture(t)
	structures.forClass = []models.FeeStructureDetail{*tuitionStructure("fs1"), *tuitionStructure("fs2")}
	assignments.existing[assignmentKey("st1", "fs1", "2026-2027")] = true

	created, err := svc.AutoAssignClassFees(context.Background(), "t1", "st1", "c1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "fs2", created[0].FeeStructureID)
}

func TestFeeAssignmentAutoAssignIdempotent(t *testing.T) {
	svc, _, structures := newAssignmentFixture(t)
	structures.forClass = []models.FeeStructureDetail{*tuitionStructure("fs1")}

	first, err := svc.AutoAssignClassFees(context.Background(), "t1", "st1", "c1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.AutoAssignClassFees(context.Background(), "t1", "st1", "c1")
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestFeeAssignmentApplyDiscount(t *testing.T) {
	svc, assignments, _ := newAssignmentFixture(t)
	assignments.assignments["a1"] = &models.FeeAssignment{
		ID:          "a1",
		TenantID:    "t1",
		StudentID:   "st1",
		TotalAmount: decimal.NewFromInt(1000),
		FinalAmount: decimal.NewFromInt(1000),
		DueDate:     time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC),
		Status:      models.FeeStatusPending,
		Version:     1,
	}

	a, err := svc.ApplyDiscount(context.Background(), "t1", "a1", Discount{Amount: decimal.NewFromInt(300), Reason: "scholarship"})
	require.NoError(t, err)
	assert.True(t, a.FinalAmount.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, models.FeeStatusPending, a.Status)
}

func TestFeeAssignmentApplyDiscountCancelled(t *testing.T) {
	svc, assignments, _ := newAssignmentFixture(t)
	assignments.assignments["a1"] = &models.FeeAssignment{
		ID:       "a1",
		TenantID: "t1",
		Status:   models.FeeStatusCancelled,
	}

	_, err := svc.ApplyDiscount(context.Background(), "t1", "a1", Discount{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeeAssignmentApplyDiscountVersionConflict(t *testing.T) {
	svc, assignments, _ := newAssignmentFixture(t)
	assignments.assignments["a1"] = &models.FeeAssignment{
		ID:          "a1",
		TenantID:    "t1",
		TotalAmount: decimal.NewFromInt(1000),
		FinalAmount: decimal.NewFromInt(1000),
		Status:      models.FeeStatusPending,
		Version:     1,
	}
	assignments.updateErr = repository.ErrVersionConflict

	_, err := svc.ApplyDiscount(context.Background(), "t1", "a1", Discount{Amount: decimal.NewFromInt(10)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFeeAssignmentCancelIdempotent(t *testing.T) {
	svc, assignments, _ := newAssignmentFixture(t)
	cancelledAt := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	assignments.assignments["a1"] = &models.FeeAssignment{
		ID:          "a1",
		TenantID:    "t1",
		Status:      models.FeeStatusCancelled,
		CancelledAt: &cancelledAt,
	}

	a, err := svc.Cancel(context.Background(), "t1", "a1", "admin", "again")
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusCancelled, a.Status)
	assert.Equal(t, cancelledAt, *a.CancelledAt)
}

func TestFeeAssignmentCancel(t *testing.T) {
	svc, assignments, _ := newAssignmentFixture(t)
	assignments.assignments["a1"] = &models.FeeAssignment{
		ID:          "a1",
		TenantID:    "t1",
		FinalAmount: decimal.NewFromInt(1000),
		Status:      models.FeeStatusPending,
		Version:     1,
	}

	a, err := svc.Cancel(context.Background(), "t1", "a1", "admin", "withdrawn")
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusCancelled, a.Status)
	require.NotNil(t, a.CancelledBy)
	assert.Equal(t, "admin", *a.CancelledBy)
	assert.Equal(t, "withdrawn", a.CancelReason)
}

func TestFeeAssignmentStudentFeesRecomputesStatus(t *testing.T) {
	svc, assignments, _ := newAssignmentFixture(t)
	assignments.details = []models.FeeAssignmentDetail{{
		FeeAssignment: models.FeeAssignment{
			ID:          "a1",
			TenantID:    "t1",
			StudentID:   "st1",
			FinalAmount: decimal.NewFromInt(1000),
			PaidAmount:  decimal.Zero,
			DueDate:     time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
			Status:      models.FeeStatusPending,
		},
		FeeName: "Tuition",
	}}

	items, err := svc.StudentFees(context.Background(), "t1", "st1", "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.FeeStatusOverdue, items[0].Status)
}
