package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/vidyalink/vidyalink-api/internal/middleware"
	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/repository"
	"github.com/vidyalink/vidyalink-api/internal/service"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
)

type stubStudentDirectory struct {
	students map[string]*models.StudentDetail
}

func (s *stubStudentDirectory) Get(ctx context.Context, tenantID, id string) (*models.StudentDetail, error) {
	detail, ok := s.students[tenantID+"/"+id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return detail, nil
}

func childOf(parentID string) *models.StudentDetail {
	return &models.StudentDetail{Student: models.Student{
		ID: "st1", TenantID: "t1", FullName: "Student One", ParentID: &parentID, Active: true,
	}}
}

func parentClaims(c *gin.Context, userID string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, TenantID: "t1", Role: models.RoleParent})
}

func TestEnsureStudentScopeOwnChild(t *testing.T) {
	dir := &stubStudentDirectory{students: map[string]*models.StudentDetail{"t1/st1": childOf("parent-1")}}
	c, _ := testContext(t, "/fees/students/st1")
	parentClaims(c, "parent-1")

	assert.True(t, ensureStudentScope(c, dir, "t1", "st1"))
}

func TestEnsureStudentScopeSkipsStaff(t *testing.T) {
	c, _ := testContext(t, "/fees/students/st1")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", TenantID: "t1", Role: models.RoleAdmin})

	// Staff roles never trigger the ownership lookup.
	assert.True(t, ensureStudentScope(c, nil, "t1", "st1"))
}

func TestStudentFeesParentCannotReadOtherFamily(t *testing.T) {
	dir := &stubStudentDirectory{students: map[string]*models.StudentDetail{"t1/st1": childOf("parent-2")}}
	h := NewFeeHandler(nil, nil, nil, dir)
	c, w := testContext(t, "/fees/students/st1")
	c.Params = gin.Params{{Key: "student_id", Value: "st1"}}
	parentClaims(c, "parent-1")

	h.StudentFees(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentSummaryParentCannotReadOtherFamily(t *testing.T) {
	dir := &stubStudentDirectory{students: map[string]*models.StudentDetail{"t1/st1": childOf("parent-2")}}
	h := NewFeeHandler(nil, nil, nil, dir)
	c, w := testContext(t, "/fees/summary/student/st1")
	c.Params = gin.Params{{Key: "student_id", Value: "st1"}}
	parentClaims(c, "parent-1")

	h.StudentSummary(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceParentCannotReadOtherFamily(t *testing.T) {
	dir := &stubStudentDirectory{students: map[string]*models.StudentDetail{"t1/st1": childOf("parent-2")}}
	h := NewAttendanceHandler(nil, dir)
	c, w := testContext(t, "/attendance/student/st1?from=2026-09-01&to=2026-09-30")
	c.Params = gin.Params{{Key: "student_id", Value: "st1"}}
	parentClaims(c, "parent-1")

	h.StudentRange(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubPaymentFinder struct {
	detail *models.FeePaymentDetail
}

func (s *stubPaymentFinder) Record(ctx context.Context, tenantID, assignmentID string, build repository.RecordFunc) (*models.FeePayment, *models.FeeAssignment, error) {
	return nil, nil, sql.ErrNoRows
}

func (s *stubPaymentFinder) List(ctx context.Context, tenantID string, filter models.FeePaymentFilter) ([]models.FeePaymentDetail, int, error) {
	return nil, 0, nil
}

func (s *stubPaymentFinder) Recent(ctx context.Context, tenantID, studentID string, limit int) ([]models.FeePaymentDetail, error) {
	return nil, nil
}

func (s *stubPaymentFinder) FindByID(ctx context.Context, tenantID, id string) (*models.FeePaymentDetail, error) {
	if s.detail != nil && s.detail.ID == id {
		return s.detail, nil
	}
	return nil, sql.ErrNoRows
}

func TestGetPaymentParentCannotReadOtherFamily(t *testing.T) {
	dir := &stubStudentDirectory{students: map[string]*models.StudentDetail{"t1/st1": childOf("parent-2")}}
	payments := service.NewFeePaymentService(&stubPaymentFinder{detail: &models.FeePaymentDetail{
		FeePayment: models.FeePayment{ID: "p1", TenantID: "t1", StudentID: "st1"},
	}}, nil, "RCP", nil, nil)
	h := NewFeeHandler(nil, payments, nil, dir)
	c, w := testContext(t, "/fees/payments/p1")
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	parentClaims(c, "parent-1")

	h.GetPayment(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
