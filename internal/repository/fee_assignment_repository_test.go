package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalink/vidyalink-api/internal/models"
)

func TestFeeAssignmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO fee_assignments").WillReturnResult(sqlmock.NewResult(1, 1))

	a := &models.FeeAssignment{
		TenantID:       "t1",
		StudentID:      "st1",
		FeeStructureID: "fs1",
		AcademicYear:   "2026-2027",
		TotalAmount:    decimal.NewFromInt(1000),
		FinalAmount:    decimal.NewFromInt(1000),
		DueDate:        time.Now().UTC(),
		Status:         models.FeeStatusPending,
	}
	err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, 1, a.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeAssignmentRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO fee_assignments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.FeeAssignment{
		TenantID:       "t1",
		StudentID:      "st1",
		FeeStructureID: "fs1",
		AcademicYear:   "2026-2027",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeAssignmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM fee_assignments")).
		WithArgs("t1", "st1", "fs1", "2026-2027").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "t1", "st1", "fs1", "2026-2027")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeAssignmentRepositoryExistsNoRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM fee_assignments")).
		WithArgs("t1", "st1", "fs1", "2026-2027").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.Exists(context.Background(), "t1", "st1", "fs1", "2026-2027")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeAssignmentRepositoryUpdateVersionConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("version = version + 1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.FeeAssignment{
		ID:       "a1",
		TenantID: "t1",
		Status:   models.FeeStatusPending,
		Version:  2,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeAssignmentRepositoryUpdateBumpsVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_assignments SET discount_amount = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &models.FeeAssignment{ID: "a1", TenantID: "t1", Status: models.FeeStatusPending, Version: 2}
	err := repo.Update(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeAssignmentRepositorySummaryRowsScopedToClass(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeAssignmentRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"assignment_id", "student_id", "student_name", "class_id", "class_name",
		"fee_name", "category_name", "category_code", "final_amount", "paid_amount", "due_date", "status",
	}).AddRow("a1", "st1", "Student", "c1", "Grade 5A",
		"Tuition", "Tuition Fees", "TUITION", "1000", "400", now, string(models.FeeStatusPartiallyPaid))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE fa.tenant_id = $1 AND fa.status <> 'cancelled' AND s.id IS NOT NULL AND s.class_id = $2 AND fa.academic_year = $3")).
		WithArgs("t1", "c1", "2026-2027").
		WillReturnRows(rows)

	out, err := repo.SummaryRows(context.Background(), "t1", SummaryScope{ClassID: "c1", AcademicYear: "2026-2027"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a1", out[0].AssignmentID)
	assert.True(t, out[0].PaidAmount.Equal(decimal.NewFromInt(400)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeAssignmentRepositoryCancelUnpaidForClass(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewFeeAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("status <> 'cancelled' AND paid_amount < 1")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.CancelUnpaidForClass(context.Background(), "t1", "c1", "admin", "class removed")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
