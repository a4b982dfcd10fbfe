package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalink/vidyalink-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentDetailRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "admission_number", "full_name", "gender", "birth_date",
		"class_id", "parent_id", "address", "phone", "active", "created_at", "updated_at",
		"class_name", "parent_name",
	}).AddRow("1", "t1", "ADM001", "Student", "male", now, "c1", "p1", "Street", "123", true, now, now, "Grade 5A", "Parent")
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.tenant_id = $1 ORDER BY s.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("t1").
		WillReturnRows(studentDetailRows(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), "t1", models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFiltersByClass(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.tenant_id = $1 AND s.class_id = $2")).
		WithArgs("t1", "c1").
		WillReturnRows(studentDetailRows(time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("t1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, _, err := repo.List(context.Background(), "t1", models.StudentFilter{ClassID: "c1"})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		TenantID:        "t1",
		AdmissionNumber: "ADM001",
		FullName:        "Student",
		Gender:          "male",
		Active:          true,
	}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetClassMissingStudent(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	classID := "c1"
	mock.ExpectExec("UPDATE students SET class_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetClass(context.Background(), "t1", "missing", &classID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
