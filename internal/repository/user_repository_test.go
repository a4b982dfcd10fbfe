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

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func userRows(now time.Time) *sqlmock.Rows {
	tenantID := "t1"
	return sqlmock.NewRows([]string{"id", "tenant_id", "email", "password_hash", "full_name", "phone", "role", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", tenantID, "user@example.com", "hash", "User", "", string(models.RoleAdmin), true, now, now, now)
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tenant_id, email, password_hash, full_name, phone, role, active, last_login, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("user@example.com").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	require.NotNil(t, user.TenantID)
	assert.Equal(t, "t1", *user.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindTenantUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE tenant_id = $1 AND id = $2")).
		WithArgs("t1", "1").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindTenantUser(context.Background(), "t1", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now(), CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("t1").
		WillReturnRows(userRows(time.Now()))

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE tenant_id = $1")).
		WithArgs("t1").
		WillReturnRows(countRows)

	users, total, err := repo.List(context.Background(), "t1", models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	tenantID := "t1"
	userID := "u1"
	err := repo.CreateAuditLog(context.Background(), &models.AuditLog{
		TenantID: &tenantID,
		UserID:   &userID,
		Action:   models.AuditActionFeePayment,
		Resource: "fee_payment",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
