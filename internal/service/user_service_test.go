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

type mockUserRepo struct {
	users       map[string]*models.User
	emails      map[string]bool
	listUsers   []models.User
	listCount   int
	listErr     error
	deactivated []string
}

func (m *mockUserRepo) List(ctx context.Context, tenantID string, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listUsers, m.listCount, nil
}

func (m *mockUserRepo) FindTenantUser(ctx context.Context, tenantID, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok || user.TenantID == nil || *user.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	copy := *user
	return &copy, nil
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return m.emails[email], nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	if user.ID == "" {
		user.ID = "generated"
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, tenantID, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func tenantUser(id, tenantID string, role models.UserRole) *models.User {
	return &models.User{ID: id, TenantID: &tenantID, Email: id + "@example.com", FullName: "User " + id, Role: role, Active: true}
}

func TestUserServiceList(t *testing.T) {
	repo := &mockUserRepo{listUsers: []models.User{*tenantUser("1", "t1", models.RoleAdmin)}, listCount: 1}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	users, pagination, err := svc.List(context.Background(), "t1", models.UserFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User), emails: map[string]bool{}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	user, err := svc.Create(context.Background(), "t1", CreateUserRequest{
		Email:    "USER@EXAMPLE.COM",
		FullName: "User",
		Role:     models.RoleTeacher,
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	require.NotNil(t, user.TenantID)
	assert.Equal(t, "t1", *user.TenantID)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret1", user.PasswordHash)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{emails: map[string]bool{"taken@example.com": true}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "t1", CreateUserRequest{
		Email:    "taken@example.com",
		FullName: "User",
		Role:     models.RoleParent,
		Password: "secret1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateRejectsSuperAdmin(t *testing.T) {
	repo := &mockUserRepo{emails: map[string]bool{}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "t1", CreateUserRequest{
		Email:    "root@example.com",
		FullName: "Root",
		Role:     models.RoleSuperAdmin,
		Password: "secret1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": tenantUser("1", "t1", models.RoleTeacher)}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	active := false
	user, err := svc.Update(context.Background(), "t1", "1", UpdateUserRequest{FullName: "New", Role: models.RoleAdmin, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.False(t, user.Active)
}

func TestUserServiceGetWrongTenant(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": tenantUser("1", "t1", models.RoleTeacher)}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "t2", "1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeactivate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": tenantUser("1", "t1", models.RoleTeacher)}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	err := svc.Deactivate(context.Background(), "t1", "1")
	require.NoError(t, err)
	assert.Contains(t, repo.deactivated, "1")
}
