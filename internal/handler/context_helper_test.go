package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalink/vidyalink-api/internal/middleware"
	"github.com/vidyalink/vidyalink-api/internal/models"
)

func testContext(t *testing.T, url string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	c.Request = req
	return c, w
}

func TestTenantFromContextRegularUser(t *testing.T) {
	c, _ := testContext(t, "/students?tenant_id=other")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", TenantID: "t1", Role: models.RoleAdmin})

	// The query parameter must not let a tenant user escape their scope.
	assert.Equal(t, "t1", tenantFromContext(c))
}

func TestTenantFromContextSuperAdmin(t *testing.T) {
	c, _ := testContext(t, "/students?tenant_id=t2")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin})

	assert.Equal(t, "t2", tenantFromContext(c))
}

func TestRequireTenantSuperAdminWithoutSelection(t *testing.T) {
	c, w := testContext(t, "/students")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin})

	_, ok := requireTenant(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireTenantMissingClaims(t *testing.T) {
	c, w := testContext(t, "/students")

	_, ok := requireTenant(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPageParams(t *testing.T) {
	c, _ := testContext(t, "/students?page=3&page_size=50")
	page, size := pageParams(c)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)

	c, _ = testContext(t, "/students")
	page, size = pageParams(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
}

func TestParseDateParam(t *testing.T) {
	c, _ := testContext(t, "/attendance/class/c1?date=2026-09-01")
	date, ok := parseDateParam(c, "date")
	require.True(t, ok)
	assert.Equal(t, 2026, date.Year())

	c, w := testContext(t, "/attendance/class/c1?date=01-09-2026")
	_, ok = parseDateParam(c, "date")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
