package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/middleware"
	"github.com/vidyalink/vidyalink-api/internal/models"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/response"
)

// studentScopeChecker is the slice of the student service the parent
// ownership guard needs.
type studentScopeChecker interface {
	Get(ctx context.Context, tenantID, id string) (*models.StudentDetail, error)
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// tenantFromContext resolves the tenant scope for the request. Regular users
// are locked to their own tenant; super admins select one via the tenant_id
// query parameter. An empty result means the scope could not be resolved and
// the handler must reject the request.
func tenantFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	if claims.Role == models.RoleSuperAdmin {
		return c.Query("tenant_id")
	}
	return claims.TenantID
}

// requireTenant resolves the tenant scope or writes a validation error and
// reports false.
func requireTenant(c *gin.Context) (string, bool) {
	tenantID := tenantFromContext(c)
	if tenantID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tenant scope required"))
		return "", false
	}
	return tenantID, true
}

// ensureStudentScope restricts parent reads to their own children; other
// roles pass through. A parent probing another family's student gets
// NotFound, the same answer as a cross-tenant probe, or writes the error
// and reports false.
func ensureStudentScope(c *gin.Context, students studentScopeChecker, tenantID, studentID string) bool {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleParent {
		return true
	}
	if students == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student not found"))
		return false
	}
	detail, err := students.Get(c.Request.Context(), tenantID, studentID)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if detail.ParentID == nil || *detail.ParentID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student not found"))
		return false
	}
	return true
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}
