package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/service"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/response"
)

// HomeworkHandler handles homework endpoints.
type HomeworkHandler struct {
	service *service.HomeworkService
}

// NewHomeworkHandler creates a new handler.
func NewHomeworkHandler(svc *service.HomeworkService) *HomeworkHandler {
	return &HomeworkHandler{service: svc}
}

// List godoc
// @Summary List homework
// @Tags Homework
// @Produce json
// @Param class_id query string false "Class filter"
// @Param subject query string false "Subject filter"
// @Param due_from query string false "Due date lower bound (YYYY-MM-DD)"
// @Param due_to query string false "Due date upper bound (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /homework [get]
func (h *HomeworkHandler) List(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	filter := models.HomeworkFilter{
		ClassID:  c.Query("class_id"),
		Subject:  c.Query("subject"),
		Page:     page,
		PageSize: size,
	}
	if raw := c.Query("due_from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DueFrom = &t
		}
	}
	if raw := c.Query("due_to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DueTo = &t
		}
	}
	items, pagination, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a homework entry
// @Tags Homework
// @Produce json
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /homework/{id} [get]
func (h *HomeworkHandler) Get(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Post homework for a class
// @Tags Homework
// @Accept json
// @Produce json
// @Param payload body service.CreateHomeworkRequest true "Homework payload"
// @Success 201 {object} response.Envelope
// @Router /homework [post]
func (h *HomeworkHandler) Create(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	assignedBy := ""
	if claims != nil {
		assignedBy = claims.UserID
	}
	var req service.CreateHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid homework payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), tenantID, assignedBy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Update a homework entry
// @Tags Homework
// @Accept json
// @Produce json
// @Param id path string true "Homework ID"
// @Param payload body service.UpdateHomeworkRequest true "Homework payload"
// @Success 200 {object} response.Envelope
// @Router /homework/{id} [put]
func (h *HomeworkHandler) Update(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.UpdateHomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid homework payload"))
		return
	}
	if !h.canEdit(c, tenantID) {
		return
	}
	detail, err := h.service.Update(c.Request.Context(), tenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a homework entry
// @Tags Homework
// @Produce json
// @Param id path string true "Homework ID"
// @Success 204 {object} response.Envelope
// @Router /homework/{id} [delete]
func (h *HomeworkHandler) Delete(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if !h.canEdit(c, tenantID) {
		return
	}
	if err := h.service.Delete(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// canEdit allows admins, and teachers only for homework they posted.
func (h *HomeworkHandler) canEdit(c *gin.Context, tenantID string) bool {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return false
	}
	if claims.Role == models.RoleAdmin || claims.Role == models.RoleSuperAdmin {
		return true
	}
	detail, err := h.service.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return false
	}
	if detail.AssignedBy != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only the teacher who posted this homework may change it"))
		return false
	}
	return true
}
