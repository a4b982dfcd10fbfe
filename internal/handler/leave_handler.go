package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/service"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/response"
)

// LeaveHandler handles leave request endpoints.
type LeaveHandler struct {
	service *service.LeaveService
}

// NewLeaveHandler creates a new handler.
func NewLeaveHandler(svc *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// List godoc
// @Summary List leave requests
// @Tags Leave
// @Produce json
// @Param student_id query string false "Student filter"
// @Param class_id query string false "Class filter"
// @Param status query string false "Status filter (PENDING, APPROVED, REJECTED)"
// @Success 200 {object} response.Envelope
// @Router /leave [get]
func (h *LeaveHandler) List(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	filter := models.LeaveFilter{
		StudentID: c.Query("student_id"),
		ClassID:   c.Query("class_id"),
		Status:    models.LeaveStatus(c.Query("status")),
		Page:      page,
		PageSize:  size,
	}
	items, pagination, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a leave request
// @Tags Leave
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leave/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
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

// Apply godoc
// @Summary Apply for leave
// @Description Parents may only apply on behalf of their own children
// @Tags Leave
// @Accept json
// @Produce json
// @Param payload body service.ApplyLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /leave [post]
func (h *LeaveHandler) Apply(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ApplyLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}
	detail, err := h.service.Apply(c.Request.Context(), tenantID, claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Decide godoc
// @Summary Approve or reject a leave request
// @Tags Leave
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body service.DecideLeaveRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave/{id}/decision [put]
func (h *LeaveHandler) Decide(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	decidedBy := ""
	if claims != nil {
		decidedBy = claims.UserID
	}
	var req service.DecideLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	detail, err := h.service.Decide(c.Request.Context(), tenantID, c.Param("id"), decidedBy, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
