package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/service"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/response"
)

// NoteHandler handles teacher note endpoints.
type NoteHandler struct {
	service *service.NoteService
}

// NewNoteHandler creates a new handler.
func NewNoteHandler(svc *service.NoteService) *NoteHandler {
	return &NoteHandler{service: svc}
}

// List godoc
// @Summary List notes
// @Tags Notes
// @Produce json
// @Param class_id query string false "Class filter"
// @Param student_id query string false "Student filter"
// @Success 200 {object} response.Envelope
// @Router /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	items, pagination, err := h.service.List(c.Request.Context(), tenantID, c.Query("class_id"), c.Query("student_id"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
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
// @Summary Post a note to a class or student
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body service.CreateNoteRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	authorID := ""
	if claims != nil {
		authorID = claims.UserID
	}
	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), tenantID, authorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Edit a note
// @Description Only the author may edit a note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body service.UpdateNoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	actorID := ""
	if claims != nil {
		actorID = claims.UserID
	}
	var req service.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}
	detail, err := h.service.Update(c.Request.Context(), tenantID, c.Param("id"), actorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a note
// @Description The author or an admin may delete a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 204 {object} response.Envelope
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	actorID := ""
	isAdmin := false
	if claims != nil {
		actorID = claims.UserID
		isAdmin = claims.Role == models.RoleAdmin || claims.Role == models.RoleSuperAdmin
	}
	if err := h.service.Delete(c.Request.Context(), tenantID, c.Param("id"), actorID, isAdmin); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
