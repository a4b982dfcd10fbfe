package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/service"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/response"
)

// FeeStructureHandler handles fee structure endpoints.
type FeeStructureHandler struct {
	service *service.FeeStructureService
}

// NewFeeStructureHandler creates a new handler.
func NewFeeStructureHandler(svc *service.FeeStructureService) *FeeStructureHandler {
	return &FeeStructureHandler{service: svc}
}

// List godoc
// @Summary List fee structures
// @Tags FeeStructures
// @Produce json
// @Param academic_year query string false "Academic year (YYYY-YYYY)"
// @Param category_id query string false "Category filter"
// @Param class_id query string false "Class filter"
// @Param active query bool false "Active filter"
// @Success 200 {object} response.Envelope
// @Router /fees/structures [get]
func (h *FeeStructureHandler) List(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	filter := models.FeeStructureFilter{
		AcademicYear: c.Query("academic_year"),
		CategoryID:   c.Query("category_id"),
		ClassID:      c.Query("class_id"),
		Page:         page,
		PageSize:     size,
	}
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}
	items, pagination, err := h.service.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a fee structure
// @Tags FeeStructures
// @Produce json
// @Param id path string true "Structure ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/structures/{id} [get]
func (h *FeeStructureHandler) Get(c *gin.Context) {
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
// @Summary Create a fee structure
// @Description Validates the category and frequency references before insert
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Param payload body service.CreateFeeStructureRequest true "Structure payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fees/structures [post]
func (h *FeeStructureHandler) Create(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee structure payload"))
		return
	}
	detail, err := h.service.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Update a fee structure
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Param id path string true "Structure ID"
// @Param payload body service.UpdateFeeStructureRequest true "Structure payload"
// @Success 200 {object} response.Envelope
// @Router /fees/structures/{id} [put]
func (h *FeeStructureHandler) Update(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.UpdateFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fee structure payload"))
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
// @Summary Deactivate a fee structure
// @Tags FeeStructures
// @Produce json
// @Param id path string true "Structure ID"
// @Success 204 {object} response.Envelope
// @Router /fees/structures/{id} [delete]
func (h *FeeStructureHandler) Delete(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
