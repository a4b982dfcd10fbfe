package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/service"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/response"
)

// FeeCatalogHandler handles fee frequency and category catalog endpoints.
type FeeCatalogHandler struct {
	service *service.FeeCatalogService
}

// NewFeeCatalogHandler creates a new handler.
func NewFeeCatalogHandler(svc *service.FeeCatalogService) *FeeCatalogHandler {
	return &FeeCatalogHandler{service: svc}
}

// ListFrequencies godoc
// @Summary List fee frequencies
// @Tags FeeCatalog
// @Produce json
// @Param active query bool false "Active only"
// @Success 200 {object} response.Envelope
// @Router /fees/frequencies [get]
func (h *FeeCatalogHandler) ListFrequencies(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	items, err := h.service.ListFrequencies(c.Request.Context(), tenantID, c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// InitFrequencies godoc
// @Summary Seed the default fee frequencies
// @Description Inserts the standard set, skipping codes that already exist
// @Tags FeeCatalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/frequencies/init [post]
func (h *FeeCatalogHandler) InitFrequencies(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	created, err := h.service.InitDefaultFrequencies(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"created": created}, nil)
}

// CreateFrequency godoc
// @Summary Create a fee frequency
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param payload body service.CreateFrequencyRequest true "Frequency payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/frequencies [post]
func (h *FeeCatalogHandler) CreateFrequency(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateFrequencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid frequency payload"))
		return
	}
	item, err := h.service.CreateFrequency(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateFrequency godoc
// @Summary Update a fee frequency
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param id path string true "Frequency ID"
// @Param payload body service.UpdateFrequencyRequest true "Frequency payload"
// @Success 200 {object} response.Envelope
// @Router /fees/frequencies/{id} [put]
func (h *FeeCatalogHandler) UpdateFrequency(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.UpdateFrequencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid frequency payload"))
		return
	}
	item, err := h.service.UpdateFrequency(c.Request.Context(), tenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteFrequency godoc
// @Summary Deactivate a fee frequency
// @Description Fails when active fee structures still reference the frequency
// @Tags FeeCatalog
// @Produce json
// @Param id path string true "Frequency ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/frequencies/{id} [delete]
func (h *FeeCatalogHandler) DeleteFrequency(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if err := h.service.DeleteFrequency(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCategories godoc
// @Summary List fee categories
// @Tags FeeCatalog
// @Produce json
// @Param active query bool false "Active only"
// @Success 200 {object} response.Envelope
// @Router /fees/categories [get]
func (h *FeeCatalogHandler) ListCategories(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	items, err := h.service.ListCategories(c.Request.Context(), tenantID, c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// InitCategories godoc
// @Summary Seed the default fee categories
// @Tags FeeCatalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/categories/init [post]
func (h *FeeCatalogHandler) InitCategories(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	created, err := h.service.InitDefaultCategories(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"created": created}, nil)
}

// CreateCategory godoc
// @Summary Create a fee category
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param payload body service.CreateCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/categories [post]
func (h *FeeCatalogHandler) CreateCategory(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	item, err := h.service.CreateCategory(c.Request.Context(), tenantID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// UpdateCategory godoc
// @Summary Update a fee category
// @Tags FeeCatalog
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body service.UpdateCategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /fees/categories/{id} [put]
func (h *FeeCatalogHandler) UpdateCategory(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	var req service.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	item, err := h.service.UpdateCategory(c.Request.Context(), tenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// DeleteCategory godoc
// @Summary Deactivate a fee category
// @Description Fails when active fee structures still reference the category
// @Tags FeeCatalog
// @Produce json
// @Param id path string true "Category ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/categories/{id} [delete]
func (h *FeeCatalogHandler) DeleteCategory(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
