package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidyalink/vidyalink-api/internal/models"
	"github.com/vidyalink/vidyalink-api/internal/service"
	appErrors "github.com/vidyalink/vidyalink-api/pkg/errors"
	"github.com/vidyalink/vidyalink-api/pkg/response"
)

// TenantHandler exposes school onboarding and lifecycle endpoints. Every
// route behind this handler requires the super admin role.
type TenantHandler struct {
	service *service.TenantService
}

// NewTenantHandler creates a new handler.
func NewTenantHandler(svc *service.TenantService) *TenantHandler {
	return &TenantHandler{service: svc}
}

// List godoc
// @Summary List schools
// @Tags Tenants
// @Produce json
// @Param search query string false "Name or code search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.TenantFilter{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: size,
	}
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get one school
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tenants/{id} [get]
func (h *TenantHandler) Get(c *gin.Context) {
	tenant, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenant, nil)
}

// Onboard godoc
// @Summary Onboard a school
// @Description Creates the school and its first admin user atomically
// @Tags Tenants
// @Accept json
// @Produce json
// @Param payload body service.OnboardTenantRequest true "Onboarding payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tenants [post]
func (h *TenantHandler) Onboard(c *gin.Context) {
	var req service.OnboardTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tenant payload"))
		return
	}
	tenant, err := h.service.Onboard(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tenant)
}

// Update godoc
// @Summary Update a school profile
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param payload body service.UpdateTenantRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /tenants/{id} [put]
func (h *TenantHandler) Update(c *gin.Context) {
	var req service.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tenant payload"))
		return
	}
	tenant, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenant, nil)
}

// Deactivate godoc
// @Summary Deactivate a school
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant ID"
// @Success 204 {object} response.Envelope
// @Router /tenants/{id} [delete]
func (h *TenantHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
