package handler

import (
	"net/http"

	"laundry/internal/apperror"
	"laundry/internal/middleware"
	"laundry/internal/model"
	"laundry/internal/service"
	"laundry/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InvoiceSettingsHandler struct {
	invoiceService service.InvoiceNumberService
	auth           *middleware.Auth
}

func NewInvoiceSettingsHandler(invoiceService service.InvoiceNumberService, auth *middleware.Auth) *InvoiceSettingsHandler {
	return &InvoiceSettingsHandler{invoiceService: invoiceService, auth: auth}
}

func (h *InvoiceSettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	write := h.auth.RequireRole(model.RoleAdmin, model.RoleManager)

	settings := router.Group("/api/invoice-settings", h.auth.RequireRole())
	{
		settings.GET("", h.ListSettings)
		settings.GET("/preview", h.Preview)
		settings.GET("/:id", h.GetSettings)
		settings.POST("", write, h.CreateSettings)
		settings.PUT("/:id", write, h.UpdateSettings)
		settings.PUT("/:id/default", write, h.SetDefault)
		settings.DELETE("/:id", write, h.DeleteSettings)
	}
}

// Preview godoc
// @Summary      Preview next invoice number
// @Description  Formats the next number without consuming the counter
// @Tags         invoice-settings
// @Produce      json
// @Security     BearerAuth
// @Param        settings_id  query     string  false  "Settings ID (default settings when omitted)"
// @Success      200          {object}  response.Response{data=map[string]string}
// @Failure      400          {object}  response.Response
// @Failure      404          {object}  response.Response
// @Router       /api/invoice-settings/preview [get]
func (h *InvoiceSettingsHandler) Preview(c *gin.Context) {
	var settingsID *uuid.UUID
	if raw := c.Query("settings_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Fail(http.StatusBadRequest, apperror.CodeValidationFailed,
				"Invalid settings_id", map[string]string{"settings_id": "uuid"}, nil))
			return
		}
		settingsID = &id
	}

	next, err := h.invoiceService.Preview(c.Request.Context(), settingsID)
	if err != nil {
		respondError(c, "invoice-settings", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"invoice_number": next}))
}

// ListSettings godoc
// @Summary      List invoice settings
// @Tags         invoice-settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.InvoiceSettingsResponse}
// @Router       /api/invoice-settings [get]
func (h *InvoiceSettingsHandler) ListSettings(c *gin.Context) {
	settings, err := h.invoiceService.ListSettings(c.Request.Context())
	if err != nil {
		respondError(c, "invoice-settings", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// GetSettings godoc
// @Summary      Get invoice settings
// @Tags         invoice-settings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Settings ID"
// @Success      200  {object}  response.Response{data=service.InvoiceSettingsResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoice-settings/{id} [get]
func (h *InvoiceSettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.invoiceService.GetSettings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "invoice-settings", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// CreateSettings godoc
// @Summary      Create invoice settings
// @Tags         invoice-settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.InvoiceSettingsRequest  true  "Settings"
// @Success      201      {object}  response.Response{data=service.InvoiceSettingsResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoice-settings [post]
func (h *InvoiceSettingsHandler) CreateSettings(c *gin.Context) {
	var req service.InvoiceSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	settings, err := h.invoiceService.CreateSettings(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		respondError(c, "invoice-settings", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, settings))
}

// UpdateSettings godoc
// @Summary      Update invoice settings
// @Description  The counter is kept unless current_counter is given
// @Tags         invoice-settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Settings ID"
// @Param        payload  body      service.InvoiceSettingsRequest  true  "Settings"
// @Success      200      {object}  response.Response{data=service.InvoiceSettingsResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/invoice-settings/{id} [put]
func (h *InvoiceSettingsHandler) UpdateSettings(c *gin.Context) {
	var req service.InvoiceSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	settings, err := h.invoiceService.UpdateSettings(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		respondError(c, "invoice-settings", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// SetDefault godoc
// @Summary      Make settings the default
// @Tags         invoice-settings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Settings ID"
// @Success      200  {object}  response.Response{data=service.InvoiceSettingsResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoice-settings/{id}/default [put]
func (h *InvoiceSettingsHandler) SetDefault(c *gin.Context) {
	settings, err := h.invoiceService.SetDefault(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		respondError(c, "invoice-settings", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// DeleteSettings godoc
// @Summary      Delete invoice settings
// @Description  The default settings cannot be deleted
// @Tags         invoice-settings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Settings ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoice-settings/{id} [delete]
func (h *InvoiceSettingsHandler) DeleteSettings(c *gin.Context) {
	if err := h.invoiceService.DeleteSettings(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		respondError(c, "invoice-settings", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Invoice settings deleted successfully"))
}
