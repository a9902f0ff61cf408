package handler

import (
	"net/http"
	"strconv"

	"laundry/internal/middleware"
	"laundry/internal/model"
	"laundry/internal/service"
	"laundry/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves branches, service types and garment categories.
type CatalogHandler struct {
	catalogService service.CatalogService
	auth           *middleware.Auth
}

func NewCatalogHandler(catalogService service.CatalogService, auth *middleware.Auth) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, auth: auth}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequireRole()
	write := h.auth.RequireRole(model.RoleAdmin, model.RoleManager)

	branches := router.Group("/api/branches")
	{
		branches.GET("", read, h.ListBranches)
		branches.POST("", write, h.CreateBranch)
		branches.PUT("/:id", write, h.UpdateBranch)
		branches.DELETE("/:id", write, h.DeleteBranch)
	}

	serviceTypes := router.Group("/api/service-types")
	{
		serviceTypes.GET("", read, h.ListServiceTypes)
		serviceTypes.POST("", write, h.CreateServiceType)
		serviceTypes.PUT("/:id", write, h.UpdateServiceType)
		serviceTypes.DELETE("/:id", write, h.DeleteServiceType)
	}

	categories := router.Group("/api/categories")
	{
		categories.GET("", read, h.ListCategories)
		categories.POST("", write, h.CreateCategory)
		categories.PUT("/:id", write, h.UpdateCategory)
		categories.DELETE("/:id", write, h.DeleteCategory)
	}
}

func activeOnly(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	return v
}

// ListBranches godoc
// @Summary      List branches
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        active  query     bool  false  "Only active branches"
// @Success      200     {object}  response.Response{data=[]model.Branch}
// @Router       /api/branches [get]
func (h *CatalogHandler) ListBranches(c *gin.Context) {
	branches, err := h.catalogService.ListBranches(c.Request.Context(), activeOnly(c))
	if err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branches))
}

// CreateBranch godoc
// @Summary      Create branch
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.BranchRequest  true  "Branch"
// @Success      201      {object}  response.Response{data=model.Branch}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/branches [post]
func (h *CatalogHandler) CreateBranch(c *gin.Context) {
	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	branch, err := h.catalogService.CreateBranch(c.Request.Context(), req)
	if err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, branch))
}

// UpdateBranch godoc
// @Summary      Update branch
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Branch ID"
// @Param        payload  body      service.BranchRequest  true  "Branch"
// @Success      200      {object}  response.Response{data=model.Branch}
// @Failure      404      {object}  response.Response
// @Router       /api/branches/{id} [put]
func (h *CatalogHandler) UpdateBranch(c *gin.Context) {
	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	branch, err := h.catalogService.UpdateBranch(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, branch))
}

// DeleteBranch godoc
// @Summary      Delete branch
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Branch ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/branches/{id} [delete]
func (h *CatalogHandler) DeleteBranch(c *gin.Context) {
	if err := h.catalogService.DeleteBranch(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Branch deleted successfully"))
}

// ListServiceTypes godoc
// @Summary      List service types
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        active  query     bool  false  "Only active service types"
// @Success      200     {object}  response.Response{data=[]model.ServiceType}
// @Router       /api/service-types [get]
func (h *CatalogHandler) ListServiceTypes(c *gin.Context) {
	types, err := h.catalogService.ListServiceTypes(c.Request.Context(), activeOnly(c))
	if err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, types))
}

// CreateServiceType godoc
// @Summary      Create service type
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ServiceTypeRequest  true  "Service type"
// @Success      201      {object}  response.Response{data=model.ServiceType}
// @Failure      400      {object}  response.Response
// @Router       /api/service-types [post]
func (h *CatalogHandler) CreateServiceType(c *gin.Context) {
	var req service.ServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	st, err := h.catalogService.CreateServiceType(c.Request.Context(), req)
	if err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, st))
}

// UpdateServiceType godoc
// @Summary      Update service type
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Service type ID"
// @Param        payload  body      service.ServiceTypeRequest  true  "Service type"
// @Success      200      {object}  response.Response{data=model.ServiceType}
// @Failure      404      {object}  response.Response
// @Router       /api/service-types/{id} [put]
func (h *CatalogHandler) UpdateServiceType(c *gin.Context) {
	var req service.ServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	st, err := h.catalogService.UpdateServiceType(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, st))
}

// DeleteServiceType godoc
// @Summary      Delete service type
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Service type ID"
// @Success      200  {object}  response.Response
// @Router       /api/service-types/{id} [delete]
func (h *CatalogHandler) DeleteServiceType(c *gin.Context) {
	if err := h.catalogService.DeleteServiceType(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Service type deleted successfully"))
}

// ListCategories godoc
// @Summary      List garment categories
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Category}
// @Router       /api/categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// CreateCategory godoc
// @Summary      Create garment category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CategoryRequest  true  "Category"
// @Success      201      {object}  response.Response{data=model.Category}
// @Failure      400      {object}  response.Response
// @Router       /api/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	cat, err := h.catalogService.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, cat))
}

// UpdateCategory godoc
// @Summary      Update garment category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Category ID"
// @Param        payload  body      service.CategoryRequest  true  "Category"
// @Success      200      {object}  response.Response{data=model.Category}
// @Router       /api/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	cat, err := h.catalogService.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cat))
}

// DeleteCategory godoc
// @Summary      Delete garment category
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Category ID"
// @Success      200  {object}  response.Response
// @Router       /api/categories/{id} [delete]
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.catalogService.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "catalog", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Category deleted successfully"))
}
