package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"laundry/internal/middleware"
	"laundry/internal/model"
	"laundry/internal/service"
	"laundry/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DashboardHandler struct {
	dashboardService service.DashboardService
	auth             *middleware.Auth
	clock            service.Clock
}

func NewDashboardHandler(dashboardService service.DashboardService, auth *middleware.Auth, clock service.Clock) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, auth: auth, clock: clock}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	dashboard := router.Group("/api/dashboard", h.auth.RequireRole(model.RoleAdmin, model.RoleManager))
	{
		dashboard.GET("/summary", h.GetSummary)
		dashboard.GET("/revenue", h.GetRevenue)
		dashboard.GET("/top-services", h.GetTopServices)
		dashboard.GET("/export", h.Export)
	}
}

// dashboardQuery reads from, to and branch_id. Without from the range
// starts at the first of the current month.
func dashboardQuery(c *gin.Context) (service.DashboardQuery, bool) {
	from, ok := queryTime(c, "from", false)
	if !ok {
		return service.DashboardQuery{}, false
	}
	to, ok := queryTime(c, "to", true)
	if !ok {
		return service.DashboardQuery{}, false
	}
	return service.DashboardQuery{From: from, To: to, BranchID: c.Query("branch_id")}, true
}

// @Summary      Dashboard summary
// @Description  Revenue (payments received), expenses, net income, order counts by status and payment status, outstanding balance and average order value
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        from       query     string  false  "RFC3339 or YYYY-MM-DD (default first of month)"
// @Param        to         query     string  false  "RFC3339 or YYYY-MM-DD (default now)"
// @Param        branch_id  query     string  false  "Branch ID"
// @Success      200        {object}  response.Response{data=model.DashboardSummary}
// @Failure      400        {object}  response.Response
// @Router       /api/dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	q, ok := dashboardQuery(c)
	if !ok {
		return
	}
	summary, err := h.dashboardService.Summary(c.Request.Context(), q)
	if err != nil {
		respondError(c, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// @Summary      Daily revenue and expenses
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        from       query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        to         query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        branch_id  query     string  false  "Branch ID"
// @Success      200        {object}  response.Response{data=[]model.DailyAmount}
// @Router       /api/dashboard/revenue [get]
func (h *DashboardHandler) GetRevenue(c *gin.Context) {
	q, ok := dashboardQuery(c)
	if !ok {
		return
	}
	rows, err := h.dashboardService.Revenue(c.Request.Context(), q)
	if err != nil {
		respondError(c, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// @Summary      Top service types
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        from       query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        to         query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        branch_id  query     string  false  "Branch ID"
// @Param        limit      query     int     false  "Number of rows (default 5)"
// @Success      200        {object}  response.Response{data=[]model.ServiceRanking}
// @Router       /api/dashboard/top-services [get]
func (h *DashboardHandler) GetTopServices(c *gin.Context) {
	q, ok := dashboardQuery(c)
	if !ok {
		return
	}
	rows, err := h.dashboardService.TopServices(c.Request.Context(), q, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// @Summary      Export orders and expenses
// @Description  Spreadsheet with Orders and Expenses sheets for the range
// @Tags         dashboard
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        from       query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        to         query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        branch_id  query     string  false  "Branch ID"
// @Success      200        {file}    file
// @Failure      400        {object}  response.Response
// @Router       /api/dashboard/export [get]
func (h *DashboardHandler) Export(c *gin.Context) {
	q, ok := dashboardQuery(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.dashboardService.Export(c.Request.Context(), q, &buf); err != nil {
		respondError(c, "dashboard", err)
		return
	}

	filename := fmt.Sprintf("laundry-report-%s.xlsx", h.clock().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
