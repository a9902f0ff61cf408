package handler

import (
	"net/http"

	"laundry/internal/middleware"
	"laundry/internal/model"
	"laundry/internal/service"
	"laundry/pkg/pagination"
	"laundry/pkg/response"

	"github.com/gin-gonic/gin"
)

const maxReceiptSize = 10 << 20

type ExpenseHandler struct {
	expenseService service.ExpenseService
	auth           *middleware.Auth
}

func NewExpenseHandler(expenseService service.ExpenseService, auth *middleware.Auth) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, auth: auth}
}

func (h *ExpenseHandler) RegisterRoutes(router *gin.RouterGroup) {
	expenses := router.Group("/api/expenses", h.auth.RequireRole(model.RoleAdmin, model.RoleManager))
	{
		expenses.GET("", h.GetExpenses)
		expenses.GET("/:id", h.GetExpense)
		expenses.POST("", h.CreateExpense)
		expenses.PUT("/:id", h.UpdateExpense)
		expenses.DELETE("/:id", h.DeleteExpense)
		expenses.POST("/:id/receipt", h.UploadReceipt)
	}
}

// GetExpenses returns a page of expense entries
// @Summary      List expenses
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        branch_id  query     string  false  "Branch ID"
// @Param        category   query     string  false  "Expense category"
// @Param        from       query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        to         query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 20)"
// @Success      200        {object}  response.Response{data=response.Page{items=[]service.ExpenseResponse}}
// @Router       /api/expenses [get]
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	from, ok := queryTime(c, "from", false)
	if !ok {
		return
	}
	to, ok := queryTime(c, "to", true)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	expenses, total, err := h.expenseService.GetExpenses(c.Request.Context(), service.ExpenseFilter{
		BranchID: c.Query("branch_id"),
		Category: c.Query("category"),
		From:     from,
		To:       to,
		Page:     p.Page,
		Limit:    p.Limit,
	})
	if err != nil {
		respondError(c, "expenses", err)
		return
	}

	c.JSON(http.StatusOK, response.Paged(http.StatusOK, expenses, total, p.Page, p.Limit))
}

// GetExpense godoc
// @Summary      Get expense
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Expense ID"
// @Success      200  {object}  response.Response{data=service.ExpenseResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/expenses/{id} [get]
func (h *ExpenseHandler) GetExpense(c *gin.Context) {
	expense, err := h.expenseService.GetExpense(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "expenses", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// CreateExpense handles expense creation
// @Summary      Create expense
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ExpenseRequest  true  "Expense"
// @Success      201      {object}  response.Response{data=service.ExpenseResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/expenses [post]
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	var req service.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	expense, err := h.expenseService.CreateExpense(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, "expenses", err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

// UpdateExpense godoc
// @Summary      Update expense
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Expense ID"
// @Param        payload  body      service.ExpenseRequest  true  "Expense"
// @Success      200      {object}  response.Response{data=service.ExpenseResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/expenses/{id} [put]
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	var req service.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	expense, err := h.expenseService.UpdateExpense(c.Request.Context(), c.Param("id"), currentUserID(c), req)
	if err != nil {
		respondError(c, "expenses", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}

// DeleteExpense godoc
// @Summary      Delete expense
// @Tags         expenses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Expense ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	if err := h.expenseService.DeleteExpense(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		respondError(c, "expenses", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Expense deleted successfully"))
}

// UploadReceipt stores a receipt file against the expense
// @Summary      Upload expense receipt
// @Description  Multipart upload to object storage. Returns 503 when storage is not configured.
// @Tags         expenses
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Expense ID"
// @Param        file  formData  file    true  "Receipt file"
// @Success      200   {object}  response.Response{data=service.ExpenseResponse}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Failure      503   {object}  response.Response
// @Router       /api/expenses/{id}/receipt [post]
func (h *ExpenseHandler) UploadReceipt(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Receipt file is required"))
		return
	}
	if fileHeader.Size > maxReceiptSize {
		c.JSON(http.StatusRequestEntityTooLarge, response.Error(http.StatusRequestEntityTooLarge, "Receipt file exceeds 10MB"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Unable to read receipt file"))
		return
	}
	defer file.Close()

	expense, err := h.expenseService.UploadReceipt(c.Request.Context(), c.Param("id"), currentUserID(c),
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(c, "expenses", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, expense))
}
