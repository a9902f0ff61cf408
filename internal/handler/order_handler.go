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

// OrderHandler exposes order, payment and status endpoints.
type OrderHandler struct {
	orderService service.OrderService
	auth         *middleware.Auth
}

func NewOrderHandler(orderService service.OrderService, auth *middleware.Auth) *OrderHandler {
	return &OrderHandler{orderService: orderService, auth: auth}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/orders", h.auth.RequireRole())
	{
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.POST("", h.CreateOrder)
		orders.PUT("/:id", h.UpdateOrder)
		orders.DELETE("/:id", h.auth.RequireRole(model.RoleAdmin), h.DeleteOrder)

		orders.POST("/:id/payments", h.RecordPayment)
		orders.GET("/:id/payments", h.ListOrderPayments)
		orders.PATCH("/:id/status", h.UpdateStatus)
		orders.GET("/:id/history", h.GetHistory)
	}

	router.GET("/api/payments", h.auth.RequireRole(), h.ListPayments)
}

// ListOrders godoc
// @Summary      List orders
// @Description  Paginated orders, newest first
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        status          query     string  false  "Order status"
// @Param        payment_status  query     string  false  "PENDING, PARTIAL or PAID"
// @Param        branch_id       query     string  false  "Branch ID"
// @Param        customer_id     query     string  false  "Customer ID"
// @Param        search          query     string  false  "Invoice number or customer name"
// @Param        from            query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        to              query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Items per page (default 20)"
// @Success      200             {object}  response.Response{data=response.Page{items=[]service.OrderResponse}}
// @Failure      400             {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	from, ok := queryTime(c, "from", false)
	if !ok {
		return
	}
	to, ok := queryTime(c, "to", true)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), service.OrderFilter{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		BranchID:      c.Query("branch_id"),
		CustomerID:    c.Query("customer_id"),
		Search:        c.Query("search"),
		From:          from,
		To:            to,
		Page:          p.Page,
		Limit:         p.Limit,
	})
	if err != nil {
		respondError(c, "orders", err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, orders, total, p.Page, p.Limit))
}

// GetOrder godoc
// @Summary      Get order
// @Description  Order with customer, branch, items, payments and status history
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "orders", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CreateOrder godoc
// @Summary      Create order
// @Description  Resolves or creates the customer, allocates the invoice number, prices items server-side and records the first payment atomically
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrderRequest  true  "Order"
// @Success      201      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := h.orderService.CreateOrder(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		respondError(c, "orders", err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// UpdateOrder godoc
// @Summary      Update order
// @Description  Applies status, item, discount and payment changes in one transaction
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Order ID"
// @Param        payload  body      service.UpdateOrderRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := h.orderService.UpdateOrder(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		respondError(c, "orders", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// DeleteOrder godoc
// @Summary      Delete order
// @Description  Removes the order with its items, payments and history
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.orderService.DeleteOrder(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		respondError(c, "orders", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Order deleted successfully"))
}

// RecordPayment godoc
// @Summary      Record payment
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Order ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/orders/{id}/payments [post]
func (h *OrderHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := h.orderService.RecordPayment(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		respondError(c, "orders", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ListOrderPayments godoc
// @Summary      List payments of an order
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id}/payments [get]
func (h *OrderHandler) ListOrderPayments(c *gin.Context) {
	payments, err := h.orderService.ListOrderPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "orders", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}

// UpdateStatus godoc
// @Summary      Change order status
// @Description  Writes a status history row when the status actually changes
// @Tags         orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Order ID"
// @Param        payload  body      service.UpdateStatusRequest  true  "Status"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		respondError(c, "orders", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// GetHistory godoc
// @Summary      Order status history
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=[]service.StatusHistoryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id}/history [get]
func (h *OrderHandler) GetHistory(c *gin.Context) {
	history, err := h.orderService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "orders", err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// ListPayments godoc
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        payment_method  query     string  false  "CASH, CARD, BANK_TRANSFER or MOBILE_MONEY"
// @Param        branch_id       query     string  false  "Branch ID"
// @Param        from            query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        to              query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        page            query     int     false  "Page number (default 1)"
// @Param        limit           query     int     false  "Items per page (default 20)"
// @Success      200             {object}  response.Response{data=response.Page{items=[]service.PaymentResponse}}
// @Router       /api/payments [get]
func (h *OrderHandler) ListPayments(c *gin.Context) {
	from, ok := queryTime(c, "from", false)
	if !ok {
		return
	}
	to, ok := queryTime(c, "to", true)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	payments, total, err := h.orderService.ListPayments(c.Request.Context(), service.PaymentFilter{
		PaymentMethod: c.Query("payment_method"),
		BranchID:      c.Query("branch_id"),
		From:          from,
		To:            to,
		Page:          p.Page,
		Limit:         p.Limit,
	})
	if err != nil {
		respondError(c, "payments", err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, payments, total, p.Page, p.Limit))
}
