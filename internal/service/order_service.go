package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"laundry/internal/apperror"
	"laundry/internal/billing"
	"laundry/internal/cache"
	"laundry/internal/lock"
	"laundry/internal/model"
	"laundry/internal/repository"
	"laundry/pkg/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Event names published after an order commit. They mirror the websocket
// package constants without importing it.
const (
	eventOrderCreated       = "order.created"
	eventOrderUpdated       = "order.updated"
	eventOrderDeleted       = "order.deleted"
	eventOrderStatusChanged = "order.status_changed"
	eventPaymentRecorded    = "payment.recorded"
)

// dashboardCacheGroup is dropped whenever money or order state changes.
const dashboardCacheGroup = "dashboard"

// --- DTOs ---

type OrderItemInput struct {
	ID            string `json:"id" binding:"omitempty,uuid"`
	ServiceTypeID string `json:"service_type_id" binding:"required,uuid"`
	CategoryID    string `json:"category_id" binding:"omitempty,uuid"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	UnitPrice     string `json:"unit_price" binding:"required,decimal_gte0"`
	Total         string `json:"total"` // ignored, recomputed from quantity and unit price
	Size          string `json:"size" binding:"max=50"`
	Notes         string `json:"notes"`
}

type CreateOrderRequest struct {
	CustomerID      string `json:"customer_id" binding:"omitempty,uuid"`
	CustomerName    string `json:"customer_name" binding:"max=255"`
	CustomerEmail   string `json:"customer_email" binding:"omitempty,email"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`

	BranchID string           `json:"branch_id"`
	Items    []OrderItemInput `json:"items" binding:"required,min=1,dive"`

	Discount      string `json:"discount" binding:"omitempty,decimal_gte0"`
	AmountPaid    string `json:"amount_paid" binding:"omitempty,decimal_gte0"`
	PaymentMethod string `json:"payment_method" binding:"omitempty,oneof=CASH CARD BANK_TRANSFER MOBILE_MONEY"`
	TransactionID string `json:"transaction_id" binding:"max=100"`

	Notes                string     `json:"notes"`
	CustomInvoiceNumber  string     `json:"custom_invoice_number" binding:"max=50"`
	InvoiceSettingsID    string     `json:"invoice_settings_id" binding:"omitempty,uuid"`
	OrderDate            *time.Time `json:"order_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
}

// UpdateOrderRequest changes only what it carries. Leaving Items nil keeps
// the current line items; a payment without items is a payment-only update.
type UpdateOrderRequest struct {
	CustomerID string           `json:"customer_id" binding:"omitempty,uuid"`
	BranchID   string           `json:"branch_id" binding:"omitempty,uuid"`
	Items      []OrderItemInput `json:"items" binding:"omitempty,min=1,dive"`

	Discount      *string `json:"discount" binding:"omitempty,decimal_gte0"`
	AmountPaid    string  `json:"amount_paid" binding:"omitempty,decimal_gte0"`
	PaymentMethod string  `json:"payment_method" binding:"omitempty,oneof=CASH CARD BANK_TRANSFER MOBILE_MONEY"`
	TransactionID string  `json:"transaction_id" binding:"max=100"`

	Status     string `json:"status" binding:"omitempty,oneof=PENDING PROCESSING READY_FOR_PICKUP COMPLETED CANCELLED"`
	StatusNote string `json:"status_note"`

	Notes                *string    `json:"notes"`
	OrderDate            *time.Time `json:"order_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
}

type RecordPaymentRequest struct {
	Amount        string `json:"amount" binding:"required,decimal_gte0"`
	PaymentMethod string `json:"payment_method" binding:"omitempty,oneof=CASH CARD BANK_TRANSFER MOBILE_MONEY"`
	TransactionID string `json:"transaction_id" binding:"max=100"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING PROCESSING READY_FOR_PICKUP COMPLETED CANCELLED"`
	Note   string `json:"note"`
}

type OrderFilter struct {
	Status        string
	PaymentStatus string
	BranchID      string
	CustomerID    string
	Search        string
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

type PaymentFilter struct {
	PaymentMethod string
	BranchID      string
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

type OrderItemResponse struct {
	ID              string  `json:"id"`
	ServiceTypeID   string  `json:"service_type_id"`
	ServiceTypeName string  `json:"service_type_name,omitempty"`
	CategoryID      *string `json:"category_id"`
	CategoryName    string  `json:"category_name,omitempty"`
	Quantity        int     `json:"quantity"`
	UnitPrice       string  `json:"unit_price"`
	Subtotal        string  `json:"subtotal"`
	Size            string  `json:"size"`
	Notes           string  `json:"notes"`
}

type PaymentResponse struct {
	ID            string  `json:"id"`
	OrderID       string  `json:"order_id"`
	Amount        string  `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"`
	TransactionID string  `json:"transaction_id"`
	ReceivedBy    *string `json:"received_by"`
	CreatedAt     string  `json:"created_at"`
}

type StatusHistoryResponse struct {
	ID             string  `json:"id"`
	PreviousStatus string  `json:"previous_status"`
	NewStatus      string  `json:"new_status"`
	ChangedBy      *string `json:"changed_by"`
	Note           string  `json:"note"`
	CreatedAt      string  `json:"created_at"`
}

type OrderResponse struct {
	ID                   string                  `json:"id"`
	InvoiceNumber        string                  `json:"invoice_number"`
	CustomerID           string                  `json:"customer_id"`
	CustomerName         string                  `json:"customer_name,omitempty"`
	CustomerPhone        string                  `json:"customer_phone,omitempty"`
	BranchID             string                  `json:"branch_id"`
	BranchName           string                  `json:"branch_name,omitempty"`
	Status               string                  `json:"status"`
	PaymentStatus        string                  `json:"payment_status"`
	Subtotal             string                  `json:"subtotal"`
	Discount             string                  `json:"discount"`
	TotalAmount          string                  `json:"total_amount"`
	AmountPaid           string                  `json:"amount_paid"`
	AmountDue            string                  `json:"amount_due"`
	Notes                string                  `json:"notes"`
	OrderDate            string                  `json:"order_date"`
	ExpectedDeliveryDate *string                 `json:"expected_delivery_date"`
	Items                []OrderItemResponse     `json:"items,omitempty"`
	Payments             []PaymentResponse       `json:"payments,omitempty"`
	StatusHistory        []StatusHistoryResponse `json:"status_history,omitempty"`
	CreatedAt            string                  `json:"created_at"`
	UpdatedAt            string                  `json:"updated_at"`
}

// --- Interface ---

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest, actorID string) (OrderResponse, error)
	UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest, actorID string) (OrderResponse, error)
	RecordPayment(ctx context.Context, id string, req RecordPaymentRequest, actorID string) (OrderResponse, error)
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest, actorID string) (OrderResponse, error)
	DeleteOrder(ctx context.Context, id string, actorID string) error

	GetOrder(ctx context.Context, id string) (OrderResponse, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]OrderResponse, int64, error)
	GetHistory(ctx context.Context, id string) ([]StatusHistoryResponse, error)
	ListOrderPayments(ctx context.Context, id string) ([]PaymentResponse, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error)
}

// OrderServiceDeps wires the order coordinator. Locker, Events, Cache and
// Clock are optional.
type OrderServiceDeps struct {
	Orders         repository.OrderRepository
	Payments       repository.PaymentRepository
	Customers      repository.CustomerRepository
	Branches       repository.BranchRepository
	ServiceTypes   repository.ServiceTypeRepository
	Categories     repository.CategoryRepository
	Audit          repository.AuditRepository
	TxManager      repository.TransactionManager
	InvoiceNumbers InvoiceNumberService
	Locker         lock.Locker
	Events         EventPublisher
	Cache          *cache.Cache
	Clock          Clock

	PhoneRegion       string
	StrictTransitions bool
}

type orderService struct {
	orders         repository.OrderRepository
	payments       repository.PaymentRepository
	customers      repository.CustomerRepository
	branches       repository.BranchRepository
	serviceTypes   repository.ServiceTypeRepository
	categories     repository.CategoryRepository
	audit          repository.AuditRepository
	txManager      repository.TransactionManager
	invoiceNumbers InvoiceNumberService
	locker         lock.Locker
	events         EventPublisher
	cache          *cache.Cache
	now            Clock

	phoneRegion       string
	strictTransitions bool
}

func NewOrderService(deps OrderServiceDeps) OrderService {
	s := &orderService{
		orders:            deps.Orders,
		payments:          deps.Payments,
		customers:         deps.Customers,
		branches:          deps.Branches,
		serviceTypes:      deps.ServiceTypes,
		categories:        deps.Categories,
		audit:             deps.Audit,
		txManager:         deps.TxManager,
		invoiceNumbers:    deps.InvoiceNumbers,
		locker:            deps.Locker,
		events:            deps.Events,
		cache:             deps.Cache,
		now:               deps.Clock,
		phoneRegion:       deps.PhoneRegion,
		strictTransitions: deps.StrictTransitions,
	}
	if s.locker == nil {
		s.locker = lock.NewNoopLocker()
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.now == nil {
		s.now = systemClock
	}
	if s.phoneRegion == "" {
		s.phoneRegion = "US"
	}
	return s
}

// parsedItem is an OrderItemInput with its ids and price resolved.
type parsedItem struct {
	id            *uuid.UUID
	serviceTypeID uuid.UUID
	categoryID    *uuid.UUID
	quantity      int
	unitPrice     decimal.Decimal
	size          string
	notes         string
}

func parseItems(inputs []OrderItemInput) ([]parsedItem, error) {
	items := make([]parsedItem, 0, len(inputs))
	fields := make(map[string]string)
	// One input per persisted row, otherwise totals count a row twice.
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	for i, in := range inputs {
		prefix := fmt.Sprintf("items[%d].", i)
		var item parsedItem

		if id, err := uuid.Parse(in.ServiceTypeID); err != nil {
			fields[prefix+"service_type_id"] = "uuid"
		} else {
			item.serviceTypeID = id
		}
		if in.CategoryID != "" {
			if id, err := uuid.Parse(in.CategoryID); err != nil {
				fields[prefix+"category_id"] = "uuid"
			} else {
				item.categoryID = &id
			}
		}
		if in.ID != "" {
			if id, err := uuid.Parse(in.ID); err != nil {
				fields[prefix+"id"] = "uuid"
			} else if _, dup := seen[id]; dup {
				fields[prefix+"id"] = "unique"
			} else {
				seen[id] = struct{}{}
				item.id = &id
			}
		}
		if in.Quantity < 1 {
			fields[prefix+"quantity"] = "min"
		}
		price, err := decimal.NewFromString(strings.TrimSpace(in.UnitPrice))
		if err != nil {
			fields[prefix+"unit_price"] = "decimal"
		} else if price.IsNegative() {
			fields[prefix+"unit_price"] = "decimal_gte0"
		}

		item.quantity = in.Quantity
		item.unitPrice = price
		item.size = in.Size
		item.notes = in.Notes
		items = append(items, item)
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(apperror.CodeValidationFailed, "invalid order items", fields)
	}
	return items, nil
}

func linesOf(items []parsedItem) []billing.Line {
	lines := make([]billing.Line, len(items))
	for i, it := range items {
		lines[i] = billing.Line{Quantity: it.quantity, UnitPrice: it.unitPrice}
	}
	return lines
}

func linesOfModels(items []model.OrderItem) []billing.Line {
	lines := make([]billing.Line, len(items))
	for i, it := range items {
		lines[i] = billing.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return lines
}

func checkDiscount(summary billing.Summary) error {
	if summary.Discount.GreaterThan(summary.Subtotal) {
		return apperror.Validation(apperror.CodeDiscountExceedsSubtotal,
			fmt.Sprintf("discount %s exceeds subtotal %s", money(summary.Discount), money(summary.Subtotal)),
			map[string]string{"discount": "lte_subtotal"})
	}
	return nil
}

func paymentMethodOrDefault(method string) string {
	if method == "" {
		return model.PaymentMethodCash
	}
	return method
}

// --- Create ---

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest, actorID string) (OrderResponse, error) {
	if strings.TrimSpace(req.BranchID) == "" {
		return OrderResponse{}, apperror.Validation(apperror.CodeBranchRequired, "branch is required", map[string]string{"branch_id": "required"})
	}
	branchID, err := parseID("branch_id", req.BranchID)
	if err != nil {
		return OrderResponse{}, err
	}
	settingsID, err := parseOptionalID("invoice_settings_id", req.InvoiceSettingsID)
	if err != nil {
		return OrderResponse{}, err
	}
	if len(req.Items) == 0 {
		return OrderResponse{}, apperror.Validation(apperror.CodeValidationFailed, "at least one item is required", map[string]string{"items": "min"})
	}
	items, err := parseItems(req.Items)
	if err != nil {
		return OrderResponse{}, err
	}
	discount, err := parseAmount("discount", req.Discount)
	if err != nil {
		return OrderResponse{}, err
	}
	amountPaid, err := parseAmount("amount_paid", req.AmountPaid)
	if err != nil {
		return OrderResponse{}, err
	}

	summary := billing.Compute(billing.Input{
		Items:                 linesOf(items),
		Discount:              discount,
		ExistingPaymentsTotal: decimal.Zero,
		NewPaymentAmount:      amountPaid,
	})
	if err := checkDiscount(summary); err != nil {
		return OrderResponse{}, err
	}

	actor := parseActor(actorID)
	now := s.now()
	orderDate := now
	if req.OrderDate != nil {
		orderDate = *req.OrderDate
	}

	manual := strings.TrimSpace(req.CustomInvoiceNumber)
	lockKey := InvoiceLockKey(settingsID)
	if manual != "" {
		lockKey = "invoice-number:" + manual
	}

	var order model.Order
	err = s.locker.WithLock(ctx, lockKey, func(ctx context.Context) error {
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			customer, err := s.resolveCustomer(txCtx, req, actor)
			if err != nil {
				return err
			}
			if err := s.ensureBranch(txCtx, branchID); err != nil {
				return err
			}
			if err := s.ensureCatalog(txCtx, items); err != nil {
				return err
			}

			number, usedSettings, err := s.invoiceNumbers.Allocate(txCtx, manual, settingsID)
			if err != nil {
				return err
			}

			order = model.Order{
				InvoiceNumber:        number,
				CustomerID:           customer.ID,
				BranchID:             branchID,
				Notes:                req.Notes,
				Status:               model.OrderStatusPending,
				PaymentStatus:        string(summary.PaymentStatus),
				TotalAmount:          summary.TotalAmount,
				AmountPaid:           summary.TotalPayments,
				AmountDue:            summary.AmountDue,
				Discount:             summary.Discount,
				OrderDate:            orderDate,
				ExpectedDeliveryDate: req.ExpectedDeliveryDate,
				InvoiceSettingsID:    usedSettings,
				CreatedBy:            actor,
			}
			if err := s.orders.Create(txCtx, &order); err != nil {
				return apperror.Internal("failed to create order", err)
			}

			rows := make([]model.OrderItem, 0, len(items))
			for _, it := range items {
				rows = append(rows, newOrderItem(order.ID, it))
			}
			if err := s.orders.CreateItems(txCtx, rows); err != nil {
				return apperror.Internal("failed to create order items", err)
			}

			if amountPaid.IsPositive() {
				payment := model.Payment{
					OrderID:       order.ID,
					Amount:        amountPaid,
					PaymentMethod: paymentMethodOrDefault(req.PaymentMethod),
					Status:        model.PaymentRecordCompleted,
					TransactionID: req.TransactionID,
					ReceivedBy:    actor,
				}
				if err := s.payments.Create(txCtx, &payment); err != nil {
					return apperror.Internal("failed to record initial payment", err)
				}
			}

			return recordAudit(txCtx, s.audit, actor, model.ActionCreateOrder, order.ID.String(), order.InvoiceNumber, map[string]any{
				"total_amount": money(order.TotalAmount),
				"amount_paid":  money(order.AmountPaid),
				"items":        len(rows),
			})
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	resp, err := s.reload(ctx, order.ID)
	if err != nil {
		return OrderResponse{}, err
	}
	s.afterCommit(ctx, eventOrderCreated, resp)
	if amountPaid.IsPositive() {
		s.events.Publish(eventPaymentRecorded, map[string]string{"order_id": resp.ID, "amount": money(amountPaid)})
	}
	return resp, nil
}

func newOrderItem(orderID uuid.UUID, it parsedItem) model.OrderItem {
	return model.OrderItem{
		OrderID:       orderID,
		ServiceTypeID: it.serviceTypeID,
		CategoryID:    it.categoryID,
		Quantity:      it.quantity,
		UnitPrice:     it.unitPrice,
		Subtotal:      billing.LineSubtotal(it.quantity, it.unitPrice),
		Size:          it.size,
		Notes:         it.notes,
	}
}

// resolveCustomer uses the explicit id, else finds by phone or creates from
// the inline fields.
func (s *orderService) resolveCustomer(ctx context.Context, req CreateOrderRequest, actor *uuid.UUID) (*model.Customer, error) {
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseID("customer_id", req.CustomerID)
		if err != nil {
			return nil, err
		}
		customer, err := s.customers.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.NotFound(apperror.CodeCustomerNotFound, "customer not found").WithDetail("customer_id", id.String())
			}
			return nil, apperror.Internal("failed to load customer", err)
		}
		return customer, nil
	}

	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.CustomerPhone)
	if name == "" && phone == "" {
		return nil, apperror.Validation(apperror.CodeCustomerInfoRequired, "select a customer or enter the customer's details",
			map[string]string{"customer_name": "required_without=customer_id"})
	}

	if phone != "" {
		normalized, err := validation.NormalizePhoneNumber(phone, s.phoneRegion)
		if err != nil {
			return nil, apperror.Validation(apperror.CodeValidationFailed, "invalid customer phone", map[string]string{"customer_phone": "phone"})
		}
		phone = normalized

		existing, err := s.customers.FindByPhone(ctx, phone)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Internal("failed to look up customer", err)
		}
	}

	if name == "" {
		return nil, apperror.Validation(apperror.CodeCustomerInfoRequired, "customer name is required for a new customer",
			map[string]string{"customer_name": "required"})
	}

	customer := &model.Customer{
		Name:    name,
		Email:   strings.TrimSpace(req.CustomerEmail),
		Phone:   phone,
		Address: strings.TrimSpace(req.CustomerAddress),
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperror.Internal("failed to create customer", err)
	}
	if err := recordAudit(ctx, s.audit, actor, model.ActionCreateCustomer, customer.ID.String(), customer.Name, nil); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *orderService) ensureBranch(ctx context.Context, branchID uuid.UUID) error {
	if _, err := s.branches.FindByID(ctx, branchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound(apperror.CodeBranchNotFound, "branch not found").WithDetail("branch_id", branchID.String())
		}
		return apperror.Internal("failed to load branch", err)
	}
	return nil
}

// ensureCatalog checks that every referenced service type and category exists.
func (s *orderService) ensureCatalog(ctx context.Context, items []parsedItem) error {
	var serviceIDs, categoryIDs []uuid.UUID
	for _, it := range items {
		if !slices.Contains(serviceIDs, it.serviceTypeID) {
			serviceIDs = append(serviceIDs, it.serviceTypeID)
		}
		if it.categoryID != nil && !slices.Contains(categoryIDs, *it.categoryID) {
			categoryIDs = append(categoryIDs, *it.categoryID)
		}
	}

	found, err := s.serviceTypes.FindByIDs(ctx, serviceIDs)
	if err != nil {
		return apperror.Internal("failed to load service types", err)
	}
	if missing := missingIDs(serviceIDs, found, func(st model.ServiceType) uuid.UUID { return st.ID }); len(missing) > 0 {
		return apperror.Conflict(apperror.CodeInvalidServiceType, "unknown service types: "+strings.Join(missing, ", ")).
			WithDetail("service_type_ids", missing)
	}

	if len(categoryIDs) == 0 {
		return nil
	}
	categories, err := s.categories.FindByIDs(ctx, categoryIDs)
	if err != nil {
		return apperror.Internal("failed to load categories", err)
	}
	if missing := missingIDs(categoryIDs, categories, func(c model.Category) uuid.UUID { return c.ID }); len(missing) > 0 {
		return apperror.Validation(apperror.CodeInvalidCategory, "unknown categories: "+strings.Join(missing, ", "),
			map[string]string{"category_id": "exists"}).
			WithDetail("category_ids", missing)
	}
	return nil
}

func missingIDs[T any](want []uuid.UUID, found []T, idOf func(T) uuid.UUID) []string {
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, f := range found {
		have[idOf(f)] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	return missing
}

// --- Update ---

type updateOutcome struct {
	statusChanged  bool
	previousStatus string
	payment        decimal.Decimal
}

func (s *orderService) UpdateOrder(ctx context.Context, id string, req UpdateOrderRequest, actorID string) (OrderResponse, error) {
	orderID, err := parseID("id", id)
	if err != nil {
		return OrderResponse{}, err
	}

	var items []parsedItem
	itemsSupplied := req.Items != nil
	if itemsSupplied {
		if len(req.Items) == 0 {
			return OrderResponse{}, apperror.Validation(apperror.CodeValidationFailed, "at least one item is required", map[string]string{"items": "min"})
		}
		if items, err = parseItems(req.Items); err != nil {
			return OrderResponse{}, err
		}
	}
	customerID, err := parseOptionalID("customer_id", req.CustomerID)
	if err != nil {
		return OrderResponse{}, err
	}
	branchID, err := parseOptionalID("branch_id", req.BranchID)
	if err != nil {
		return OrderResponse{}, err
	}
	var discount *decimal.Decimal
	if req.Discount != nil {
		d, err := parseAmount("discount", *req.Discount)
		if err != nil {
			return OrderResponse{}, err
		}
		discount = &d
	}
	newPayment, err := parseAmount("amount_paid", req.AmountPaid)
	if err != nil {
		return OrderResponse{}, err
	}
	if req.Status != "" && !isKnownStatus(req.Status) {
		return OrderResponse{}, checkTransition("", req.Status, false)
	}

	actor := parseActor(actorID)
	var outcome updateOutcome

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, orderID)
		if err != nil {
			return notFoundAs(err, apperror.CodeOrderNotFound, "order not found")
		}

		if customerID != nil && *customerID != order.CustomerID {
			if _, err := s.customers.FindByID(txCtx, *customerID); err != nil {
				return notFoundAs(err, apperror.CodeCustomerNotFound, "customer not found")
			}
			order.CustomerID = *customerID
		}
		if branchID != nil && *branchID != order.BranchID {
			if err := s.ensureBranch(txCtx, *branchID); err != nil {
				return err
			}
			order.BranchID = *branchID
		}

		var lines []billing.Line
		if itemsSupplied {
			if err := s.ensureCatalog(txCtx, items); err != nil {
				return err
			}
			lines = linesOf(items)
		} else {
			current, err := s.orders.ListItems(txCtx, orderID)
			if err != nil {
				return apperror.Internal("failed to load order items", err)
			}
			lines = linesOfModels(current)
		}

		existingPayments, err := s.payments.SumByOrder(txCtx, orderID)
		if err != nil {
			return apperror.Internal("failed to sum payments", err)
		}

		orderDiscount := order.Discount
		if discount != nil {
			orderDiscount = *discount
		}
		summary := billing.Compute(billing.Input{
			Items:                 lines,
			Discount:              orderDiscount,
			ExistingPaymentsTotal: existingPayments,
			NewPaymentAmount:      newPayment,
		})
		if discount != nil || itemsSupplied {
			if err := checkDiscount(summary); err != nil {
				return err
			}
		}

		if req.Status != "" && req.Status != order.Status {
			if err := checkTransition(order.Status, req.Status, s.strictTransitions); err != nil {
				return err
			}
			outcome.statusChanged = true
			outcome.previousStatus = order.Status
			order.Status = req.Status
		}

		order.Discount = summary.Discount
		order.TotalAmount = summary.TotalAmount
		order.AmountPaid = summary.TotalPayments
		order.AmountDue = summary.AmountDue
		order.PaymentStatus = string(summary.PaymentStatus)
		if req.Notes != nil {
			order.Notes = *req.Notes
		}
		if req.OrderDate != nil {
			order.OrderDate = *req.OrderDate
		}
		if req.ExpectedDeliveryDate != nil {
			order.ExpectedDeliveryDate = req.ExpectedDeliveryDate
		}

		if err := s.orders.Update(txCtx, order); err != nil {
			return apperror.Internal("failed to update order", err)
		}

		if outcome.statusChanged {
			if err := s.orders.AddStatusHistory(txCtx, &model.OrderStatusHistory{
				OrderID:        order.ID,
				PreviousStatus: outcome.previousStatus,
				NewStatus:      order.Status,
				ChangedBy:      actor,
				Note:           req.StatusNote,
			}); err != nil {
				return apperror.Internal("failed to record status history", err)
			}
		}

		if itemsSupplied {
			if err := s.reconcileItems(txCtx, order.ID, items); err != nil {
				return err
			}
		}

		if newPayment.IsPositive() {
			if err := s.payments.Create(txCtx, &model.Payment{
				OrderID:       order.ID,
				Amount:        newPayment,
				PaymentMethod: paymentMethodOrDefault(req.PaymentMethod),
				Status:        model.PaymentRecordCompleted,
				TransactionID: req.TransactionID,
				ReceivedBy:    actor,
			}); err != nil {
				return apperror.Internal("failed to record payment", err)
			}
			outcome.payment = newPayment
		}

		return recordAudit(txCtx, s.audit, actor, updateAction(itemsSupplied, outcome), order.ID.String(), order.InvoiceNumber, map[string]any{
			"status":         order.Status,
			"total_amount":   money(order.TotalAmount),
			"amount_paid":    money(order.AmountPaid),
			"payment_status": order.PaymentStatus,
		})
	})
	if err != nil {
		return OrderResponse{}, wrapUpdateError(err)
	}

	resp, err := s.reload(ctx, orderID)
	if err != nil {
		return OrderResponse{}, err
	}
	s.afterCommit(ctx, eventOrderUpdated, resp)
	if outcome.statusChanged {
		s.events.Publish(eventOrderStatusChanged, map[string]string{
			"order_id":        resp.ID,
			"previous_status": outcome.previousStatus,
			"status":          resp.Status,
		})
	}
	if outcome.payment.IsPositive() {
		s.events.Publish(eventPaymentRecorded, map[string]string{"order_id": resp.ID, "amount": money(outcome.payment)})
	}
	return resp, nil
}

func updateAction(itemsSupplied bool, outcome updateOutcome) string {
	switch {
	case itemsSupplied:
		return model.ActionUpdateOrder
	case outcome.payment.IsPositive():
		return model.ActionRecordPayment
	case outcome.statusChanged:
		return model.ActionChangeOrderStatus
	default:
		return model.ActionUpdateOrder
	}
}

// wrapUpdateError marks a rolled back update. Lookups that fail before any
// write keep their own kind so clients still get a 404.
func wrapUpdateError(err error) error {
	if apperror.KindOf(err) == apperror.KindNotFound && apperror.IsCode(err, apperror.CodeOrderNotFound) {
		return err
	}
	return apperror.Transaction(err)
}

// reconcileItems applies the supplied item set by identity: known ids are
// updated in place, new entries inserted, omitted rows deleted.
func (s *orderService) reconcileItems(ctx context.Context, orderID uuid.UUID, items []parsedItem) error {
	current, err := s.orders.ListItems(ctx, orderID)
	if err != nil {
		return apperror.Internal("failed to load order items", err)
	}
	byID := make(map[uuid.UUID]model.OrderItem, len(current))
	for _, it := range current {
		byID[it.ID] = it
	}

	var inserts []model.OrderItem
	kept := make(map[uuid.UUID]struct{}, len(items))
	for _, it := range items {
		if it.id == nil {
			inserts = append(inserts, newOrderItem(orderID, it))
			continue
		}
		existing, ok := byID[*it.id]
		if !ok {
			return apperror.NotFound(apperror.CodeOrderItemNotFound, "order item does not belong to this order").
				WithDetail("item_id", it.id.String())
		}
		kept[existing.ID] = struct{}{}

		updated := newOrderItem(orderID, it)
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		if err := s.orders.UpdateItem(ctx, &updated); err != nil {
			return apperror.Internal("failed to update order item", err)
		}
	}

	var removed []uuid.UUID
	for _, it := range current {
		if _, ok := kept[it.ID]; !ok {
			removed = append(removed, it.ID)
		}
	}
	if err := s.orders.DeleteItems(ctx, removed); err != nil {
		return apperror.Internal("failed to delete order items", err)
	}
	if err := s.orders.CreateItems(ctx, inserts); err != nil {
		return apperror.Internal("failed to create order items", err)
	}
	return nil
}

func (s *orderService) RecordPayment(ctx context.Context, id string, req RecordPaymentRequest, actorID string) (OrderResponse, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return OrderResponse{}, err
	}
	if !amount.IsPositive() {
		return OrderResponse{}, apperror.Validation(apperror.CodeValidationFailed, "payment amount must be greater than zero", map[string]string{"amount": "gt"})
	}
	return s.UpdateOrder(ctx, id, UpdateOrderRequest{
		AmountPaid:    req.Amount,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
	}, actorID)
}

func (s *orderService) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest, actorID string) (OrderResponse, error) {
	return s.UpdateOrder(ctx, id, UpdateOrderRequest{Status: req.Status, StatusNote: req.Note}, actorID)
}

func (s *orderService) DeleteOrder(ctx context.Context, id string, actorID string) error {
	orderID, err := parseID("id", id)
	if err != nil {
		return err
	}

	var invoiceNumber string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orders.FindByID(txCtx, orderID)
		if err != nil {
			return notFoundAs(err, apperror.CodeOrderNotFound, "order not found")
		}
		invoiceNumber = order.InvoiceNumber
		if err := s.orders.Delete(txCtx, orderID); err != nil {
			return apperror.Internal("failed to delete order", err)
		}
		return recordAudit(txCtx, s.audit, parseActor(actorID), model.ActionDeleteOrder, orderID.String(), invoiceNumber, nil)
	})
	if err != nil {
		return err
	}

	s.afterCommit(ctx, eventOrderDeleted, map[string]string{"id": orderID.String(), "invoice_number": invoiceNumber})
	return nil
}

// --- Queries ---

func (s *orderService) GetOrder(ctx context.Context, id string) (OrderResponse, error) {
	orderID, err := parseID("id", id)
	if err != nil {
		return OrderResponse{}, err
	}
	return s.reload(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter) ([]OrderResponse, int64, error) {
	branchID, err := parseOptionalID("branch_id", filter.BranchID)
	if err != nil {
		return nil, 0, err
	}
	customerID, err := parseOptionalID("customer_id", filter.CustomerID)
	if err != nil {
		return nil, 0, err
	}

	orders, total, err := s.orders.List(ctx, repository.OrderListFilter{
		Page:          repository.Page{Page: filter.Page, Limit: filter.Limit},
		Status:        filter.Status,
		PaymentStatus: filter.PaymentStatus,
		BranchID:      branchID,
		CustomerID:    customerID,
		Search:        strings.TrimSpace(filter.Search),
		From:          filter.From,
		To:            filter.To,
	})
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch orders", err)
	}

	result := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, toOrderResponse(o))
	}
	return result, total, nil
}

func (s *orderService) GetHistory(ctx context.Context, id string) ([]StatusHistoryResponse, error) {
	orderID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, notFoundAs(err, apperror.CodeOrderNotFound, "order not found")
	}
	entries, err := s.orders.ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, apperror.Internal("failed to load status history", err)
	}
	res := make([]StatusHistoryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toStatusHistoryResponse(e))
	}
	return res, nil
}

func (s *orderService) ListOrderPayments(ctx context.Context, id string) ([]PaymentResponse, error) {
	orderID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, notFoundAs(err, apperror.CodeOrderNotFound, "order not found")
	}
	payments, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperror.Internal("failed to load payments", err)
	}
	res := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		res = append(res, toPaymentResponse(p))
	}
	return res, nil
}

func (s *orderService) ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentResponse, int64, error) {
	branchID, err := parseOptionalID("branch_id", filter.BranchID)
	if err != nil {
		return nil, 0, err
	}
	payments, total, err := s.payments.List(ctx, repository.PaymentListFilter{
		Page:          repository.Page{Page: filter.Page, Limit: filter.Limit},
		PaymentMethod: filter.PaymentMethod,
		BranchID:      branchID,
		From:          filter.From,
		To:            filter.To,
	})
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch payments", err)
	}
	res := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		res = append(res, toPaymentResponse(p))
	}
	return res, total, nil
}

func (s *orderService) reload(ctx context.Context, orderID uuid.UUID) (OrderResponse, error) {
	order, err := s.orders.FindByIDWithRelations(ctx, orderID)
	if err != nil {
		return OrderResponse{}, notFoundAs(err, apperror.CodeOrderNotFound, "order not found")
	}
	return toOrderResponse(*order), nil
}

// afterCommit publishes the event and drops cached dashboard figures.
func (s *orderService) afterCommit(ctx context.Context, event string, data any) {
	s.events.Publish(event, data)
	if err := s.cache.Invalidate(ctx, dashboardCacheGroup); err != nil {
		logSoftError("orderService", event, err)
	}
}

// --- Mapping ---

func toOrderResponse(o model.Order) OrderResponse {
	resp := OrderResponse{
		ID:                   o.ID.String(),
		InvoiceNumber:        o.InvoiceNumber,
		CustomerID:           o.CustomerID.String(),
		BranchID:             o.BranchID.String(),
		Status:               o.Status,
		PaymentStatus:        o.PaymentStatus,
		Subtotal:             money(o.TotalAmount.Add(o.Discount)),
		Discount:             money(o.Discount),
		TotalAmount:          money(o.TotalAmount),
		AmountPaid:           money(o.AmountPaid),
		AmountDue:            money(o.AmountDue),
		Notes:                o.Notes,
		OrderDate:            o.OrderDate.Format(timeLayout),
		ExpectedDeliveryDate: formatTimePtr(o.ExpectedDeliveryDate),
		CreatedAt:            o.CreatedAt.Format(timeLayout),
		UpdatedAt:            o.UpdatedAt.Format(timeLayout),
	}
	if o.Customer != nil {
		resp.CustomerName = o.Customer.Name
		resp.CustomerPhone = o.Customer.Phone
	}
	if o.Branch != nil {
		resp.BranchName = o.Branch.Name
	}
	for _, it := range o.Items {
		item := OrderItemResponse{
			ID:            it.ID.String(),
			ServiceTypeID: it.ServiceTypeID.String(),
			CategoryID:    uuidString(it.CategoryID),
			Quantity:      it.Quantity,
			UnitPrice:     money(it.UnitPrice),
			Subtotal:      money(it.Subtotal),
			Size:          it.Size,
			Notes:         it.Notes,
		}
		if it.ServiceType != nil {
			item.ServiceTypeName = it.ServiceType.Name
		}
		if it.Category != nil {
			item.CategoryName = it.Category.Name
		}
		resp.Items = append(resp.Items, item)
	}
	for _, p := range o.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(p))
	}
	for _, h := range o.StatusHistory {
		resp.StatusHistory = append(resp.StatusHistory, toStatusHistoryResponse(h))
	}
	return resp
}

func toPaymentResponse(p model.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID.String(),
		OrderID:       p.OrderID.String(),
		Amount:        money(p.Amount),
		PaymentMethod: p.PaymentMethod,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		ReceivedBy:    uuidString(p.ReceivedBy),
		CreatedAt:     p.CreatedAt.Format(timeLayout),
	}
}

func toStatusHistoryResponse(h model.OrderStatusHistory) StatusHistoryResponse {
	return StatusHistoryResponse{
		ID:             h.ID.String(),
		PreviousStatus: h.PreviousStatus,
		NewStatus:      h.NewStatus,
		ChangedBy:      uuidString(h.ChangedBy),
		Note:           h.Note,
		CreatedAt:      h.CreatedAt.Format(timeLayout),
	}
}
