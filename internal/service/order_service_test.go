package service

import (
	"context"
	"testing"

	"laundry/internal/apperror"
	"laundry/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	store    *store
	tx       *fakeTxManager
	events   *recordingPublisher
	orders   OrderService
	invoices InvoiceNumberService

	branch model.Branch
	wash   model.ServiceType
	iron   model.ServiceType
	shirts model.Category
	actor  string
}

func newOrderFixture(t *testing.T, strict bool) *orderFixture {
	t.Helper()
	s := newStore()
	f := &orderFixture{
		store:  s,
		tx:     &fakeTxManager{s: s},
		events: &recordingPublisher{},
		branch: model.Branch{ID: uuid.New(), Name: "Downtown", Code: "DT", IsActive: true},
		wash:   model.ServiceType{ID: uuid.New(), Name: "Wash & Fold", BasePrice: decimal.NewFromInt(50), PricingUnit: model.PricingPerItem, IsActive: true},
		iron:   model.ServiceType{ID: uuid.New(), Name: "Ironing", BasePrice: decimal.NewFromInt(10), PricingUnit: model.PricingPerItem, IsActive: true},
		shirts: model.Category{ID: uuid.New(), Name: "Shirts"},
		actor:  uuid.NewString(),
	}
	s.branches[f.branch.ID] = f.branch
	s.serviceTypes[f.wash.ID] = f.wash
	s.serviceTypes[f.iron.ID] = f.iron
	s.categories[f.shirts.ID] = f.shirts

	orders := &fakeOrderRepo{s: s}
	audit := &fakeAuditRepo{s: s}
	f.invoices = NewInvoiceNumberService(InvoiceNumberServiceDeps{
		Settings:  &fakeSettingsRepo{s: s},
		Orders:    orders,
		Audit:     audit,
		TxManager: f.tx,
		Clock:     fixedClock,
	})
	f.orders = NewOrderService(OrderServiceDeps{
		Orders:            orders,
		Payments:          &fakePaymentRepo{s: s},
		Customers:         &fakeCustomerRepo{s: s},
		Branches:          &fakeBranchRepo{s: s},
		ServiceTypes:      &fakeServiceTypeRepo{s: s},
		Categories:        &fakeCategoryRepo{s: s},
		Audit:             audit,
		TxManager:         f.tx,
		InvoiceNumbers:    f.invoices,
		Events:            f.events,
		Clock:             fixedClock,
		PhoneRegion:       "US",
		StrictTransitions: strict,
	})
	return f
}

func (f *orderFixture) line(st model.ServiceType, qty int, price string) OrderItemInput {
	return OrderItemInput{ServiceTypeID: st.ID.String(), Quantity: qty, UnitPrice: price}
}

func (f *orderFixture) request(paid string, items ...OrderItemInput) CreateOrderRequest {
	return CreateOrderRequest{
		CustomerName:  "Ada Lovelace",
		CustomerPhone: "+1 650-253-0000",
		BranchID:      f.branch.ID.String(),
		Items:         items,
		AmountPaid:    paid,
	}
}

func (f *orderFixture) create(t *testing.T, req CreateOrderRequest) OrderResponse {
	t.Helper()
	resp, err := f.orders.CreateOrder(context.Background(), req, f.actor)
	require.NoError(t, err)
	return resp
}

func requireAppError(t *testing.T, err error, kind apperror.Kind, code string) *apperror.Error {
	t.Helper()
	require.Error(t, err)
	cause, ok := apperror.Cause(err)
	require.True(t, ok, "expected *apperror.Error, got %v", err)
	assert.Equal(t, kind, cause.Kind)
	assert.Equal(t, code, cause.Code)
	return cause
}

func TestCreateOrderFullyPaid(t *testing.T) {
	f := newOrderFixture(t, false)

	resp := f.create(t, f.request("100", f.line(f.wash, 2, "50")))

	assert.Equal(t, "INV-2024-03-0001", resp.InvoiceNumber)
	assert.Equal(t, model.OrderStatusPending, resp.Status)
	assert.Equal(t, "PAID", resp.PaymentStatus)
	assert.Equal(t, "100.00", resp.Subtotal)
	assert.Equal(t, "100.00", resp.TotalAmount)
	assert.Equal(t, "100.00", resp.AmountPaid)
	assert.Equal(t, "0.00", resp.AmountDue)
	assert.Equal(t, "Ada Lovelace", resp.CustomerName)
	assert.Equal(t, "+16502530000", resp.CustomerPhone)
	assert.Equal(t, "Downtown", resp.BranchName)

	require.Len(t, resp.Items, 1)
	assert.Equal(t, "100.00", resp.Items[0].Subtotal)
	assert.Equal(t, "Wash & Fold", resp.Items[0].ServiceTypeName)

	require.Len(t, resp.Payments, 1)
	assert.Equal(t, "100.00", resp.Payments[0].Amount)
	assert.Equal(t, model.PaymentMethodCash, resp.Payments[0].PaymentMethod)

	assert.Len(t, f.store.customers, 1)
	assert.Equal(t, []string{model.ActionCreateCustomer, model.ActionCreateOrder}, f.store.auditActions())
	assert.Equal(t, []string{eventOrderCreated, eventPaymentRecorded}, f.events.names())
}

func TestCreateOrderPartialPayment(t *testing.T) {
	f := newOrderFixture(t, false)

	resp := f.create(t, f.request("40", f.line(f.wash, 1, "100")))

	assert.Equal(t, "PARTIAL", resp.PaymentStatus)
	assert.Equal(t, "100.00", resp.TotalAmount)
	assert.Equal(t, "40.00", resp.AmountPaid)
	assert.Equal(t, "60.00", resp.AmountDue)
}

func TestCreateOrderWithoutPaymentIsPending(t *testing.T) {
	f := newOrderFixture(t, false)

	req := f.request("", f.line(f.wash, 3, "12.50"))
	req.Discount = "7.5"
	resp := f.create(t, req)

	assert.Equal(t, "PENDING", resp.PaymentStatus)
	assert.Equal(t, "37.50", resp.Subtotal)
	assert.Equal(t, "7.50", resp.Discount)
	assert.Equal(t, "30.00", resp.TotalAmount)
	assert.Equal(t, "30.00", resp.AmountDue)
	assert.Empty(t, resp.Payments)
	assert.Empty(t, f.store.payments)
}

func TestCreateOrderIgnoresClientLineTotal(t *testing.T) {
	f := newOrderFixture(t, false)

	item := f.line(f.wash, 2, "50")
	item.Total = "1"
	resp := f.create(t, f.request("", item))

	assert.Equal(t, "100.00", resp.Items[0].Subtotal)
	assert.Equal(t, "100.00", resp.TotalAmount)
}

func TestCreateOrderDefaultCounterIncrementsByOne(t *testing.T) {
	f := newOrderFixture(t, false)

	first := f.create(t, f.request("", f.line(f.wash, 1, "10")))
	second := f.create(t, f.request("", f.line(f.wash, 1, "10")))

	assert.Equal(t, "INV-2024-03-0001", first.InvoiceNumber)
	assert.Equal(t, "INV-2024-03-0002", second.InvoiceNumber)

	def, err := (&fakeSettingsRepo{s: f.store}).FindDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), def.CurrentCounter)
}

func TestCreateOrderDuplicateManualInvoice(t *testing.T) {
	f := newOrderFixture(t, false)

	req := f.request("", f.line(f.wash, 1, "10"))
	req.CustomInvoiceNumber = "MANUAL-7"
	first := f.create(t, req)
	assert.Equal(t, "MANUAL-7", first.InvoiceNumber)

	again := f.request("25", f.line(f.wash, 1, "10"))
	again.CustomerName = "Grace Hopper"
	again.CustomerPhone = ""
	again.CustomInvoiceNumber = "MANUAL-7"
	_, err := f.orders.CreateOrder(context.Background(), again, f.actor)

	requireAppError(t, err, apperror.KindConflict, apperror.CodeDuplicateInvoiceNumber)
	assert.Len(t, f.store.orders, 1)
	assert.Len(t, f.store.customers, 1, "customer created inside the failed transaction must be rolled back")
	assert.Empty(t, f.store.payments)
	assert.Empty(t, f.store.settings, "manual numbers do not touch the counter")
}

func TestCreateOrderCounterSkipsManualCollision(t *testing.T) {
	f := newOrderFixture(t, false)

	manual := f.request("", f.line(f.wash, 1, "10"))
	manual.CustomInvoiceNumber = "INV-2024-03-0001"
	f.create(t, manual)

	auto := f.create(t, f.request("", f.line(f.wash, 1, "10")))
	assert.Equal(t, "INV-2024-03-0002", auto.InvoiceNumber)

	def, err := (&fakeSettingsRepo{s: f.store}).FindDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), def.CurrentCounter)
}

func TestCreateOrderUsesExplicitSettings(t *testing.T) {
	f := newOrderFixture(t, false)
	settings := model.InvoiceSettings{ID: uuid.New(), Name: "Downtown", Prefix: "DT", DigitCount: 3, CurrentCounter: 7}
	f.store.settings[settings.ID] = settings

	req := f.request("", f.line(f.wash, 1, "10"))
	req.InvoiceSettingsID = settings.ID.String()
	resp := f.create(t, req)

	assert.Equal(t, "DT-007", resp.InvoiceNumber)
	assert.Equal(t, int64(8), f.store.settings[settings.ID].CurrentCounter)

	id := uuid.MustParse(resp.ID)
	require.NotNil(t, f.store.orders[id].InvoiceSettingsID)
	assert.Equal(t, settings.ID, *f.store.orders[id].InvoiceSettingsID)
}

func TestCreateOrderCustomerResolution(t *testing.T) {
	t.Run("unknown customer id", func(t *testing.T) {
		f := newOrderFixture(t, false)
		req := f.request("", f.line(f.wash, 1, "10"))
		req.CustomerID = uuid.NewString()

		_, err := f.orders.CreateOrder(context.Background(), req, f.actor)
		requireAppError(t, err, apperror.KindNotFound, apperror.CodeCustomerNotFound)
		assert.Empty(t, f.store.orders)
	})

	t.Run("no customer details", func(t *testing.T) {
		f := newOrderFixture(t, false)
		req := f.request("", f.line(f.wash, 1, "10"))
		req.CustomerName, req.CustomerPhone = "", ""

		_, err := f.orders.CreateOrder(context.Background(), req, f.actor)
		requireAppError(t, err, apperror.KindValidation, apperror.CodeCustomerInfoRequired)
	})

	t.Run("phone without match needs a name", func(t *testing.T) {
		f := newOrderFixture(t, false)
		req := f.request("", f.line(f.wash, 1, "10"))
		req.CustomerName = ""

		_, err := f.orders.CreateOrder(context.Background(), req, f.actor)
		requireAppError(t, err, apperror.KindValidation, apperror.CodeCustomerInfoRequired)
		assert.Empty(t, f.store.customers)
	})

	t.Run("existing phone is reused", func(t *testing.T) {
		f := newOrderFixture(t, false)
		existing := model.Customer{ID: uuid.New(), Name: "Ada", Phone: "+16502530000"}
		f.store.customers[existing.ID] = existing

		req := f.request("", f.line(f.wash, 1, "10"))
		req.CustomerName = ""
		req.CustomerPhone = "(650) 253-0000"
		resp := f.create(t, req)

		assert.Equal(t, existing.ID.String(), resp.CustomerID)
		assert.Len(t, f.store.customers, 1)
	})

	t.Run("invalid phone", func(t *testing.T) {
		f := newOrderFixture(t, false)
		req := f.request("", f.line(f.wash, 1, "10"))
		req.CustomerPhone = "12"

		_, err := f.orders.CreateOrder(context.Background(), req, f.actor)
		cause := requireAppError(t, err, apperror.KindValidation, apperror.CodeValidationFailed)
		assert.Contains(t, cause.Fields, "customer_phone")
	})
}

func TestCreateOrderRejectsBadReferences(t *testing.T) {
	t.Run("missing branch", func(t *testing.T) {
		f := newOrderFixture(t, false)
		req := f.request("", f.line(f.wash, 1, "10"))
		req.BranchID = ""

		_, err := f.orders.CreateOrder(context.Background(), req, f.actor)
		requireAppError(t, err, apperror.KindValidation, apperror.CodeBranchRequired)
	})

	t.Run("unknown branch", func(t *testing.T) {
		f := newOrderFixture(t, false)
		req := f.request("", f.line(f.wash, 1, "10"))
		req.BranchID = uuid.NewString()

		_, err := f.orders.CreateOrder(context.Background(), req, f.actor)
		requireAppError(t, err, apperror.KindNotFound, apperror.CodeBranchNotFound)
	})

	t.Run("unknown service type", func(t *testing.T) {
		f := newOrderFixture(t, false)
		ghost := uuid.NewString()
		req := f.request("", f.line(f.wash, 1, "10"), OrderItemInput{ServiceTypeID: ghost, Quantity: 1, UnitPrice: "5"})

		_, err := f.orders.CreateOrder(context.Background(), req, f.actor)
		cause := requireAppError(t, err, apperror.KindConflict, apperror.CodeInvalidServiceType)
		assert.Equal(t, []string{ghost}, cause.Details["service_type_ids"])
		assert.Empty(t, f.store.orders)
		assert.Empty(t, f.store.customers)
	})

	t.Run("unknown category", func(t *testing.T) {
		f := newOrderFixture(t, false)
		item := f.line(f.wash, 1, "10")
		item.CategoryID = uuid.NewString()

		_, err := f.orders.CreateOrder(context.Background(), f.request("", item), f.actor)
		requireAppError(t, err, apperror.KindValidation, apperror.CodeInvalidCategory)
	})

	t.Run("discount above subtotal", func(t *testing.T) {
		f := newOrderFixture(t, false)
		req := f.request("", f.line(f.wash, 1, "10"))
		req.Discount = "10.01"

		_, err := f.orders.CreateOrder(context.Background(), req, f.actor)
		requireAppError(t, err, apperror.KindValidation, apperror.CodeDiscountExceedsSubtotal)
	})

	t.Run("bad item fields", func(t *testing.T) {
		f := newOrderFixture(t, false)
		req := f.request("", OrderItemInput{ServiceTypeID: "nope", Quantity: 0, UnitPrice: "-1"})

		_, err := f.orders.CreateOrder(context.Background(), req, f.actor)
		cause := requireAppError(t, err, apperror.KindValidation, apperror.CodeValidationFailed)
		assert.Equal(t, map[string]string{
			"items[0].service_type_id": "uuid",
			"items[0].quantity":        "min",
			"items[0].unit_price":      "decimal_gte0",
		}, cause.Fields)
	})
}

func TestUpdateStatusAppendsExactlyOneHistoryRow(t *testing.T) {
	f := newOrderFixture(t, false)
	created := f.create(t, f.request("", f.line(f.wash, 1, "10")))
	ctx := context.Background()

	resp, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: model.OrderStatusProcessing, Note: "in the machine"}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, resp.Status)
	require.Len(t, resp.StatusHistory, 1)
	assert.Equal(t, model.OrderStatusPending, resp.StatusHistory[0].PreviousStatus)
	assert.Equal(t, model.OrderStatusProcessing, resp.StatusHistory[0].NewStatus)
	assert.Equal(t, "in the machine", resp.StatusHistory[0].Note)
	require.NotNil(t, resp.StatusHistory[0].ChangedBy)
	assert.Equal(t, f.actor, *resp.StatusHistory[0].ChangedBy)

	_, err = f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: model.OrderStatusProcessing}, f.actor)
	require.NoError(t, err)
	notes := "fragile"
	_, err = f.orders.UpdateOrder(ctx, created.ID, UpdateOrderRequest{Notes: &notes}, f.actor)
	require.NoError(t, err)

	history, err := f.orders.GetHistory(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 1, countEvents(f.events, eventOrderStatusChanged))
}

func countEvents(p *recordingPublisher, name string) int {
	n := 0
	for _, e := range p.events {
		if e.name == name {
			n++
		}
	}
	return n
}

func TestUpdateStatusTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("strict rejects leaving a terminal status", func(t *testing.T) {
		f := newOrderFixture(t, true)
		created := f.create(t, f.request("", f.line(f.wash, 1, "10")))

		_, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: model.OrderStatusCompleted}, f.actor)
		require.NoError(t, err)

		_, err = f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: model.OrderStatusProcessing}, f.actor)
		assert.Equal(t, apperror.KindTransaction, apperror.KindOf(err))
		cause := requireAppError(t, err, apperror.KindConflict, apperror.CodeInvalidStatusTransition)
		assert.Equal(t, model.OrderStatusCompleted, cause.Details["from"])

		got, err := f.orders.GetOrder(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCompleted, got.Status)
		assert.Len(t, got.StatusHistory, 1)
	})

	t.Run("lenient allows any known status", func(t *testing.T) {
		f := newOrderFixture(t, false)
		created := f.create(t, f.request("", f.line(f.wash, 1, "10")))

		_, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: model.OrderStatusCompleted}, f.actor)
		require.NoError(t, err)
		resp, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: model.OrderStatusProcessing}, f.actor)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusProcessing, resp.Status)
		assert.Len(t, resp.StatusHistory, 2)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newOrderFixture(t, false)
		created := f.create(t, f.request("", f.line(f.wash, 1, "10")))

		_, err := f.orders.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "LOST"}, f.actor)
		requireAppError(t, err, apperror.KindValidation, apperror.CodeValidationFailed)
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{model.OrderStatusPending, model.OrderStatusProcessing, true},
		{model.OrderStatusPending, model.OrderStatusCancelled, true},
		{model.OrderStatusProcessing, model.OrderStatusReadyForPickup, true},
		{model.OrderStatusReadyForPickup, model.OrderStatusCompleted, true},
		{model.OrderStatusReadyForPickup, model.OrderStatusPending, false},
		{model.OrderStatusProcessing, model.OrderStatusPending, false},
		{model.OrderStatusCompleted, model.OrderStatusCancelled, false},
		{model.OrderStatusCancelled, model.OrderStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestUpdateOrderFailureLeavesOrderUntouched(t *testing.T) {
	f := newOrderFixture(t, false)
	ctx := context.Background()
	created := f.create(t, f.request("40", f.line(f.wash, 1, "100"), f.line(f.iron, 2, "10")))
	require.Len(t, created.Items, 2)
	commits := f.tx.commits

	update := UpdateOrderRequest{
		Status:     model.OrderStatusProcessing,
		AmountPaid: "10",
		Items: []OrderItemInput{
			{ID: created.Items[0].ID, ServiceTypeID: f.wash.ID.String(), Quantity: 5, UnitPrice: "100"},
			{ID: uuid.NewString(), ServiceTypeID: f.iron.ID.String(), Quantity: 1, UnitPrice: "10"},
		},
	}
	_, err := f.orders.UpdateOrder(ctx, created.ID, update, f.actor)

	assert.Equal(t, apperror.KindTransaction, apperror.KindOf(err))
	assert.True(t, apperror.IsCode(err, apperror.CodeOrderItemNotFound))
	requireAppError(t, err, apperror.KindNotFound, apperror.CodeOrderItemNotFound)
	assert.Equal(t, 1, f.tx.rollbacks)
	assert.Equal(t, commits, f.tx.commits)

	got, err := f.orders.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, created.TotalAmount, got.TotalAmount)
	assert.Equal(t, created.AmountPaid, got.AmountPaid)
	assert.Equal(t, created.AmountDue, got.AmountDue)
	assert.Equal(t, created.PaymentStatus, got.PaymentStatus)
	assert.Equal(t, created.Items, got.Items)
	assert.Len(t, got.Payments, 1)
	assert.Empty(t, got.StatusHistory)
	assert.Equal(t, []string{model.ActionCreateCustomer, model.ActionCreateOrder}, f.store.auditActions())
	assert.NotContains(t, f.events.names(), eventOrderUpdated)
}

func TestUpdateOrderUnknownServiceTypeRollsBack(t *testing.T) {
	f := newOrderFixture(t, false)
	ctx := context.Background()
	created := f.create(t, f.request("40", f.line(f.wash, 1, "100")))
	require.Len(t, created.Items, 1)
	commits := f.tx.commits
	unknown := uuid.NewString()

	_, err := f.orders.UpdateOrder(ctx, created.ID, UpdateOrderRequest{
		Status:     model.OrderStatusProcessing,
		AmountPaid: "10",
		Items: []OrderItemInput{
			{ID: created.Items[0].ID, ServiceTypeID: unknown, Quantity: 3, UnitPrice: "100"},
		},
	}, f.actor)

	assert.Equal(t, apperror.KindTransaction, apperror.KindOf(err))
	cause := requireAppError(t, err, apperror.KindConflict, apperror.CodeInvalidServiceType)
	assert.Equal(t, []string{unknown}, cause.Details["service_type_ids"])
	assert.Equal(t, 1, f.tx.rollbacks)
	assert.Equal(t, commits, f.tx.commits)

	got, err := f.orders.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, "100.00", got.TotalAmount)
	assert.Equal(t, "40.00", got.AmountPaid)
	assert.Equal(t, created.Items, got.Items)
	assert.Len(t, got.Payments, 1)
	assert.Empty(t, got.StatusHistory)
}

func TestUpdateOrderRejectsRepeatedItemID(t *testing.T) {
	f := newOrderFixture(t, false)
	ctx := context.Background()
	created := f.create(t, f.request("", f.line(f.wash, 1, "100")))
	itemID := created.Items[0].ID
	commits := f.tx.commits

	_, err := f.orders.UpdateOrder(ctx, created.ID, UpdateOrderRequest{
		Items: []OrderItemInput{
			{ID: itemID, ServiceTypeID: f.wash.ID.String(), Quantity: 1, UnitPrice: "100"},
			{ID: itemID, ServiceTypeID: f.wash.ID.String(), Quantity: 1, UnitPrice: "100"},
		},
	}, f.actor)

	cause := requireAppError(t, err, apperror.KindValidation, apperror.CodeValidationFailed)
	assert.Equal(t, map[string]string{"items[1].id": "unique"}, cause.Fields)
	assert.Equal(t, commits, f.tx.commits)

	got, err := f.orders.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", got.TotalAmount)
	assert.Equal(t, "100.00", got.Subtotal)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "100.00", got.Items[0].Subtotal)
}

func TestUpdateOrderMissingOrder(t *testing.T) {
	f := newOrderFixture(t, false)

	_, err := f.orders.UpdateStatus(context.Background(), uuid.NewString(), UpdateStatusRequest{Status: model.OrderStatusProcessing}, f.actor)

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	requireAppError(t, err, apperror.KindNotFound, apperror.CodeOrderNotFound)
}

func TestRecordPaymentOnly(t *testing.T) {
	f := newOrderFixture(t, false)
	ctx := context.Background()
	created := f.create(t, f.request("40", f.line(f.wash, 1, "100")))

	resp, err := f.orders.RecordPayment(ctx, created.ID, RecordPaymentRequest{Amount: "60", PaymentMethod: model.PaymentMethodCard, TransactionID: "txn-9"}, f.actor)
	require.NoError(t, err)

	assert.Equal(t, "PAID", resp.PaymentStatus)
	assert.Equal(t, "100.00", resp.AmountPaid)
	assert.Equal(t, "0.00", resp.AmountDue)
	assert.Equal(t, created.Items, resp.Items)
	require.Len(t, resp.Payments, 2)
	assert.Equal(t, model.PaymentMethodCard, resp.Payments[1].PaymentMethod)
	assert.Equal(t, "txn-9", resp.Payments[1].TransactionID)
	assert.Empty(t, resp.StatusHistory)

	actions := f.store.auditActions()
	assert.Equal(t, model.ActionRecordPayment, actions[len(actions)-1])
	assert.Equal(t, 2, countEvents(f.events, eventPaymentRecorded))

	payments, err := f.orders.ListOrderPayments(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestRecordPaymentRejectsZero(t *testing.T) {
	f := newOrderFixture(t, false)
	created := f.create(t, f.request("", f.line(f.wash, 1, "100")))

	_, err := f.orders.RecordPayment(context.Background(), created.ID, RecordPaymentRequest{Amount: "0"}, f.actor)
	requireAppError(t, err, apperror.KindValidation, apperror.CodeValidationFailed)
	assert.Empty(t, f.store.payments)
}

func TestUpdateOrderReconcilesItems(t *testing.T) {
	f := newOrderFixture(t, false)
	ctx := context.Background()
	created := f.create(t, f.request("", f.line(f.wash, 1, "100"), f.line(f.iron, 2, "10")))
	keep := created.Items[0]

	resp, err := f.orders.UpdateOrder(ctx, created.ID, UpdateOrderRequest{
		Items: []OrderItemInput{
			{ID: keep.ID, ServiceTypeID: f.wash.ID.String(), Quantity: 2, UnitPrice: "100"},
			{ServiceTypeID: f.iron.ID.String(), CategoryID: f.shirts.ID.String(), Quantity: 1, UnitPrice: "5", Size: "M"},
		},
	}, f.actor)
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, keep.ID, resp.Items[0].ID)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.Equal(t, "200.00", resp.Items[0].Subtotal)
	assert.NotEqual(t, created.Items[1].ID, resp.Items[1].ID)
	assert.Equal(t, "Shirts", resp.Items[1].CategoryName)
	assert.Equal(t, "M", resp.Items[1].Size)
	assert.Equal(t, "205.00", resp.TotalAmount)
	assert.Equal(t, "205.00", resp.AmountDue)

	actions := f.store.auditActions()
	assert.Equal(t, model.ActionUpdateOrder, actions[len(actions)-1])
}

func TestUpdateOrderDiscountChecksCurrentItems(t *testing.T) {
	f := newOrderFixture(t, false)
	created := f.create(t, f.request("", f.line(f.wash, 1, "20")))

	tooMuch := "25"
	_, err := f.orders.UpdateOrder(context.Background(), created.ID, UpdateOrderRequest{Discount: &tooMuch}, f.actor)
	requireAppError(t, err, apperror.KindValidation, apperror.CodeDiscountExceedsSubtotal)

	ok := "5"
	resp, err := f.orders.UpdateOrder(context.Background(), created.ID, UpdateOrderRequest{Discount: &ok}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, "15.00", resp.TotalAmount)
	assert.Equal(t, "20.00", resp.Subtotal)
}

func TestDeleteOrder(t *testing.T) {
	f := newOrderFixture(t, false)
	ctx := context.Background()
	created := f.create(t, f.request("10", f.line(f.wash, 1, "100")))

	require.NoError(t, f.orders.DeleteOrder(ctx, created.ID, f.actor))

	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.store.items)
	assert.Empty(t, f.store.payments)
	actions := f.store.auditActions()
	assert.Equal(t, model.ActionDeleteOrder, actions[len(actions)-1])
	assert.Contains(t, f.events.names(), eventOrderDeleted)

	_, err := f.orders.GetOrder(ctx, created.ID)
	requireAppError(t, err, apperror.KindNotFound, apperror.CodeOrderNotFound)
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	f := newOrderFixture(t, false)
	ctx := context.Background()
	a := f.create(t, f.request("", f.line(f.wash, 1, "10")))
	f.create(t, f.request("", f.line(f.wash, 1, "10")))

	_, err := f.orders.UpdateStatus(ctx, a.ID, UpdateStatusRequest{Status: model.OrderStatusProcessing}, f.actor)
	require.NoError(t, err)

	list, total, err := f.orders.ListOrders(ctx, OrderFilter{Status: model.OrderStatusProcessing})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	_, _, err = f.orders.ListOrders(ctx, OrderFilter{BranchID: "not-a-uuid"})
	requireAppError(t, err, apperror.KindValidation, apperror.CodeValidationFailed)
}
