package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"time"

	"laundry/internal/model"
	"laundry/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// store is an in-memory database shared by the fake repositories.
type store struct {
	orders       map[uuid.UUID]model.Order
	items        []model.OrderItem
	history      []model.OrderStatusHistory
	payments     []model.Payment
	customers    map[uuid.UUID]model.Customer
	branches     map[uuid.UUID]model.Branch
	serviceTypes map[uuid.UUID]model.ServiceType
	categories   map[uuid.UUID]model.Category
	settings     map[uuid.UUID]model.InvoiceSettings
	expenses     map[uuid.UUID]model.Expense
	audit        []model.AuditLog
}

func newStore() *store {
	return &store{
		orders:       map[uuid.UUID]model.Order{},
		customers:    map[uuid.UUID]model.Customer{},
		branches:     map[uuid.UUID]model.Branch{},
		serviceTypes: map[uuid.UUID]model.ServiceType{},
		categories:   map[uuid.UUID]model.Category{},
		settings:     map[uuid.UUID]model.InvoiceSettings{},
		expenses:     map[uuid.UUID]model.Expense{},
	}
}

func (s *store) snapshot() *store {
	return &store{
		orders:       maps.Clone(s.orders),
		items:        slices.Clone(s.items),
		history:      slices.Clone(s.history),
		payments:     slices.Clone(s.payments),
		customers:    maps.Clone(s.customers),
		branches:     maps.Clone(s.branches),
		serviceTypes: maps.Clone(s.serviceTypes),
		categories:   maps.Clone(s.categories),
		settings:     maps.Clone(s.settings),
		expenses:     maps.Clone(s.expenses),
		audit:        slices.Clone(s.audit),
	}
}

func (s *store) restore(snap *store) {
	*s = *snap
}

func (s *store) orderItems(orderID uuid.UUID) []model.OrderItem {
	var out []model.OrderItem
	for _, it := range s.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out
}

func (s *store) orderPayments(orderID uuid.UUID) []model.Payment {
	var out []model.Payment
	for _, p := range s.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out
}

func (s *store) orderHistory(orderID uuid.UUID) []model.OrderStatusHistory {
	var out []model.OrderStatusHistory
	for _, h := range s.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out
}

func (s *store) auditActions() []string {
	out := make([]string, 0, len(s.audit))
	for _, a := range s.audit {
		out = append(out, a.Action)
	}
	return out
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func paginate[T any](rows []T, page repository.Page) []T {
	limit := page.Limit
	if limit < 1 {
		limit = 20
	}
	p := page.Page
	if p < 1 {
		p = 1
	}
	start := (p - 1) * limit
	if start >= len(rows) {
		return nil
	}
	return rows[start:min(start+limit, len(rows))]
}

// --- Transactions ---

type txMarker struct{}

// fakeTxManager restores the store when fn fails, like a rolled back transaction.
type fakeTxManager struct {
	s         *store
	commits   int
	rollbacks int
}

func (t *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		t.s.restore(snap)
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

// --- Orders ---

type fakeOrderRepo struct{ s *store }

func (r *fakeOrderRepo) Create(_ context.Context, order *model.Order) error {
	for _, o := range r.s.orders {
		if o.InvoiceNumber == order.InvoiceNumber {
			return errors.New("duplicate key value violates unique constraint \"idx_orders_invoice_number\"")
		}
	}
	ensureID(&order.ID)
	order.CreatedAt, order.UpdatedAt = testNow, testNow
	row := *order
	row.Items, row.Payments, row.StatusHistory = nil, nil, nil
	r.s.orders[order.ID] = row
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, order *model.Order) error {
	if _, ok := r.s.orders[order.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	order.UpdatedAt = testNow
	row := *order
	row.Items, row.Payments, row.StatusHistory = nil, nil, nil
	r.s.orders[order.ID] = row
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.orders, id)
	r.s.items = slices.DeleteFunc(r.s.items, func(it model.OrderItem) bool { return it.OrderID == id })
	r.s.payments = slices.DeleteFunc(r.s.payments, func(p model.Payment) bool { return p.OrderID == id })
	r.s.history = slices.DeleteFunc(r.s.history, func(h model.OrderStatusHistory) bool { return h.OrderID == id })
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

func (r *fakeOrderRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c, ok := r.s.customers[o.CustomerID]; ok {
		o.Customer = &c
	}
	if b, ok := r.s.branches[o.BranchID]; ok {
		o.Branch = &b
	}
	o.Items = r.s.orderItems(id)
	for i, it := range o.Items {
		if st, ok := r.s.serviceTypes[it.ServiceTypeID]; ok {
			o.Items[i].ServiceType = &st
		}
		if it.CategoryID != nil {
			if c, ok := r.s.categories[*it.CategoryID]; ok {
				o.Items[i].Category = &c
			}
		}
	}
	o.Payments = r.s.orderPayments(id)
	o.StatusHistory = r.s.orderHistory(id)
	return o, nil
}

func (r *fakeOrderRepo) ExistsByInvoiceNumber(_ context.Context, invoiceNumber string) (bool, error) {
	for _, o := range r.s.orders {
		if o.InvoiceNumber == invoiceNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) CountByCustomer(_ context.Context, customerID uuid.UUID) (int64, error) {
	var n int64
	for _, o := range r.s.orders {
		if o.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (r *fakeOrderRepo) List(_ context.Context, filter repository.OrderListFilter) ([]model.Order, int64, error) {
	var rows []model.Order
	for _, o := range r.s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		rows = append(rows, o)
	}
	slices.SortFunc(rows, func(a, b model.Order) int { return b.OrderDate.Compare(a.OrderDate) })
	return paginate(rows, filter.Page), int64(len(rows)), nil
}

func (r *fakeOrderRepo) ListItems(_ context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	return r.s.orderItems(orderID), nil
}

func (r *fakeOrderRepo) CreateItems(_ context.Context, items []model.OrderItem) error {
	for i := range items {
		ensureID(&items[i].ID)
		items[i].CreatedAt, items[i].UpdatedAt = testNow, testNow
		r.s.items = append(r.s.items, items[i])
	}
	return nil
}

func (r *fakeOrderRepo) UpdateItem(_ context.Context, item *model.OrderItem) error {
	i := slices.IndexFunc(r.s.items, func(it model.OrderItem) bool { return it.ID == item.ID })
	if i < 0 {
		return gorm.ErrRecordNotFound
	}
	r.s.items[i] = *item
	return nil
}

func (r *fakeOrderRepo) DeleteItems(_ context.Context, ids []uuid.UUID) error {
	r.s.items = slices.DeleteFunc(r.s.items, func(it model.OrderItem) bool { return slices.Contains(ids, it.ID) })
	return nil
}

func (r *fakeOrderRepo) AddStatusHistory(_ context.Context, entry *model.OrderStatusHistory) error {
	ensureID(&entry.ID)
	entry.CreatedAt = testNow
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r *fakeOrderRepo) ListStatusHistory(_ context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error) {
	return r.s.orderHistory(orderID), nil
}

// --- Payments ---

type fakePaymentRepo struct{ s *store }

func (r *fakePaymentRepo) Create(_ context.Context, payment *model.Payment) error {
	ensureID(&payment.ID)
	payment.CreatedAt = testNow
	r.s.payments = append(r.s.payments, *payment)
	return nil
}

func (r *fakePaymentRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	return r.s.orderPayments(orderID), nil
}

func (r *fakePaymentRepo) SumByOrder(_ context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range r.s.orderPayments(orderID) {
		if p.Status == model.PaymentRecordCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (r *fakePaymentRepo) List(_ context.Context, filter repository.PaymentListFilter) ([]model.Payment, int64, error) {
	var rows []model.Payment
	for _, p := range r.s.payments {
		if filter.PaymentMethod != "" && p.PaymentMethod != filter.PaymentMethod {
			continue
		}
		rows = append(rows, p)
	}
	return paginate(rows, filter.Page), int64(len(rows)), nil
}

// --- Customers ---

type fakeCustomerRepo struct{ s *store }

func (r *fakeCustomerRepo) Create(_ context.Context, customer *model.Customer) error {
	ensureID(&customer.ID)
	customer.CreatedAt, customer.UpdatedAt = testNow, testNow
	r.s.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, customer *model.Customer) error {
	customer.UpdatedAt = testNow
	r.s.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.customers, id)
	return nil
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *fakeCustomerRepo) FindByPhone(_ context.Context, phone string) (*model.Customer, error) {
	for _, c := range r.s.customers {
		if c.Phone == phone {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCustomerRepo) List(_ context.Context, _ string, page repository.Page) ([]model.Customer, int64, error) {
	rows := slices.Collect(maps.Values(r.s.customers))
	return paginate(rows, page), int64(len(rows)), nil
}

// --- Catalog ---

type fakeBranchRepo struct{ s *store }

func (r *fakeBranchRepo) Create(_ context.Context, branch *model.Branch) error {
	ensureID(&branch.ID)
	r.s.branches[branch.ID] = *branch
	return nil
}

func (r *fakeBranchRepo) Update(_ context.Context, branch *model.Branch) error {
	r.s.branches[branch.ID] = *branch
	return nil
}

func (r *fakeBranchRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.branches, id)
	return nil
}

func (r *fakeBranchRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	b, ok := r.s.branches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r *fakeBranchRepo) List(_ context.Context, _ bool) ([]model.Branch, error) {
	return slices.Collect(maps.Values(r.s.branches)), nil
}

type fakeServiceTypeRepo struct{ s *store }

func (r *fakeServiceTypeRepo) Create(_ context.Context, st *model.ServiceType) error {
	ensureID(&st.ID)
	r.s.serviceTypes[st.ID] = *st
	return nil
}

func (r *fakeServiceTypeRepo) Update(_ context.Context, st *model.ServiceType) error {
	r.s.serviceTypes[st.ID] = *st
	return nil
}

func (r *fakeServiceTypeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.serviceTypes, id)
	return nil
}

func (r *fakeServiceTypeRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ServiceType, error) {
	st, ok := r.s.serviceTypes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &st, nil
}

func (r *fakeServiceTypeRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.ServiceType, error) {
	var out []model.ServiceType
	for _, id := range ids {
		if st, ok := r.s.serviceTypes[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeServiceTypeRepo) List(_ context.Context, _ bool) ([]model.ServiceType, error) {
	return slices.Collect(maps.Values(r.s.serviceTypes)), nil
}

type fakeCategoryRepo struct{ s *store }

func (r *fakeCategoryRepo) Create(_ context.Context, c *model.Category) error {
	ensureID(&c.ID)
	r.s.categories[c.ID] = *c
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, c *model.Category) error {
	r.s.categories[c.ID] = *c
	return nil
}

func (r *fakeCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.categories, id)
	return nil
}

func (r *fakeCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	c, ok := r.s.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *fakeCategoryRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Category, error) {
	var out []model.Category
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCategoryRepo) List(_ context.Context) ([]model.Category, error) {
	return slices.Collect(maps.Values(r.s.categories)), nil
}

// --- Invoice settings ---

type fakeSettingsRepo struct{ s *store }

func (r *fakeSettingsRepo) Create(_ context.Context, st *model.InvoiceSettings) error {
	ensureID(&st.ID)
	st.CreatedAt, st.UpdatedAt = testNow, testNow
	r.s.settings[st.ID] = *st
	return nil
}

func (r *fakeSettingsRepo) CreateDefault(ctx context.Context, st *model.InvoiceSettings) error {
	if _, err := r.FindDefault(ctx); err == nil {
		return nil
	}
	st.IsDefault = true
	return r.Create(ctx, st)
}

func (r *fakeSettingsRepo) Update(_ context.Context, st *model.InvoiceSettings) error {
	st.UpdatedAt = testNow
	r.s.settings[st.ID] = *st
	return nil
}

func (r *fakeSettingsRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.settings, id)
	return nil
}

func (r *fakeSettingsRepo) FindByID(_ context.Context, id uuid.UUID) (*model.InvoiceSettings, error) {
	st, ok := r.s.settings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &st, nil
}

func (r *fakeSettingsRepo) FindDefault(_ context.Context) (*model.InvoiceSettings, error) {
	for _, st := range r.s.settings {
		if st.IsDefault {
			return &st, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSettingsRepo) List(_ context.Context) ([]model.InvoiceSettings, error) {
	return slices.Collect(maps.Values(r.s.settings)), nil
}

func (r *fakeSettingsRepo) UnsetDefaults(_ context.Context) error {
	for id, st := range r.s.settings {
		st.IsDefault = false
		r.s.settings[id] = st
	}
	return nil
}

func (r *fakeSettingsRepo) SetCounter(_ context.Context, id uuid.UUID, counter int64) error {
	st, ok := r.s.settings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	st.CurrentCounter = counter
	r.s.settings[id] = st
	return nil
}

// --- Expenses ---

type fakeExpenseRepo struct{ s *store }

func (r *fakeExpenseRepo) Create(_ context.Context, e *model.Expense) error {
	ensureID(&e.ID)
	e.CreatedAt, e.UpdatedAt = testNow, testNow
	r.s.expenses[e.ID] = *e
	return nil
}

func (r *fakeExpenseRepo) Update(_ context.Context, e *model.Expense) error {
	e.UpdatedAt = testNow
	r.s.expenses[e.ID] = *e
	return nil
}

func (r *fakeExpenseRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.expenses, id)
	return nil
}

func (r *fakeExpenseRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Expense, error) {
	e, ok := r.s.expenses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *fakeExpenseRepo) List(_ context.Context, filter repository.ExpenseListFilter) ([]model.Expense, int64, error) {
	var rows []model.Expense
	for _, e := range r.s.expenses {
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		rows = append(rows, e)
	}
	return paginate(rows, filter.Page), int64(len(rows)), nil
}

// --- Audit ---

type fakeAuditRepo struct{ s *store }

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	ensureID(&entry.ID)
	entry.CreatedAt = testNow
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, action string, page repository.Page) ([]model.AuditLog, int64, error) {
	var rows []model.AuditLog
	for _, a := range r.s.audit {
		if action == "" || a.Action == action {
			rows = append(rows, a)
		}
	}
	return paginate(rows, page), int64(len(rows)), nil
}

// --- Side effects ---

type publishedEvent struct {
	name string
	data any
}

type recordingPublisher struct {
	events []publishedEvent
}

func (p *recordingPublisher) Publish(event string, data any) {
	p.events = append(p.events, publishedEvent{name: event, data: data})
}

func (p *recordingPublisher) names() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

type memoryUploader struct {
	objects map[string][]byte
}

func (u *memoryUploader) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[objectName] = buf.Bytes()
	return "https://storage.googleapis.com/receipts-test/" + objectName, nil
}
