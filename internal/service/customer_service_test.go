package service

import (
	"context"
	"testing"

	"laundry/internal/apperror"
	"laundry/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCustomerFixture() (*store, CustomerService) {
	s := newStore()
	svc := NewCustomerService(&fakeCustomerRepo{s: s}, &fakeOrderRepo{s: s}, &fakeAuditRepo{s: s}, &fakeTxManager{s: s}, "US")
	return s, svc
}

func TestCreateCustomerNormalizesPhone(t *testing.T) {
	s, svc := newCustomerFixture()

	resp, err := svc.CreateCustomer(context.Background(), CustomerRequest{Name: " Linus ", Phone: "650 253 0000"}, "")
	require.NoError(t, err)

	assert.Equal(t, "Linus", resp.Name)
	assert.Equal(t, "+16502530000", resp.Phone)
	assert.Equal(t, []string{model.ActionCreateCustomer}, s.auditActions())
}

func TestCreateCustomerRejectsInvalidPhone(t *testing.T) {
	s, svc := newCustomerFixture()

	_, err := svc.CreateCustomer(context.Background(), CustomerRequest{Name: "Linus", Phone: "123"}, "")
	cause := requireAppError(t, err, apperror.KindValidation, apperror.CodeValidationFailed)
	assert.Equal(t, "phone", cause.Fields["phone"])
	assert.Empty(t, s.customers)
}

func TestGetCustomerIncludesOrders(t *testing.T) {
	s, svc := newCustomerFixture()
	c := model.Customer{ID: uuid.New(), Name: "Margaret"}
	s.customers[c.ID] = c
	mine := model.Order{ID: uuid.New(), InvoiceNumber: "INV-1", CustomerID: c.ID, OrderDate: testNow}
	other := model.Order{ID: uuid.New(), InvoiceNumber: "INV-2", CustomerID: uuid.New(), OrderDate: testNow}
	s.orders[mine.ID] = mine
	s.orders[other.ID] = other

	resp, err := svc.GetCustomer(context.Background(), c.ID.String())
	require.NoError(t, err)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "INV-1", resp.Orders[0].InvoiceNumber)
}

func TestDeleteCustomerWithOrders(t *testing.T) {
	s, svc := newCustomerFixture()
	ctx := context.Background()
	busy := model.Customer{ID: uuid.New(), Name: "Busy"}
	idle := model.Customer{ID: uuid.New(), Name: "Idle"}
	s.customers[busy.ID] = busy
	s.customers[idle.ID] = idle
	s.orders[uuid.New()] = model.Order{InvoiceNumber: "INV-9", CustomerID: busy.ID}

	err := svc.DeleteCustomer(ctx, busy.ID.String(), "")
	cause := requireAppError(t, err, apperror.KindConflict, apperror.CodeCustomerHasOrders)
	assert.Equal(t, int64(1), cause.Details["orders"])

	require.NoError(t, svc.DeleteCustomer(ctx, idle.ID.String(), ""))
	assert.Len(t, s.customers, 1)

	err = svc.DeleteCustomer(ctx, idle.ID.String(), "")
	requireAppError(t, err, apperror.KindNotFound, apperror.CodeCustomerNotFound)
}

func TestUpdateCustomer(t *testing.T) {
	s, svc := newCustomerFixture()
	c := model.Customer{ID: uuid.New(), Name: "Old"}
	s.customers[c.ID] = c

	resp, err := svc.UpdateCustomer(context.Background(), c.ID.String(), CustomerRequest{Name: "New", Email: "new@example.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, "New", resp.Name)
	assert.Equal(t, "new@example.com", s.customers[c.ID].Email)
}
