package report

import (
	"bytes"
	"testing"
	"time"

	"laundry/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbook(t *testing.T) {
	day := time.Date(2024, time.May, 2, 9, 30, 0, 0, time.UTC)
	orders := []model.Order{{
		InvoiceNumber: "INV-2024-05-0007",
		OrderDate:     day,
		Customer:      &model.Customer{Name: "Ada"},
		Branch:        &model.Branch{Name: "Downtown"},
		Status:        model.OrderStatusPending,
		PaymentStatus: "PARTIAL",
		TotalAmount:   decimal.NewFromInt(100),
		AmountPaid:    decimal.NewFromInt(40),
		AmountDue:     decimal.NewFromInt(60),
	}}
	expenses := []model.Expense{{
		ExpenseDate:   day,
		Category:      model.ExpenseCategorySupplies,
		PaymentMethod: model.PaymentMethodCash,
		Description:   "detergent",
		Amount:        decimal.RequireFromString("12.5"),
	}}

	f, err := Workbook(orders, expenses)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{OrdersSheet, ExpensesSheet}, f.GetSheetList())

	header, err := f.GetCellValue(OrdersSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Invoice", header)

	invoice, err := f.GetCellValue(OrdersSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-05-0007", invoice)

	customer, err := f.GetCellValue(OrdersSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Ada", customer)

	due, err := f.GetCellValue(OrdersSheet, "I2")
	require.NoError(t, err)
	assert.Equal(t, "60", due)

	amount, err := f.GetCellValue(ExpensesSheet, "F2")
	require.NoError(t, err)
	assert.Equal(t, "12.5", amount)
}

func TestWriteProducesReadableFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ExpensesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, expenseHeaders, rows[0])
}
