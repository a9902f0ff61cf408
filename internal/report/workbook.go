// Package report renders dashboard exports as xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"laundry/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	OrdersSheet   = "Orders"
	ExpensesSheet = "Expenses"
	dateLayout    = "2006-01-02"
)

var (
	orderHeaders   = []string{"Invoice", "Order Date", "Customer", "Branch", "Status", "Payment Status", "Total", "Paid", "Due"}
	expenseHeaders = []string{"Date", "Branch", "Category", "Payment Method", "Description", "Amount"}
)

// Workbook builds an export with one sheet of orders and one of expenses.
func Workbook(orders []model.Order, expenses []model.Expense) (*excelize.File, error) {
	f := excelize.NewFile()

	// The default sheet becomes the orders sheet.
	if err := f.SetSheetName("Sheet1", OrdersSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ExpensesSheet); err != nil {
		return nil, err
	}

	if err := writeRow(f, OrdersSheet, 1, toCells(orderHeaders)); err != nil {
		return nil, err
	}
	for i, o := range orders {
		customer, branch := "", ""
		if o.Customer != nil {
			customer = o.Customer.Name
		}
		if o.Branch != nil {
			branch = o.Branch.Name
		}
		row := []any{
			o.InvoiceNumber,
			o.OrderDate.Format(dateLayout),
			customer,
			branch,
			o.Status,
			o.PaymentStatus,
			o.TotalAmount.InexactFloat64(),
			o.AmountPaid.InexactFloat64(),
			o.AmountDue.InexactFloat64(),
		}
		if err := writeRow(f, OrdersSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := writeRow(f, ExpensesSheet, 1, toCells(expenseHeaders)); err != nil {
		return nil, err
	}
	for i, e := range expenses {
		branch := ""
		if e.Branch != nil {
			branch = e.Branch.Name
		}
		row := []any{
			e.ExpenseDate.Format(dateLayout),
			branch,
			e.Category,
			e.PaymentMethod,
			e.Description,
			e.Amount.InexactFloat64(),
		}
		if err := writeRow(f, ExpensesSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// Write renders the workbook straight to w.
func Write(w io.Writer, orders []model.Order, expenses []model.Expense) error {
	f, err := Workbook(orders, expenses)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNo, err)
	}
	return nil
}

func toCells(headers []string) []any {
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	return cells
}
