// Package billing derives order totals and payment status from line items,
// discount and recorded payments.
package billing

import "github.com/shopspring/decimal"

// PaymentStatus is derived from the amount still due against the order total.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Line is the pricing part of an order item.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Input collects everything the calculator needs.
type Input struct {
	Items                 []Line
	Discount              decimal.Decimal
	ExistingPaymentsTotal decimal.Decimal
	NewPaymentAmount      decimal.Decimal
}

// Summary is the financial state of an order.
type Summary struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	TotalAmount   decimal.Decimal
	TotalPayments decimal.Decimal
	AmountDue     decimal.Decimal
	PaymentStatus PaymentStatus
}

// LineSubtotal returns quantity * unitPrice.
func LineSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Subtotal sums every line.
func Subtotal(items []Line) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(LineSubtotal(it.Quantity, it.UnitPrice))
	}
	return total
}

// Compute derives the summary. A discount larger than the subtotal yields a
// negative total; callers that need to forbid that must check beforehand.
func Compute(in Input) Summary {
	subtotal := Subtotal(in.Items)
	total := subtotal.Sub(in.Discount)
	payments := in.ExistingPaymentsTotal.Add(in.NewPaymentAmount)
	due := total.Sub(payments)

	return Summary{
		Subtotal:      subtotal,
		Discount:      in.Discount,
		TotalAmount:   total,
		TotalPayments: payments,
		AmountDue:     due,
		PaymentStatus: DeriveStatus(due, total),
	}
}

// DeriveStatus: PAID when nothing is due, PARTIAL when some but not all of
// the total is due, PENDING otherwise.
func DeriveStatus(amountDue, totalAmount decimal.Decimal) PaymentStatus {
	switch {
	case amountDue.LessThanOrEqual(decimal.Zero):
		return PaymentStatusPaid
	case amountDue.LessThan(totalAmount):
		return PaymentStatusPartial
	default:
		return PaymentStatusPending
	}
}

// Recompute re-derives due and status for a known total when only payments changed.
func Recompute(totalAmount, existingPaymentsTotal, newPaymentAmount decimal.Decimal) Summary {
	payments := existingPaymentsTotal.Add(newPaymentAmount)
	due := totalAmount.Sub(payments)
	return Summary{
		TotalAmount:   totalAmount,
		TotalPayments: payments,
		AmountDue:     due,
		PaymentStatus: DeriveStatus(due, totalAmount),
	}
}
