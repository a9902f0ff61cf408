package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeScenarios(t *testing.T) {
	cases := []struct {
		name     string
		in       Input
		total    string
		due      string
		payments string
		status   PaymentStatus
	}{
		{
			name:     "fully paid on create",
			in:       Input{Items: []Line{{Quantity: 2, UnitPrice: d("50")}}, NewPaymentAmount: d("100")},
			total:    "100",
			due:      "0",
			payments: "100",
			status:   PaymentStatusPaid,
		},
		{
			name:     "partial payment",
			in:       Input{Items: []Line{{Quantity: 1, UnitPrice: d("100")}}, NewPaymentAmount: d("40")},
			total:    "100",
			due:      "60",
			payments: "40",
			status:   PaymentStatusPartial,
		},
		{
			name:     "nothing paid",
			in:       Input{Items: []Line{{Quantity: 3, UnitPrice: d("12.5")}}},
			total:    "37.5",
			due:      "37.5",
			payments: "0",
			status:   PaymentStatusPending,
		},
		{
			name: "discount and existing payments",
			in: Input{
				Items:                 []Line{{Quantity: 2, UnitPrice: d("30")}, {Quantity: 1, UnitPrice: d("15.25")}},
				Discount:              d("5.25"),
				ExistingPaymentsTotal: d("20"),
				NewPaymentAmount:      d("10"),
			},
			total:    "70",
			due:      "40",
			payments: "30",
			status:   PaymentStatusPartial,
		},
		{
			name:     "overpaid counts as paid",
			in:       Input{Items: []Line{{Quantity: 1, UnitPrice: d("10")}}, NewPaymentAmount: d("15")},
			total:    "10",
			due:      "-5",
			payments: "15",
			status:   PaymentStatusPaid,
		},
		{
			name:     "discount above subtotal is not clamped",
			in:       Input{Items: []Line{{Quantity: 1, UnitPrice: d("10")}}, Discount: d("25")},
			total:    "-15",
			due:      "-15",
			payments: "0",
			status:   PaymentStatusPaid,
		},
		{
			name:     "no items",
			in:       Input{},
			total:    "0",
			due:      "0",
			payments: "0",
			status:   PaymentStatusPaid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.in)
			assert.True(t, got.TotalAmount.Equal(d(tc.total)), "total: got %s", got.TotalAmount)
			assert.True(t, got.AmountDue.Equal(d(tc.due)), "due: got %s", got.AmountDue)
			assert.True(t, got.TotalPayments.Equal(d(tc.payments)), "payments: got %s", got.TotalPayments)
			assert.Equal(t, tc.status, got.PaymentStatus)
		})
	}
}

func TestComputeInvariants(t *testing.T) {
	for qty := 1; qty <= 4; qty++ {
		for _, price := range []string{"0", "0.99", "7", "120.5"} {
			for _, discount := range []string{"0", "1", "3.5"} {
				for _, paid := range []string{"0", "5", "1000"} {
					in := Input{
						Items:            []Line{{Quantity: qty, UnitPrice: d(price)}, {Quantity: 1, UnitPrice: d("2")}},
						Discount:         d(discount),
						NewPaymentAmount: d(paid),
					}
					got := Compute(in)

					wantTotal := d(price).Mul(decimal.NewFromInt(int64(qty))).Add(d("2")).Sub(d(discount))
					assert.True(t, got.TotalAmount.Equal(wantTotal))
					assert.True(t, got.AmountDue.Equal(got.TotalAmount.Sub(got.TotalPayments)))
					assert.Equal(t, DeriveStatus(got.AmountDue, got.TotalAmount), got.PaymentStatus)
				}
			}
		}
	}
}

func TestDeriveStatusBoundaries(t *testing.T) {
	assert.Equal(t, PaymentStatusPaid, DeriveStatus(d("0"), d("100")))
	assert.Equal(t, PaymentStatusPartial, DeriveStatus(d("0.01"), d("100")))
	assert.Equal(t, PaymentStatusPending, DeriveStatus(d("100"), d("100")))
	assert.Equal(t, PaymentStatusPending, DeriveStatus(d("120"), d("100")))
}

func TestRecompute(t *testing.T) {
	got := Recompute(d("80"), d("30"), d("50"))
	assert.True(t, got.AmountDue.IsZero())
	assert.Equal(t, PaymentStatusPaid, got.PaymentStatus)

	got = Recompute(d("80"), d("30"), decimal.Zero)
	assert.True(t, got.AmountDue.Equal(d("50")))
	assert.Equal(t, PaymentStatusPartial, got.PaymentStatus)
}
