package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummary aggregates the money and workload of a date range
type DashboardSummary struct {
	From               time.Time        `json:"from"`
	To                 time.Time        `json:"to"`
	Revenue            decimal.Decimal  `json:"revenue"` // payments received in range
	Expenses           decimal.Decimal  `json:"expenses"`
	NetIncome          decimal.Decimal  `json:"net_income"`
	OrderCount         int64            `json:"order_count"`
	OrderValue         decimal.Decimal  `json:"order_value"`
	AverageOrderValue  decimal.Decimal  `json:"average_order_value"`
	OutstandingBalance decimal.Decimal  `json:"outstanding_balance"`
	OrdersByStatus     map[string]int64 `json:"orders_by_status"`
	OrdersByPayment    map[string]int64 `json:"orders_by_payment_status"`
}

// DailyAmount is one day of a revenue/expense series
type DailyAmount struct {
	Day      string          `json:"day" gorm:"column:day"`
	Revenue  decimal.Decimal `json:"revenue" gorm:"column:revenue"`
	Expenses decimal.Decimal `json:"expenses" gorm:"column:expenses"`
}

// ServiceRanking ranks service types by billed quantity
type ServiceRanking struct {
	ServiceTypeID   string          `json:"service_type_id" gorm:"column:service_type_id"`
	ServiceTypeName string          `json:"service_type_name" gorm:"column:service_type_name"`
	TotalQuantity   int64           `json:"total_quantity" gorm:"column:total_quantity"`
	TotalValue      decimal.Decimal `json:"total_value" gorm:"column:total_value"`
}

// StatusCount is a grouped count row
type StatusCount struct {
	Status string `gorm:"column:status"`
	Count  int64  `gorm:"column:count"`
}
