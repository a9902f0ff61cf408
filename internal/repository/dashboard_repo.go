package repository

import (
	"context"
	"fmt"
	"time"

	"laundry/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardRange bounds an aggregate query; BranchID nil means every branch.
type DashboardRange struct {
	From     time.Time
	To       time.Time
	BranchID *uuid.UUID
}

type DashboardRepository interface {
	PaymentsTotal(ctx context.Context, r DashboardRange) (decimal.Decimal, error)
	ExpensesTotal(ctx context.Context, r DashboardRange) (decimal.Decimal, error)
	OrderTotals(ctx context.Context, r DashboardRange) (count int64, value decimal.Decimal, err error)
	OutstandingBalance(ctx context.Context, branchID *uuid.UUID) (decimal.Decimal, error)
	CountByStatus(ctx context.Context, r DashboardRange) ([]model.StatusCount, error)
	CountByPaymentStatus(ctx context.Context, r DashboardRange) ([]model.StatusCount, error)
	DailySeries(ctx context.Context, r DashboardRange) ([]model.DailyAmount, error)
	TopServices(ctx context.Context, r DashboardRange, limit int) ([]model.ServiceRanking, error)
	OrdersForExport(ctx context.Context, r DashboardRange) ([]model.Order, error)
	ExpensesForExport(ctx context.Context, r DashboardRange) ([]model.Expense, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) PaymentsTotal(ctx context.Context, rg DashboardRange) (decimal.Decimal, error) {
	var result struct{ Total decimal.Decimal }
	query := r.db.WithContext(ctx).Table("payments").
		Select("COALESCE(SUM(payments.amount), 0) AS total").
		Where("payments.created_at >= ? AND payments.created_at <= ?", rg.From, rg.To)
	if rg.BranchID != nil {
		query = query.Joins("JOIN orders ON orders.id = payments.order_id").Where("orders.branch_id = ?", *rg.BranchID)
	}
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum payments: %w", err)
	}
	return result.Total, nil
}

func (r *dashboardRepository) ExpensesTotal(ctx context.Context, rg DashboardRange) (decimal.Decimal, error) {
	var result struct{ Total decimal.Decimal }
	query := r.db.WithContext(ctx).Table("expenses").
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("expense_date >= ? AND expense_date <= ?", rg.From, rg.To)
	if rg.BranchID != nil {
		query = query.Where("branch_id = ?", *rg.BranchID)
	}
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return result.Total, nil
}

func (r *dashboardRepository) OrderTotals(ctx context.Context, rg DashboardRange) (int64, decimal.Decimal, error) {
	var result struct {
		Count int64
		Value decimal.Decimal
	}
	query := r.ordersInRange(ctx, rg).
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS value").
		Where("status <> ?", model.OrderStatusCancelled)
	if err := query.Scan(&result).Error; err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to total orders: %w", err)
	}
	return result.Count, result.Value, nil
}

func (r *dashboardRepository) OutstandingBalance(ctx context.Context, branchID *uuid.UUID) (decimal.Decimal, error) {
	var result struct{ Total decimal.Decimal }
	query := r.db.WithContext(ctx).Table("orders").
		Select("COALESCE(SUM(amount_due), 0) AS total").
		Where("amount_due > 0 AND status <> ?", model.OrderStatusCancelled)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum outstanding balance: %w", err)
	}
	return result.Total, nil
}

func (r *dashboardRepository) CountByStatus(ctx context.Context, rg DashboardRange) ([]model.StatusCount, error) {
	var rows []model.StatusCount
	if err := r.ordersInRange(ctx, rg).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	return rows, nil
}

func (r *dashboardRepository) CountByPaymentStatus(ctx context.Context, rg DashboardRange) ([]model.StatusCount, error) {
	var rows []model.StatusCount
	if err := r.ordersInRange(ctx, rg).
		Select("payment_status AS status, COUNT(*) AS count").
		Where("status <> ?", model.OrderStatusCancelled).
		Group("payment_status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders by payment status: %w", err)
	}
	return rows, nil
}

func (r *dashboardRepository) DailySeries(ctx context.Context, rg DashboardRange) ([]model.DailyAmount, error) {
	query := `
		WITH days AS (
			SELECT generate_series(date_trunc('day', $1::timestamptz), date_trunc('day', $2::timestamptz), interval '1 day') AS day
		),
		rev AS (
			SELECT date_trunc('day', p.created_at) AS day, SUM(p.amount) AS amount
			FROM payments p
			JOIN orders o ON o.id = p.order_id
			WHERE p.created_at >= $1 AND p.created_at <= $2
			  AND ($3::uuid IS NULL OR o.branch_id = $3::uuid)
			GROUP BY 1
		),
		exp AS (
			SELECT date_trunc('day', e.expense_date) AS day, SUM(e.amount) AS amount
			FROM expenses e
			WHERE e.expense_date >= $1 AND e.expense_date <= $2
			  AND ($3::uuid IS NULL OR e.branch_id = $3::uuid)
			GROUP BY 1
		)
		SELECT TO_CHAR(days.day, 'YYYY-MM-DD') AS day,
			COALESCE(rev.amount, 0) AS revenue,
			COALESCE(exp.amount, 0) AS expenses
		FROM days
		LEFT JOIN rev ON rev.day = days.day
		LEFT JOIN exp ON exp.day = days.day
		ORDER BY days.day
	`

	var rows []model.DailyAmount
	if err := r.db.WithContext(ctx).Raw(query, rg.From, rg.To, rg.BranchID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query daily series: %w", err)
	}
	return rows, nil
}

func (r *dashboardRepository) TopServices(ctx context.Context, rg DashboardRange, limit int) ([]model.ServiceRanking, error) {
	var rankings []model.ServiceRanking
	query := r.db.WithContext(ctx).Table("order_items").
		Select("service_types.id AS service_type_id, service_types.name AS service_type_name, SUM(order_items.quantity) AS total_quantity, SUM(order_items.subtotal) AS total_value").
		Joins("JOIN service_types ON service_types.id = order_items.service_type_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ? AND orders.order_date >= ? AND orders.order_date <= ?", model.OrderStatusCancelled, rg.From, rg.To)
	if rg.BranchID != nil {
		query = query.Where("orders.branch_id = ?", *rg.BranchID)
	}
	if err := query.
		Group("service_types.id, service_types.name").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top services: %w", err)
	}
	return rankings, nil
}

func (r *dashboardRepository) OrdersForExport(ctx context.Context, rg DashboardRange) ([]model.Order, error) {
	var orders []model.Order
	query := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Branch").
		Where("order_date >= ? AND order_date <= ?", rg.From, rg.To)
	if rg.BranchID != nil {
		query = query.Where("branch_id = ?", *rg.BranchID)
	}
	if err := query.Order("order_date ASC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders for export: %w", err)
	}
	return orders, nil
}

func (r *dashboardRepository) ExpensesForExport(ctx context.Context, rg DashboardRange) ([]model.Expense, error) {
	var expenses []model.Expense
	query := r.db.WithContext(ctx).
		Preload("Branch").
		Where("expense_date >= ? AND expense_date <= ?", rg.From, rg.To)
	if rg.BranchID != nil {
		query = query.Where("branch_id = ?", *rg.BranchID)
	}
	if err := query.Order("expense_date ASC").Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("failed to load expenses for export: %w", err)
	}
	return expenses, nil
}

func (r *dashboardRepository) ordersInRange(ctx context.Context, rg DashboardRange) *gorm.DB {
	query := r.db.WithContext(ctx).Table("orders").
		Where("order_date >= ? AND order_date <= ?", rg.From, rg.To)
	if rg.BranchID != nil {
		query = query.Where("branch_id = ?", *rg.BranchID)
	}
	return query
}
