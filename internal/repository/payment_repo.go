package repository

import (
	"context"
	"time"

	"laundry/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentListFilter narrows payment listings. Zero values are ignored.
type PaymentListFilter struct {
	Page
	PaymentMethod string
	BranchID      *uuid.UUID
	From          *time.Time
	To            *time.Time
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error)
	SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	List(ctx context.Context, filter PaymentListFilter) ([]model.Payment, int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(payment).Error
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := GetDB(ctx, r.db).Where("order_id = ?", orderID).Order("created_at ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("order_id = ?", orderID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentListFilter) ([]model.Payment, int64, error) {
	var payments []model.Payment
	var total int64

	db := GetDB(ctx, r.db)
	if err := applyPaymentFilter(db.Model(&model.Payment{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := applyPaymentFilter(db.Model(&model.Payment{}), filter).
		Select("payments.*").
		Order("payments.created_at DESC").
		Offset(filter.offset()).Limit(filter.limit()).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func applyPaymentFilter(q *gorm.DB, f PaymentListFilter) *gorm.DB {
	if f.PaymentMethod != "" {
		q = q.Where("payments.payment_method = ?", f.PaymentMethod)
	}
	if f.From != nil {
		q = q.Where("payments.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("payments.created_at <= ?", *f.To)
	}
	if f.BranchID != nil {
		q = q.Joins("JOIN orders ON orders.id = payments.order_id").Where("orders.branch_id = ?", *f.BranchID)
	}
	return q
}
