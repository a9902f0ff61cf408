package repository

import (
	"context"
	"time"

	"laundry/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderListFilter narrows order listings. Zero values are ignored.
type OrderListFilter struct {
	Page
	Status        string
	PaymentStatus string
	BranchID      *uuid.UUID
	CustomerID    *uuid.UUID
	Search        string // invoice number or customer name
	From          *time.Time
	To            *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	Update(ctx context.Context, order *model.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error)
	CountByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
	List(ctx context.Context, filter OrderListFilter) ([]model.Order, int64, error)

	ListItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)
	CreateItems(ctx context.Context, items []model.OrderItem) error
	UpdateItem(ctx context.Context, item *model.OrderItem) error
	DeleteItems(ctx context.Context, ids []uuid.UUID) error

	AddStatusHistory(ctx context.Context, entry *model.OrderStatusHistory) error
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(order).Error
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("order_id = ?", id).Delete(&model.OrderStatusHistory{}).Error; err != nil {
		return err
	}
	if err := db.Where("order_id = ?", id).Delete(&model.Payment{}).Error; err != nil {
		return err
	}
	if err := db.Where("order_id = ?", id).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Order{}, "id = ?", id).Error
}

// FindByID loads the order row only; inside a transaction the row is locked.
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := forUpdate(ctx, GetDB(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Customer").
		Preload("Branch").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.ServiceType").
		Preload("Items.Category").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Order{}).Where("invoice_number = ?", invoiceNumber).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *orderRepository) CountByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Order{}).Where("customer_id = ?", customerID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderListFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db)
	query := applyOrderFilter(db.Model(&model.Order{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := applyOrderFilter(db.Model(&model.Order{}), filter).
		Select("orders.*").
		Preload("Customer").
		Preload("Branch").
		Order("orders.order_date DESC, orders.created_at DESC").
		Offset(filter.offset()).Limit(filter.limit()).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func applyOrderFilter(q *gorm.DB, f OrderListFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("orders.status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("orders.payment_status = ?", f.PaymentStatus)
	}
	if f.BranchID != nil {
		q = q.Where("orders.branch_id = ?", *f.BranchID)
	}
	if f.CustomerID != nil {
		q = q.Where("orders.customer_id = ?", *f.CustomerID)
	}
	if f.From != nil {
		q = q.Where("orders.order_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("orders.order_date <= ?", *f.To)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Joins("LEFT JOIN customers ON customers.id = orders.customer_id").
			Where("orders.invoice_number ILIKE ? OR customers.name ILIKE ?", like, like)
	}
	return q
}

func (r *orderRepository) ListItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	var items []model.OrderItem
	if err := GetDB(ctx, r.db).Where("order_id = ?", orderID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) CreateItems(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(&items).Error
}

func (r *orderRepository) UpdateItem(ctx context.Context, item *model.OrderItem) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(item).Error
}

func (r *orderRepository) DeleteItems(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Where("id IN ?", ids).Delete(&model.OrderItem{}).Error
}

func (r *orderRepository) AddStatusHistory(ctx context.Context, entry *model.OrderStatusHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *orderRepository) ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusHistory, error) {
	var entries []model.OrderStatusHistory
	if err := GetDB(ctx, r.db).Where("order_id = ?", orderID).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
