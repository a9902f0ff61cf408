package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus constants
const (
	OrderStatusPending        = "PENDING"
	OrderStatusProcessing     = "PROCESSING"
	OrderStatusReadyForPickup = "READY_FOR_PICKUP"
	OrderStatusCompleted      = "COMPLETED"
	OrderStatusCancelled      = "CANCELLED"
)

// OrderStatuses lists every accepted order status.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusReadyForPickup,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// PaymentMethod constants
const (
	PaymentMethodCash         = "CASH"
	PaymentMethodCard         = "CARD"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodMobileMoney  = "MOBILE_MONEY"
)

// PaymentRecordStatus constants for individual payment rows
const (
	PaymentRecordCompleted = "COMPLETED"
	PaymentRecordPending   = "PENDING"
)

// Order is a customer's laundry request. AmountDue always equals
// TotalAmount - AmountPaid and PaymentStatus is derived from both.
type Order struct {
	ID                   uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber        string               `gorm:"type:varchar(50);uniqueIndex;not null" json:"invoice_number"`
	CustomerID           uuid.UUID            `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer             *Customer            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	BranchID             uuid.UUID            `gorm:"type:uuid;not null;index" json:"branch_id"`
	Branch               *Branch              `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	Items                []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Payments             []Payment            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payments"`
	StatusHistory        []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"status_history,omitempty"`
	Notes                string               `gorm:"type:text" json:"notes"`
	Status               string               `gorm:"type:varchar(30);not null;default:'PENDING';index" json:"status"`
	PaymentStatus        string               `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"payment_status"`
	TotalAmount          decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"total_amount"`
	AmountPaid           decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"amount_paid"`
	AmountDue            decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"amount_due"`
	Discount             decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	OrderDate            time.Time            `gorm:"not null;index" json:"order_date"`
	ExpectedDeliveryDate *time.Time           `json:"expected_delivery_date"`
	InvoiceSettingsID    *uuid.UUID           `gorm:"type:uuid" json:"invoice_settings_id"` // nil for manual numbers
	CreatedBy            *uuid.UUID           `gorm:"type:uuid" json:"created_by"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// OrderItem is one service performed on one category of garment
type OrderItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ServiceTypeID uuid.UUID       `gorm:"type:uuid;not null;index" json:"service_type_id"`
	ServiceType   *ServiceType    `gorm:"foreignKey:ServiceTypeID" json:"service_type,omitempty"`
	CategoryID    *uuid.UUID      `gorm:"type:uuid;index" json:"category_id"`
	Category      *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Quantity      int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"` // quantity * unit_price
	Size          string          `gorm:"type:varchar(50)" json:"size"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Payment is an amount applied against an order. Rows are never edited;
// corrections are recorded as new rows.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Order         *Order          `gorm:"foreignKey:OrderID" json:"-"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;index" json:"payment_method"`
	Status        string          `gorm:"type:varchar(20);not null;default:'COMPLETED'" json:"status"`
	TransactionID string          `gorm:"type:varchar(100)" json:"transaction_id"`
	ReceivedBy    *uuid.UUID      `gorm:"type:uuid" json:"received_by"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// OrderStatusHistory is an append-only log of status changes
type OrderStatusHistory struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	PreviousStatus string     `gorm:"type:varchar(30);not null" json:"previous_status"`
	NewStatus      string     `gorm:"type:varchar(30);not null" json:"new_status"`
	ChangedBy      *uuid.UUID `gorm:"type:uuid" json:"changed_by"`
	Note           string     `gorm:"type:text" json:"note"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}
