package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense category constants
const (
	ExpenseCategorySupplies    = "SUPPLIES"
	ExpenseCategoryUtilities   = "UTILITIES"
	ExpenseCategoryRent        = "RENT"
	ExpenseCategorySalary      = "SALARY"
	ExpenseCategoryMaintenance = "MAINTENANCE"
	ExpenseCategoryEquipment   = "EQUIPMENT"
	ExpenseCategoryOther       = "OTHER"
)

// Expense is an operating cost (detergent, rent, utilities...)
type Expense struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BranchID      *uuid.UUID      `gorm:"type:uuid;index" json:"branch_id"`
	Branch        *Branch         `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	Category      string          `gorm:"type:varchar(30);not null;index" json:"category"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'CASH'" json:"payment_method"`
	Description   string          `gorm:"type:text" json:"description"`
	ExpenseDate   time.Time       `gorm:"not null;index" json:"expense_date"`
	ReceiptURL    string          `gorm:"type:text" json:"receipt_url"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
