package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateOrder          = "CREATE_ORDER"
	ActionUpdateOrder          = "UPDATE_ORDER"
	ActionDeleteOrder          = "DELETE_ORDER"
	ActionChangeOrderStatus    = "CHANGE_ORDER_STATUS"
	ActionRecordPayment        = "RECORD_PAYMENT"
	ActionCreateExpense        = "CREATE_EXPENSE"
	ActionUpdateExpense        = "UPDATE_EXPENSE"
	ActionDeleteExpense        = "DELETE_EXPENSE"
	ActionCreateCustomer       = "CREATE_CUSTOMER"
	ActionUpdateCustomer       = "UPDATE_CUSTOMER"
	ActionDeleteCustomer       = "DELETE_CUSTOMER"
	ActionSaveInvoiceSettings  = "SAVE_INVOICE_SETTINGS"
	ActionDefaultInvoiceConfig = "SET_DEFAULT_INVOICE_SETTINGS"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
