package model

import (
	"time"

	"github.com/google/uuid"
)

// Baseline configuration used when no default invoice settings row exists.
const (
	DefaultInvoicePrefix     = "INV"
	DefaultInvoiceDigitCount = 4
)

// InvoiceSettings drives invoice number generation. At most one row has
// IsDefault set; a partial unique index enforces it.
type InvoiceSettings struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string     `gorm:"type:varchar(100);not null" json:"name"`
	BranchID       *uuid.UUID `gorm:"type:uuid;index" json:"branch_id"`
	Prefix         string     `gorm:"type:varchar(20);not null;default:'INV'" json:"prefix"`
	IncludeYear    bool       `gorm:"not null" json:"include_year"`
	IncludeMonth   bool       `gorm:"not null" json:"include_month"`
	IncludeDay     bool       `gorm:"not null" json:"include_day"`
	DigitCount     int        `gorm:"type:int;not null;default:4" json:"digit_count"`
	CurrentCounter int64      `gorm:"type:bigint;not null;default:1" json:"current_counter"` // next value to hand out
	IsDefault      bool       `gorm:"not null;default:false" json:"is_default"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (InvoiceSettings) TableName() string {
	return "invoice_settings"
}
