package database

import (
	"fmt"

	"laundry/internal/logger"
	"laundry/internal/model"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// singleDefaultSettingsIndex makes "at most one default invoice settings row" a database invariant.
const singleDefaultSettingsIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_invoice_settings_single_default
	ON invoice_settings (is_default) WHERE is_default`

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, debug bool) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
	}

	if err := Migrate(db); err != nil {
		logger.Get().WithError(err).Warn("failed to auto-migrate models")
	}

	return db, nil
}

// Migrate creates or updates every table the API owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Branch{},
		&model.User{},
		&model.RefreshToken{},
		&model.Customer{},
		&model.ServiceType{},
		&model.Category{},
		&model.InvoiceSettings{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.OrderStatusHistory{},
		&model.Expense{},
		&model.AuditLog{},
	)
	if err != nil {
		return err
	}
	return db.Exec(singleDefaultSettingsIndex).Error
}
