package repository

import (
	"context"

	"laundry/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceSettingsRepository interface {
	Create(ctx context.Context, settings *model.InvoiceSettings) error
	// CreateDefault inserts settings as the default row unless another
	// default already exists. Callers re-read the default afterwards.
	CreateDefault(ctx context.Context, settings *model.InvoiceSettings) error
	Update(ctx context.Context, settings *model.InvoiceSettings) error
	Delete(ctx context.Context, id uuid.UUID) error
	// FindByID and FindDefault lock the row when called inside a transaction.
	FindByID(ctx context.Context, id uuid.UUID) (*model.InvoiceSettings, error)
	FindDefault(ctx context.Context) (*model.InvoiceSettings, error)
	List(ctx context.Context) ([]model.InvoiceSettings, error)
	UnsetDefaults(ctx context.Context) error
	SetCounter(ctx context.Context, id uuid.UUID, counter int64) error
}

type invoiceSettingsRepository struct {
	db *gorm.DB
}

func NewInvoiceSettingsRepository(db *gorm.DB) InvoiceSettingsRepository {
	return &invoiceSettingsRepository{db: db}
}

func (r *invoiceSettingsRepository) Create(ctx context.Context, settings *model.InvoiceSettings) error {
	return GetDB(ctx, r.db).Create(settings).Error
}

func (r *invoiceSettingsRepository) CreateDefault(ctx context.Context, settings *model.InvoiceSettings) error {
	settings.IsDefault = true
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(settings).Error
}

func (r *invoiceSettingsRepository) Update(ctx context.Context, settings *model.InvoiceSettings) error {
	return GetDB(ctx, r.db).Save(settings).Error
}

func (r *invoiceSettingsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.InvoiceSettings{}, "id = ?", id).Error
}

func (r *invoiceSettingsRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.InvoiceSettings, error) {
	var settings model.InvoiceSettings
	if err := forUpdate(ctx, GetDB(ctx, r.db)).First(&settings, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *invoiceSettingsRepository) FindDefault(ctx context.Context) (*model.InvoiceSettings, error) {
	var settings model.InvoiceSettings
	if err := forUpdate(ctx, GetDB(ctx, r.db)).Where("is_default = ?", true).First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *invoiceSettingsRepository) List(ctx context.Context) ([]model.InvoiceSettings, error) {
	var list []model.InvoiceSettings
	if err := GetDB(ctx, r.db).Order("is_default DESC, name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *invoiceSettingsRepository) UnsetDefaults(ctx context.Context) error {
	return GetDB(ctx, r.db).Model(&model.InvoiceSettings{}).
		Where("is_default = ?", true).
		Update("is_default", false).Error
}

func (r *invoiceSettingsRepository) SetCounter(ctx context.Context, id uuid.UUID, counter int64) error {
	return GetDB(ctx, r.db).Model(&model.InvoiceSettings{}).
		Where("id = ?", id).
		Update("current_counter", counter).Error
}
