package repository

import (
	"context"

	"laundry/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BranchRepository interface {
	Create(ctx context.Context, branch *model.Branch) error
	Update(ctx context.Context, branch *model.Branch) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	List(ctx context.Context, activeOnly bool) ([]model.Branch, error)
}

type ServiceTypeRepository interface {
	Create(ctx context.Context, serviceType *model.ServiceType) error
	Update(ctx context.Context, serviceType *model.ServiceType) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceType, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ServiceType, error)
	List(ctx context.Context, activeOnly bool) ([]model.ServiceType, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
}

type branchRepository struct {
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) Create(ctx context.Context, branch *model.Branch) error {
	return GetDB(ctx, r.db).Create(branch).Error
}

func (r *branchRepository) Update(ctx context.Context, branch *model.Branch) error {
	return GetDB(ctx, r.db).Save(branch).Error
}

func (r *branchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Branch{}, "id = ?", id).Error
}

func (r *branchRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	var branch model.Branch
	if err := GetDB(ctx, r.db).First(&branch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) List(ctx context.Context, activeOnly bool) ([]model.Branch, error) {
	var branches []model.Branch
	query := GetDB(ctx, r.db).Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

type serviceTypeRepository struct {
	db *gorm.DB
}

func NewServiceTypeRepository(db *gorm.DB) ServiceTypeRepository {
	return &serviceTypeRepository{db: db}
}

func (r *serviceTypeRepository) Create(ctx context.Context, serviceType *model.ServiceType) error {
	return GetDB(ctx, r.db).Create(serviceType).Error
}

func (r *serviceTypeRepository) Update(ctx context.Context, serviceType *model.ServiceType) error {
	return GetDB(ctx, r.db).Save(serviceType).Error
}

func (r *serviceTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.ServiceType{}, "id = ?", id).Error
}

func (r *serviceTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceType, error) {
	var serviceType model.ServiceType
	if err := GetDB(ctx, r.db).First(&serviceType, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &serviceType, nil
}

func (r *serviceTypeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ServiceType, error) {
	var serviceTypes []model.ServiceType
	if len(ids) == 0 {
		return serviceTypes, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&serviceTypes).Error; err != nil {
		return nil, err
	}
	return serviceTypes, nil
}

func (r *serviceTypeRepository) List(ctx context.Context, activeOnly bool) ([]model.ServiceType, error) {
	var serviceTypes []model.ServiceType
	query := GetDB(ctx, r.db).Order("name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&serviceTypes).Error; err != nil {
		return nil, err
	}
	return serviceTypes, nil
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return GetDB(ctx, r.db).Create(category).Error
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	return GetDB(ctx, r.db).Save(category).Error
}

func (r *categoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Category{}, "id = ?", id).Error
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	if err := GetDB(ctx, r.db).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Category, error) {
	var categories []model.Category
	if len(ids) == 0 {
		return categories, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := GetDB(ctx, r.db).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}
