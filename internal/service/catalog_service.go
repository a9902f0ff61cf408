package service

import (
	"context"
	"strings"

	"laundry/internal/apperror"
	"laundry/internal/model"
	"laundry/internal/repository"
)

type BranchRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Code     string `json:"code" binding:"required,max=20"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	IsActive *bool  `json:"is_active"`
}

type ServiceTypeRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	BasePrice   string `json:"base_price" binding:"required,decimal_gte0"`
	PricingUnit string `json:"pricing_unit" binding:"omitempty,oneof=PER_ITEM PER_KG PER_LOAD"`
	IsActive    *bool  `json:"is_active"`
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

// CatalogService manages branches, service types and garment categories.
type CatalogService interface {
	ListBranches(ctx context.Context, activeOnly bool) ([]model.Branch, error)
	CreateBranch(ctx context.Context, req BranchRequest) (*model.Branch, error)
	UpdateBranch(ctx context.Context, id string, req BranchRequest) (*model.Branch, error)
	DeleteBranch(ctx context.Context, id string) error

	ListServiceTypes(ctx context.Context, activeOnly bool) ([]model.ServiceType, error)
	CreateServiceType(ctx context.Context, req ServiceTypeRequest) (*model.ServiceType, error)
	UpdateServiceType(ctx context.Context, id string, req ServiceTypeRequest) (*model.ServiceType, error)
	DeleteServiceType(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, req CategoryRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, id string, req CategoryRequest) (*model.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

type catalogService struct {
	branches     repository.BranchRepository
	serviceTypes repository.ServiceTypeRepository
	categories   repository.CategoryRepository
}

func NewCatalogService(
	branches repository.BranchRepository,
	serviceTypes repository.ServiceTypeRepository,
	categories repository.CategoryRepository,
) CatalogService {
	return &catalogService{branches: branches, serviceTypes: serviceTypes, categories: categories}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func (s *catalogService) ListBranches(ctx context.Context, activeOnly bool) ([]model.Branch, error) {
	branches, err := s.branches.List(ctx, activeOnly)
	if err != nil {
		return nil, apperror.Internal("failed to fetch branches", err)
	}
	return branches, nil
}

func (s *catalogService) CreateBranch(ctx context.Context, req BranchRequest) (*model.Branch, error) {
	branch := &model.Branch{
		Name:     strings.TrimSpace(req.Name),
		Code:     strings.ToUpper(strings.TrimSpace(req.Code)),
		Address:  req.Address,
		Phone:    req.Phone,
		IsActive: boolOr(req.IsActive, true),
	}
	if err := s.branches.Create(ctx, branch); err != nil {
		return nil, apperror.Internal("failed to create branch", err)
	}
	return branch, nil
}

func (s *catalogService) UpdateBranch(ctx context.Context, id string, req BranchRequest) (*model.Branch, error) {
	branchID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	branch, err := s.branches.FindByID(ctx, branchID)
	if err != nil {
		return nil, notFoundAs(err, apperror.CodeBranchNotFound, "branch not found")
	}
	branch.Name = strings.TrimSpace(req.Name)
	branch.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	branch.Address = req.Address
	branch.Phone = req.Phone
	branch.IsActive = boolOr(req.IsActive, branch.IsActive)
	if err := s.branches.Update(ctx, branch); err != nil {
		return nil, apperror.Internal("failed to update branch", err)
	}
	return branch, nil
}

func (s *catalogService) DeleteBranch(ctx context.Context, id string) error {
	branchID, err := parseID("id", id)
	if err != nil {
		return err
	}
	if _, err := s.branches.FindByID(ctx, branchID); err != nil {
		return notFoundAs(err, apperror.CodeBranchNotFound, "branch not found")
	}
	if err := s.branches.Delete(ctx, branchID); err != nil {
		return apperror.Internal("failed to delete branch", err)
	}
	return nil
}

func (s *catalogService) ListServiceTypes(ctx context.Context, activeOnly bool) ([]model.ServiceType, error) {
	list, err := s.serviceTypes.List(ctx, activeOnly)
	if err != nil {
		return nil, apperror.Internal("failed to fetch service types", err)
	}
	return list, nil
}

func (s *catalogService) CreateServiceType(ctx context.Context, req ServiceTypeRequest) (*model.ServiceType, error) {
	price, err := parseAmount("base_price", req.BasePrice)
	if err != nil {
		return nil, err
	}
	st := &model.ServiceType{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		BasePrice:   price,
		PricingUnit: pricingUnitOrDefault(req.PricingUnit),
		IsActive:    boolOr(req.IsActive, true),
	}
	if err := s.serviceTypes.Create(ctx, st); err != nil {
		return nil, apperror.Internal("failed to create service type", err)
	}
	return st, nil
}

func (s *catalogService) UpdateServiceType(ctx context.Context, id string, req ServiceTypeRequest) (*model.ServiceType, error) {
	stID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount("base_price", req.BasePrice)
	if err != nil {
		return nil, err
	}
	st, err := s.serviceTypes.FindByID(ctx, stID)
	if err != nil {
		return nil, notFoundAs(err, apperror.CodeInvalidServiceType, "service type not found")
	}
	st.Name = strings.TrimSpace(req.Name)
	st.Description = req.Description
	st.BasePrice = price
	st.PricingUnit = pricingUnitOrDefault(req.PricingUnit)
	st.IsActive = boolOr(req.IsActive, st.IsActive)
	if err := s.serviceTypes.Update(ctx, st); err != nil {
		return nil, apperror.Internal("failed to update service type", err)
	}
	return st, nil
}

func (s *catalogService) DeleteServiceType(ctx context.Context, id string) error {
	stID, err := parseID("id", id)
	if err != nil {
		return err
	}
	if _, err := s.serviceTypes.FindByID(ctx, stID); err != nil {
		return notFoundAs(err, apperror.CodeInvalidServiceType, "service type not found")
	}
	if err := s.serviceTypes.Delete(ctx, stID); err != nil {
		return apperror.Internal("failed to delete service type", err)
	}
	return nil
}

func pricingUnitOrDefault(unit string) string {
	if unit == "" {
		return model.PricingPerItem
	}
	return unit
}

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	list, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to fetch categories", err)
	}
	return list, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, req CategoryRequest) (*model.Category, error) {
	c := &model.Category{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, apperror.Internal("failed to create category", err)
	}
	return c, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id string, req CategoryRequest) (*model.Category, error) {
	categoryID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	c, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return nil, notFoundAs(err, apperror.CodeInvalidCategory, "category not found")
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Description = req.Description
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, apperror.Internal("failed to update category", err)
	}
	return c, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id string) error {
	categoryID, err := parseID("id", id)
	if err != nil {
		return err
	}
	if _, err := s.categories.FindByID(ctx, categoryID); err != nil {
		return notFoundAs(err, apperror.CodeInvalidCategory, "category not found")
	}
	if err := s.categories.Delete(ctx, categoryID); err != nil {
		return apperror.Internal("failed to delete category", err)
	}
	return nil
}
