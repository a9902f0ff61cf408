package service

import (
	"context"
	"strings"

	"laundry/internal/apperror"
	"laundry/internal/model"
	"laundry/internal/repository"
	"laundry/pkg/validation"
)

type CustomerRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type CustomerResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Address   string          `json:"address"`
	Notes     string          `json:"notes"`
	Orders    []OrderResponse `json:"orders,omitempty"`
	CreatedAt string          `json:"created_at"`
}

type CustomerService interface {
	ListCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error)
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	CreateCustomer(ctx context.Context, req CustomerRequest, actorID string) (CustomerResponse, error)
	UpdateCustomer(ctx context.Context, id string, req CustomerRequest, actorID string) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string, actorID string) error
}

type customerService struct {
	customers   repository.CustomerRepository
	orders      repository.OrderRepository
	audit       repository.AuditRepository
	txManager   repository.TransactionManager
	phoneRegion string
}

func NewCustomerService(
	customers repository.CustomerRepository,
	orders repository.OrderRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	phoneRegion string,
) CustomerService {
	return &customerService{
		customers:   customers,
		orders:      orders,
		audit:       audit,
		txManager:   txManager,
		phoneRegion: phoneRegion,
	}
}

// recentOrdersLimit caps the order history embedded in a customer detail.
const recentOrdersLimit = 50

func (s *customerService) ListCustomers(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error) {
	customers, total, err := s.customers.List(ctx, strings.TrimSpace(search), repository.Page{Page: page, Limit: limit})
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch customers", err)
	}
	res := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		res = append(res, toCustomerResponse(c))
	}
	return res, total, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	customerID, err := parseID("id", id)
	if err != nil {
		return CustomerResponse{}, err
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return CustomerResponse{}, notFoundAs(err, apperror.CodeCustomerNotFound, "customer not found")
	}

	orders, _, err := s.orders.List(ctx, repository.OrderListFilter{
		Page:       repository.Page{Page: 1, Limit: recentOrdersLimit},
		CustomerID: &customerID,
	})
	if err != nil {
		return CustomerResponse{}, apperror.Internal("failed to fetch customer orders", err)
	}

	resp := toCustomerResponse(*customer)
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	return resp, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, req CustomerRequest, actorID string) (CustomerResponse, error) {
	phone, err := s.normalizePhone(req.Phone)
	if err != nil {
		return CustomerResponse{}, err
	}

	customer := model.Customer{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   phone,
		Address: strings.TrimSpace(req.Address),
		Notes:   req.Notes,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customers.Create(txCtx, &customer); err != nil {
			return apperror.Internal("failed to create customer", err)
		}
		return recordAudit(txCtx, s.audit, parseActor(actorID), model.ActionCreateCustomer, customer.ID.String(), customer.Name, nil)
	})
	if err != nil {
		return CustomerResponse{}, err
	}
	return toCustomerResponse(customer), nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req CustomerRequest, actorID string) (CustomerResponse, error) {
	customerID, err := parseID("id", id)
	if err != nil {
		return CustomerResponse{}, err
	}
	phone, err := s.normalizePhone(req.Phone)
	if err != nil {
		return CustomerResponse{}, err
	}

	var customer *model.Customer
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		customer, findErr = s.customers.FindByID(txCtx, customerID)
		if findErr != nil {
			return notFoundAs(findErr, apperror.CodeCustomerNotFound, "customer not found")
		}
		customer.Name = strings.TrimSpace(req.Name)
		customer.Email = strings.TrimSpace(req.Email)
		customer.Phone = phone
		customer.Address = strings.TrimSpace(req.Address)
		customer.Notes = req.Notes
		if err := s.customers.Update(txCtx, customer); err != nil {
			return apperror.Internal("failed to update customer", err)
		}
		return recordAudit(txCtx, s.audit, parseActor(actorID), model.ActionUpdateCustomer, customer.ID.String(), customer.Name, nil)
	})
	if err != nil {
		return CustomerResponse{}, err
	}
	return toCustomerResponse(*customer), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string, actorID string) error {
	customerID, err := parseID("id", id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		customer, err := s.customers.FindByID(txCtx, customerID)
		if err != nil {
			return notFoundAs(err, apperror.CodeCustomerNotFound, "customer not found")
		}
		count, err := s.orders.CountByCustomer(txCtx, customerID)
		if err != nil {
			return apperror.Internal("failed to count customer orders", err)
		}
		if count > 0 {
			return apperror.Conflict(apperror.CodeCustomerHasOrders, "customer has orders and cannot be deleted").
				WithDetail("orders", count)
		}
		if err := s.customers.Delete(txCtx, customerID); err != nil {
			return apperror.Internal("failed to delete customer", err)
		}
		return recordAudit(txCtx, s.audit, parseActor(actorID), model.ActionDeleteCustomer, customerID.String(), customer.Name, nil)
	})
}

func (s *customerService) normalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	phone, err := validation.NormalizePhoneNumber(raw, s.phoneRegion)
	if err != nil {
		return "", apperror.Validation(apperror.CodeValidationFailed, "invalid phone number", map[string]string{"phone": "phone"})
	}
	return phone, nil
}

func toCustomerResponse(c model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt.Format(timeLayout),
	}
}
