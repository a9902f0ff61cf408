package service

import (
	"context"
	"io"
	"strings"
	"time"

	"laundry/internal/apperror"
	"laundry/internal/cache"
	"laundry/internal/model"
	"laundry/internal/repository"
	"laundry/internal/storage"
)

const (
	eventExpenseCreated = "expense.created"
	eventExpenseUpdated = "expense.updated"
)

// --- DTOs ---

type ExpenseRequest struct {
	BranchID      string     `json:"branch_id" binding:"omitempty,uuid"`
	Category      string     `json:"category" binding:"required,oneof=SUPPLIES UTILITIES RENT SALARY MAINTENANCE EQUIPMENT OTHER"`
	Amount        string     `json:"amount" binding:"required,decimal_gte0"`
	PaymentMethod string     `json:"payment_method" binding:"omitempty,oneof=CASH CARD BANK_TRANSFER MOBILE_MONEY"`
	Description   string     `json:"description"`
	ExpenseDate   *time.Time `json:"expense_date"`
}

type ExpenseFilter struct {
	BranchID string
	Category string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

type ExpenseResponse struct {
	ID            string  `json:"id"`
	BranchID      *string `json:"branch_id"`
	BranchName    string  `json:"branch_name,omitempty"`
	Category      string  `json:"category"`
	Amount        string  `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Description   string  `json:"description"`
	ExpenseDate   string  `json:"expense_date"`
	ReceiptURL    string  `json:"receipt_url"`
	CreatedBy     *string `json:"created_by"`
	CreatedAt     string  `json:"created_at"`
}

// --- Interface ---

type ExpenseService interface {
	CreateExpense(ctx context.Context, userID string, req ExpenseRequest) (ExpenseResponse, error)
	UpdateExpense(ctx context.Context, id string, userID string, req ExpenseRequest) (ExpenseResponse, error)
	DeleteExpense(ctx context.Context, id string, userID string) error
	GetExpense(ctx context.Context, id string) (ExpenseResponse, error)
	GetExpenses(ctx context.Context, filter ExpenseFilter) ([]ExpenseResponse, int64, error)
	UploadReceipt(ctx context.Context, id string, userID string, filename, contentType string, r io.Reader) (ExpenseResponse, error)
}

type ExpenseServiceDeps struct {
	Expenses  repository.ExpenseRepository
	Branches  repository.BranchRepository
	Audit     repository.AuditRepository
	TxManager repository.TransactionManager
	Receipts  storage.Uploader // nil disables receipt uploads
	Events    EventPublisher
	Cache     *cache.Cache
	Clock     Clock
}

type expenseService struct {
	expenses  repository.ExpenseRepository
	branches  repository.BranchRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
	receipts  storage.Uploader
	events    EventPublisher
	cache     *cache.Cache
	now       Clock
}

func NewExpenseService(deps ExpenseServiceDeps) ExpenseService {
	s := &expenseService{
		expenses:  deps.Expenses,
		branches:  deps.Branches,
		audit:     deps.Audit,
		txManager: deps.TxManager,
		receipts:  deps.Receipts,
		events:    deps.Events,
		cache:     deps.Cache,
		now:       deps.Clock,
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.now == nil {
		s.now = systemClock
	}
	return s
}

// --- Implementation ---

func (s *expenseService) CreateExpense(ctx context.Context, userID string, req ExpenseRequest) (ExpenseResponse, error) {
	expense, err := s.fromRequest(ctx, req)
	if err != nil {
		return ExpenseResponse{}, err
	}
	expense.CreatedBy = parseActor(userID)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.expenses.Create(txCtx, expense); err != nil {
			return apperror.Internal("failed to create expense", err)
		}
		return recordAudit(txCtx, s.audit, expense.CreatedBy, model.ActionCreateExpense, expense.ID.String(), expense.Category, map[string]string{
			"amount":   money(expense.Amount),
			"category": expense.Category,
		})
	})
	if err != nil {
		return ExpenseResponse{}, err
	}

	resp := toExpenseResponse(*expense)
	s.afterCommit(ctx, eventExpenseCreated, resp)
	return resp, nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, id string, userID string, req ExpenseRequest) (ExpenseResponse, error) {
	expenseID, err := parseID("id", id)
	if err != nil {
		return ExpenseResponse{}, err
	}
	changes, err := s.fromRequest(ctx, req)
	if err != nil {
		return ExpenseResponse{}, err
	}

	var expense *model.Expense
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		expense, findErr = s.expenses.FindByID(txCtx, expenseID)
		if findErr != nil {
			return notFoundAs(findErr, apperror.CodeExpenseNotFound, "expense not found")
		}
		expense.BranchID = changes.BranchID
		expense.Branch = nil
		expense.Category = changes.Category
		expense.Amount = changes.Amount
		expense.PaymentMethod = changes.PaymentMethod
		expense.Description = changes.Description
		expense.ExpenseDate = changes.ExpenseDate
		if err := s.expenses.Update(txCtx, expense); err != nil {
			return apperror.Internal("failed to update expense", err)
		}
		return recordAudit(txCtx, s.audit, parseActor(userID), model.ActionUpdateExpense, expense.ID.String(), expense.Category, map[string]string{
			"amount": money(expense.Amount),
		})
	})
	if err != nil {
		return ExpenseResponse{}, err
	}

	resp := toExpenseResponse(*expense)
	s.afterCommit(ctx, eventExpenseUpdated, resp)
	return resp, nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, id string, userID string) error {
	expenseID, err := parseID("id", id)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		expense, err := s.expenses.FindByID(txCtx, expenseID)
		if err != nil {
			return notFoundAs(err, apperror.CodeExpenseNotFound, "expense not found")
		}
		if err := s.expenses.Delete(txCtx, expenseID); err != nil {
			return apperror.Internal("failed to delete expense", err)
		}
		return recordAudit(txCtx, s.audit, parseActor(userID), model.ActionDeleteExpense, expenseID.String(), expense.Category, map[string]string{
			"amount": money(expense.Amount),
		})
	})
	if err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, dashboardCacheGroup); err != nil {
		logSoftError("expenseService", "DeleteExpense", err)
	}
	return nil
}

func (s *expenseService) GetExpense(ctx context.Context, id string) (ExpenseResponse, error) {
	expenseID, err := parseID("id", id)
	if err != nil {
		return ExpenseResponse{}, err
	}
	expense, err := s.expenses.FindByID(ctx, expenseID)
	if err != nil {
		return ExpenseResponse{}, notFoundAs(err, apperror.CodeExpenseNotFound, "expense not found")
	}
	return toExpenseResponse(*expense), nil
}

func (s *expenseService) GetExpenses(ctx context.Context, filter ExpenseFilter) ([]ExpenseResponse, int64, error) {
	branchID, err := parseOptionalID("branch_id", filter.BranchID)
	if err != nil {
		return nil, 0, err
	}
	expenses, total, err := s.expenses.List(ctx, repository.ExpenseListFilter{
		Page:     repository.Page{Page: filter.Page, Limit: filter.Limit},
		BranchID: branchID,
		Category: filter.Category,
		From:     filter.From,
		To:       filter.To,
	})
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch expenses", err)
	}

	res := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		res = append(res, toExpenseResponse(e))
	}
	return res, total, nil
}

// UploadReceipt stores the file first and then points the expense at it.
// A failed database update leaves an orphan object, never a dangling URL.
func (s *expenseService) UploadReceipt(ctx context.Context, id string, userID string, filename, contentType string, r io.Reader) (ExpenseResponse, error) {
	if s.receipts == nil {
		return ExpenseResponse{}, apperror.Unavailable(apperror.CodeStorageDisabled, "receipt storage is not configured")
	}
	expenseID, err := parseID("id", id)
	if err != nil {
		return ExpenseResponse{}, err
	}
	if _, err := s.expenses.FindByID(ctx, expenseID); err != nil {
		return ExpenseResponse{}, notFoundAs(err, apperror.CodeExpenseNotFound, "expense not found")
	}

	url, err := s.receipts.Upload(ctx, storage.ReceiptObjectName(expenseID, filename, s.now()), contentType, r)
	if err != nil {
		return ExpenseResponse{}, apperror.Internal("failed to upload receipt", err)
	}

	var expense *model.Expense
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		expense, findErr = s.expenses.FindByID(txCtx, expenseID)
		if findErr != nil {
			return notFoundAs(findErr, apperror.CodeExpenseNotFound, "expense not found")
		}
		expense.ReceiptURL = url
		if err := s.expenses.Update(txCtx, expense); err != nil {
			return apperror.Internal("failed to attach receipt", err)
		}
		return recordAudit(txCtx, s.audit, parseActor(userID), model.ActionUpdateExpense, expense.ID.String(), expense.Category, map[string]string{
			"receipt_url": url,
		})
	})
	if err != nil {
		return ExpenseResponse{}, err
	}
	return toExpenseResponse(*expense), nil
}

// --- Helpers ---

func (s *expenseService) fromRequest(ctx context.Context, req ExpenseRequest) (*model.Expense, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	branchID, err := parseOptionalID("branch_id", req.BranchID)
	if err != nil {
		return nil, err
	}
	if branchID != nil {
		if _, err := s.branches.FindByID(ctx, *branchID); err != nil {
			return nil, notFoundAs(err, apperror.CodeBranchNotFound, "branch not found")
		}
	}

	expenseDate := s.now()
	if req.ExpenseDate != nil {
		expenseDate = *req.ExpenseDate
	}
	return &model.Expense{
		BranchID:      branchID,
		Category:      req.Category,
		Amount:        amount,
		PaymentMethod: paymentMethodOrDefault(req.PaymentMethod),
		Description:   strings.TrimSpace(req.Description),
		ExpenseDate:   expenseDate,
	}, nil
}

func (s *expenseService) afterCommit(ctx context.Context, event string, data any) {
	s.events.Publish(event, data)
	if err := s.cache.Invalidate(ctx, dashboardCacheGroup); err != nil {
		logSoftError("expenseService", event, err)
	}
}

// --- Mapping ---

func toExpenseResponse(e model.Expense) ExpenseResponse {
	resp := ExpenseResponse{
		ID:            e.ID.String(),
		BranchID:      uuidString(e.BranchID),
		Category:      e.Category,
		Amount:        money(e.Amount),
		PaymentMethod: e.PaymentMethod,
		Description:   e.Description,
		ExpenseDate:   e.ExpenseDate.Format(timeLayout),
		ReceiptURL:    e.ReceiptURL,
		CreatedBy:     uuidString(e.CreatedBy),
		CreatedAt:     e.CreatedAt.Format(timeLayout),
	}
	if e.Branch != nil {
		resp.BranchName = e.Branch.Name
	}
	return resp
}
