package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"laundry/internal/apperror"
	"laundry/internal/cache"
	"laundry/internal/model"
	"laundry/internal/report"
	"laundry/internal/repository"

	"github.com/shopspring/decimal"
)

const defaultTopServices = 5

// DashboardQuery selects the reporting window. Missing bounds default to
// the start of the current month and now.
type DashboardQuery struct {
	From     *time.Time
	To       *time.Time
	BranchID string
}

type DashboardService interface {
	Summary(ctx context.Context, q DashboardQuery) (model.DashboardSummary, error)
	Revenue(ctx context.Context, q DashboardQuery) ([]model.DailyAmount, error)
	TopServices(ctx context.Context, q DashboardQuery, limit int) ([]model.ServiceRanking, error)
	Export(ctx context.Context, q DashboardQuery, w io.Writer) error
}

type dashboardService struct {
	repo  repository.DashboardRepository
	cache *cache.Cache
	now   Clock
}

func NewDashboardService(repo repository.DashboardRepository, c *cache.Cache, clock Clock) DashboardService {
	if clock == nil {
		clock = systemClock
	}
	return &dashboardService{repo: repo, cache: c, now: clock}
}

func (s *dashboardService) resolveRange(q DashboardQuery) (repository.DashboardRange, error) {
	branchID, err := parseOptionalID("branch_id", q.BranchID)
	if err != nil {
		return repository.DashboardRange{}, err
	}
	now := s.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now
	if q.From != nil {
		from = *q.From
	}
	if q.To != nil {
		to = *q.To
	}
	if to.Before(from) {
		return repository.DashboardRange{}, apperror.Validation(apperror.CodeValidationFailed, "to must not be before from", map[string]string{"to": "gtefield=from"})
	}
	return repository.DashboardRange{From: from, To: to, BranchID: branchID}, nil
}

func summaryCacheKey(rg repository.DashboardRange) string {
	branch := "all"
	if rg.BranchID != nil {
		branch = rg.BranchID.String()
	}
	return fmt.Sprintf("dashboard:summary:%d:%d:%s", rg.From.Unix(), rg.To.Unix(), branch)
}

func (s *dashboardService) Summary(ctx context.Context, q DashboardQuery) (model.DashboardSummary, error) {
	rg, err := s.resolveRange(q)
	if err != nil {
		return model.DashboardSummary{}, err
	}

	key := summaryCacheKey(rg)
	var cached model.DashboardSummary
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		logSoftError("dashboardService", "Summary", err)
	}
	if hit {
		return cached, nil
	}

	summary := model.DashboardSummary{From: rg.From, To: rg.To}

	if summary.Revenue, err = s.repo.PaymentsTotal(ctx, rg); err != nil {
		return model.DashboardSummary{}, apperror.Internal("failed to load revenue", err)
	}
	if summary.Expenses, err = s.repo.ExpensesTotal(ctx, rg); err != nil {
		return model.DashboardSummary{}, apperror.Internal("failed to load expenses", err)
	}
	if summary.OrderCount, summary.OrderValue, err = s.repo.OrderTotals(ctx, rg); err != nil {
		return model.DashboardSummary{}, apperror.Internal("failed to load order totals", err)
	}
	if summary.OutstandingBalance, err = s.repo.OutstandingBalance(ctx, rg.BranchID); err != nil {
		return model.DashboardSummary{}, apperror.Internal("failed to load outstanding balance", err)
	}

	byStatus, err := s.repo.CountByStatus(ctx, rg)
	if err != nil {
		return model.DashboardSummary{}, apperror.Internal("failed to count orders by status", err)
	}
	byPayment, err := s.repo.CountByPaymentStatus(ctx, rg)
	if err != nil {
		return model.DashboardSummary{}, apperror.Internal("failed to count orders by payment status", err)
	}

	summary.NetIncome = summary.Revenue.Sub(summary.Expenses)
	summary.AverageOrderValue = decimal.Zero
	if summary.OrderCount > 0 {
		summary.AverageOrderValue = summary.OrderValue.Div(decimal.NewFromInt(summary.OrderCount)).Round(2)
	}
	summary.OrdersByStatus = countsToMap(byStatus)
	summary.OrdersByPayment = countsToMap(byPayment)

	if err := s.cache.Set(ctx, dashboardCacheGroup, key, summary); err != nil {
		logSoftError("dashboardService", "Summary", err)
	}
	return summary, nil
}

func countsToMap(rows []model.StatusCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.Status] = r.Count
	}
	return m
}

func (s *dashboardService) Revenue(ctx context.Context, q DashboardQuery) ([]model.DailyAmount, error) {
	rg, err := s.resolveRange(q)
	if err != nil {
		return nil, err
	}
	series, err := s.repo.DailySeries(ctx, rg)
	if err != nil {
		return nil, apperror.Internal("failed to load revenue series", err)
	}
	return series, nil
}

func (s *dashboardService) TopServices(ctx context.Context, q DashboardQuery, limit int) ([]model.ServiceRanking, error) {
	rg, err := s.resolveRange(q)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopServices
	}
	rankings, err := s.repo.TopServices(ctx, rg, limit)
	if err != nil {
		return nil, apperror.Internal("failed to load top services", err)
	}
	return rankings, nil
}

// Export writes an xlsx workbook of the window's orders and expenses.
func (s *dashboardService) Export(ctx context.Context, q DashboardQuery, w io.Writer) error {
	rg, err := s.resolveRange(q)
	if err != nil {
		return err
	}
	orders, err := s.repo.OrdersForExport(ctx, rg)
	if err != nil {
		return apperror.Internal("failed to load orders", err)
	}
	expenses, err := s.repo.ExpensesForExport(ctx, rg)
	if err != nil {
		return apperror.Internal("failed to load expenses", err)
	}
	if err := report.Write(w, orders, expenses); err != nil {
		return apperror.Internal("failed to render export", err)
	}
	return nil
}
