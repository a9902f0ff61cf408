package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"laundry/internal/apperror"
	"laundry/internal/lock"
	"laundry/internal/model"
	"laundry/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxAllocationAttempts bounds how far the counter skips past numbers
// already taken by manual overrides.
const maxAllocationAttempts = 10

const defaultFlagLockKey = "invoice-settings:default-flag"

// --- DTOs ---

type InvoiceSettingsRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	BranchID       string `json:"branch_id" binding:"omitempty,uuid"`
	Prefix         string `json:"prefix" binding:"required,max=20"`
	IncludeYear    bool   `json:"include_year"`
	IncludeMonth   bool   `json:"include_month"`
	IncludeDay     bool   `json:"include_day"`
	DigitCount     int    `json:"digit_count" binding:"required,min=1,max=12"`
	CurrentCounter int64  `json:"current_counter" binding:"omitempty,min=1"`
	IsDefault      bool   `json:"is_default"`
}

type InvoiceSettingsResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	BranchID       *string `json:"branch_id"`
	Prefix         string  `json:"prefix"`
	IncludeYear    bool    `json:"include_year"`
	IncludeMonth   bool    `json:"include_month"`
	IncludeDay     bool    `json:"include_day"`
	DigitCount     int     `json:"digit_count"`
	CurrentCounter int64   `json:"current_counter"`
	IsDefault      bool    `json:"is_default"`
	NextNumber     string  `json:"next_number"`
	UpdatedAt      string  `json:"updated_at"`
}

// --- Interface ---

type InvoiceNumberService interface {
	// Allocate returns the invoice number for a new order. It must run
	// inside the order-create transaction so a rolled back create does not
	// consume a number. settingsID is nil when a manual number is used.
	// The counter advances by one per allocation, plus one for each
	// generated number skipped because a manual number already holds it.
	Allocate(ctx context.Context, manual string, settingsID *uuid.UUID) (number string, usedSettings *uuid.UUID, err error)
	Preview(ctx context.Context, settingsID *uuid.UUID) (string, error)

	ListSettings(ctx context.Context) ([]InvoiceSettingsResponse, error)
	GetSettings(ctx context.Context, id string) (InvoiceSettingsResponse, error)
	CreateSettings(ctx context.Context, req InvoiceSettingsRequest, actorID string) (InvoiceSettingsResponse, error)
	UpdateSettings(ctx context.Context, id string, req InvoiceSettingsRequest, actorID string) (InvoiceSettingsResponse, error)
	DeleteSettings(ctx context.Context, id string, actorID string) error
	SetDefault(ctx context.Context, id string, actorID string) (InvoiceSettingsResponse, error)
}

type InvoiceNumberServiceDeps struct {
	Settings  repository.InvoiceSettingsRepository
	Orders    repository.OrderRepository
	Audit     repository.AuditRepository
	TxManager repository.TransactionManager
	Locker    lock.Locker
	Clock     Clock
}

type invoiceNumberService struct {
	settings  repository.InvoiceSettingsRepository
	orders    repository.OrderRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
	locker    lock.Locker
	now       Clock
}

func NewInvoiceNumberService(deps InvoiceNumberServiceDeps) InvoiceNumberService {
	s := &invoiceNumberService{
		settings:  deps.Settings,
		orders:    deps.Orders,
		audit:     deps.Audit,
		txManager: deps.TxManager,
		locker:    deps.Locker,
		now:       deps.Clock,
	}
	if s.locker == nil {
		s.locker = lock.NewNoopLocker()
	}
	if s.now == nil {
		s.now = systemClock
	}
	return s
}

// InvoiceLockKey names the distributed lock guarding one settings row's counter.
func InvoiceLockKey(settingsID *uuid.UUID) string {
	if settingsID == nil {
		return "invoice-settings:default"
	}
	return "invoice-settings:" + settingsID.String()
}

// FormatInvoiceNumber renders prefix[-YYYY][-MM][-DD]-<counter>.
func FormatInvoiceNumber(settings model.InvoiceSettings, counter int64, at time.Time) string {
	digits := settings.DigitCount
	if digits < 1 {
		digits = 1
	}

	var b strings.Builder
	b.WriteString(settings.Prefix)
	if settings.IncludeYear {
		fmt.Fprintf(&b, "-%04d", at.Year())
	}
	if settings.IncludeMonth {
		fmt.Fprintf(&b, "-%02d", int(at.Month()))
	}
	if settings.IncludeDay {
		fmt.Fprintf(&b, "-%02d", at.Day())
	}
	fmt.Fprintf(&b, "-%0*d", digits, counter)
	return b.String()
}

func baselineSettings() model.InvoiceSettings {
	return model.InvoiceSettings{
		Name:           "Default",
		Prefix:         model.DefaultInvoicePrefix,
		IncludeYear:    true,
		IncludeMonth:   true,
		IncludeDay:     false,
		DigitCount:     model.DefaultInvoiceDigitCount,
		CurrentCounter: 1,
		IsDefault:      true,
	}
}

// --- Implementation ---

func (s *invoiceNumberService) Allocate(ctx context.Context, manual string, settingsID *uuid.UUID) (string, *uuid.UUID, error) {
	if manual = strings.TrimSpace(manual); manual != "" {
		exists, err := s.orders.ExistsByInvoiceNumber(ctx, manual)
		if err != nil {
			return "", nil, apperror.Internal("failed to check invoice number", err)
		}
		if exists {
			return "", nil, apperror.Conflict(apperror.CodeDuplicateInvoiceNumber, fmt.Sprintf("invoice number %s is already in use", manual)).
				WithDetail("invoice_number", manual)
		}
		return manual, nil, nil
	}

	settings, err := s.loadSettings(ctx, settingsID, true)
	if err != nil {
		return "", nil, err
	}

	now := s.now()
	counter := settings.CurrentCounter
	if counter < 1 {
		counter = 1
	}
	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		number := FormatInvoiceNumber(*settings, counter, now)
		exists, err := s.orders.ExistsByInvoiceNumber(ctx, number)
		if err != nil {
			return "", nil, apperror.Internal("failed to check invoice number", err)
		}
		if exists {
			counter++
			continue
		}
		if err := s.settings.SetCounter(ctx, settings.ID, counter+1); err != nil {
			return "", nil, apperror.Internal("failed to advance invoice counter", err)
		}
		id := settings.ID
		return number, &id, nil
	}

	return "", nil, apperror.Conflict(apperror.CodeDuplicateInvoiceNumber,
		fmt.Sprintf("no free invoice number after %d attempts", maxAllocationAttempts)).
		WithDetail("settings_id", settings.ID.String())
}

func (s *invoiceNumberService) Preview(ctx context.Context, settingsID *uuid.UUID) (string, error) {
	settings, err := s.loadSettings(ctx, settingsID, false)
	if err != nil {
		return "", err
	}
	counter := settings.CurrentCounter
	if counter < 1 {
		counter = 1
	}
	return FormatInvoiceNumber(*settings, counter, s.now()), nil
}

// loadSettings resolves an explicit row or the default one. With create
// set, a missing default row is created from the baseline.
func (s *invoiceNumberService) loadSettings(ctx context.Context, settingsID *uuid.UUID, create bool) (*model.InvoiceSettings, error) {
	if settingsID != nil {
		settings, err := s.settings.FindByID(ctx, *settingsID)
		if err != nil {
			return nil, notFoundAs(err, apperror.CodeSettingsNotFound, "invoice settings not found")
		}
		return settings, nil
	}

	settings, err := s.settings.FindDefault(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Internal("failed to load default invoice settings", err)
	}

	baseline := baselineSettings()
	if !create {
		return &baseline, nil
	}
	// A concurrent first create may win the insert; either way the row
	// read back is the single default.
	if err := s.settings.CreateDefault(ctx, &baseline); err != nil {
		return nil, apperror.Internal("failed to create default invoice settings", err)
	}
	settings, err = s.settings.FindDefault(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to load default invoice settings", err)
	}
	return settings, nil
}

func (s *invoiceNumberService) ListSettings(ctx context.Context) ([]InvoiceSettingsResponse, error) {
	list, err := s.settings.List(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list invoice settings", err)
	}
	now := s.now()
	res := make([]InvoiceSettingsResponse, 0, len(list))
	for _, st := range list {
		res = append(res, toInvoiceSettingsResponse(st, now))
	}
	return res, nil
}

func (s *invoiceNumberService) GetSettings(ctx context.Context, id string) (InvoiceSettingsResponse, error) {
	settingsID, err := parseID("id", id)
	if err != nil {
		return InvoiceSettingsResponse{}, err
	}
	settings, err := s.settings.FindByID(ctx, settingsID)
	if err != nil {
		return InvoiceSettingsResponse{}, notFoundAs(err, apperror.CodeSettingsNotFound, "invoice settings not found")
	}
	return toInvoiceSettingsResponse(*settings, s.now()), nil
}

func (s *invoiceNumberService) CreateSettings(ctx context.Context, req InvoiceSettingsRequest, actorID string) (InvoiceSettingsResponse, error) {
	branchID, err := parseOptionalID("branch_id", req.BranchID)
	if err != nil {
		return InvoiceSettingsResponse{}, err
	}

	settings := model.InvoiceSettings{
		Name:           strings.TrimSpace(req.Name),
		BranchID:       branchID,
		Prefix:         strings.TrimSpace(req.Prefix),
		IncludeYear:    req.IncludeYear,
		IncludeMonth:   req.IncludeMonth,
		IncludeDay:     req.IncludeDay,
		DigitCount:     req.DigitCount,
		CurrentCounter: req.CurrentCounter,
	}
	if settings.CurrentCounter < 1 {
		settings.CurrentCounter = 1
	}

	run := func(ctx context.Context) error {
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if req.IsDefault {
				if err := s.settings.UnsetDefaults(txCtx); err != nil {
					return apperror.Internal("failed to clear default invoice settings", err)
				}
				settings.IsDefault = true
			}
			if err := s.settings.Create(txCtx, &settings); err != nil {
				return apperror.Internal("failed to create invoice settings", err)
			}
			return recordAudit(txCtx, s.audit, parseActor(actorID), model.ActionSaveInvoiceSettings, settings.ID.String(), settings.Name, settings)
		})
	}

	if req.IsDefault {
		err = s.locker.WithLock(ctx, defaultFlagLockKey, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return InvoiceSettingsResponse{}, err
	}
	return toInvoiceSettingsResponse(settings, s.now()), nil
}

func (s *invoiceNumberService) UpdateSettings(ctx context.Context, id string, req InvoiceSettingsRequest, actorID string) (InvoiceSettingsResponse, error) {
	settingsID, err := parseID("id", id)
	if err != nil {
		return InvoiceSettingsResponse{}, err
	}
	branchID, err := parseOptionalID("branch_id", req.BranchID)
	if err != nil {
		return InvoiceSettingsResponse{}, err
	}

	var updated *model.InvoiceSettings
	run := func(ctx context.Context) error {
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			settings, err := s.settings.FindByID(txCtx, settingsID)
			if err != nil {
				return notFoundAs(err, apperror.CodeSettingsNotFound, "invoice settings not found")
			}

			settings.Name = strings.TrimSpace(req.Name)
			settings.BranchID = branchID
			settings.Prefix = strings.TrimSpace(req.Prefix)
			settings.IncludeYear = req.IncludeYear
			settings.IncludeMonth = req.IncludeMonth
			settings.IncludeDay = req.IncludeDay
			settings.DigitCount = req.DigitCount
			if req.CurrentCounter > 0 {
				settings.CurrentCounter = req.CurrentCounter
			}

			if req.IsDefault && !settings.IsDefault {
				if err := s.settings.UnsetDefaults(txCtx); err != nil {
					return apperror.Internal("failed to clear default invoice settings", err)
				}
				settings.IsDefault = true
			}

			if err := s.settings.Update(txCtx, settings); err != nil {
				return apperror.Internal("failed to update invoice settings", err)
			}
			updated = settings
			return recordAudit(txCtx, s.audit, parseActor(actorID), model.ActionSaveInvoiceSettings, settings.ID.String(), settings.Name, settings)
		})
	}

	if req.IsDefault {
		err = s.locker.WithLock(ctx, defaultFlagLockKey, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return InvoiceSettingsResponse{}, err
	}
	return toInvoiceSettingsResponse(*updated, s.now()), nil
}

func (s *invoiceNumberService) DeleteSettings(ctx context.Context, id string, actorID string) error {
	settingsID, err := parseID("id", id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		settings, err := s.settings.FindByID(txCtx, settingsID)
		if err != nil {
			return notFoundAs(err, apperror.CodeSettingsNotFound, "invoice settings not found")
		}
		if settings.IsDefault {
			return apperror.Conflict(apperror.CodeDefaultSettingsLocked, "the default invoice settings cannot be deleted; set another default first")
		}
		if err := s.settings.Delete(txCtx, settingsID); err != nil {
			return apperror.Internal("failed to delete invoice settings", err)
		}
		return recordAudit(txCtx, s.audit, parseActor(actorID), model.ActionSaveInvoiceSettings, settingsID.String(), settings.Name, map[string]any{"deleted": true})
	})
}

// SetDefault moves the default flag in one transaction under the
// default-flag lock; the partial unique index rejects any racing writer.
func (s *invoiceNumberService) SetDefault(ctx context.Context, id string, actorID string) (InvoiceSettingsResponse, error) {
	settingsID, err := parseID("id", id)
	if err != nil {
		return InvoiceSettingsResponse{}, err
	}

	var settings *model.InvoiceSettings
	err = s.locker.WithLock(ctx, defaultFlagLockKey, func(ctx context.Context) error {
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			var findErr error
			settings, findErr = s.settings.FindByID(txCtx, settingsID)
			if findErr != nil {
				return notFoundAs(findErr, apperror.CodeSettingsNotFound, "invoice settings not found")
			}
			if settings.IsDefault {
				return nil
			}
			if err := s.settings.UnsetDefaults(txCtx); err != nil {
				return apperror.Internal("failed to clear default invoice settings", err)
			}
			settings.IsDefault = true
			if err := s.settings.Update(txCtx, settings); err != nil {
				return apperror.Internal("failed to set default invoice settings", err)
			}
			return recordAudit(txCtx, s.audit, parseActor(actorID), model.ActionDefaultInvoiceConfig, settings.ID.String(), settings.Name, nil)
		})
	})
	if err != nil {
		return InvoiceSettingsResponse{}, err
	}
	return toInvoiceSettingsResponse(*settings, s.now()), nil
}

// --- Mapping ---

func toInvoiceSettingsResponse(st model.InvoiceSettings, now time.Time) InvoiceSettingsResponse {
	counter := st.CurrentCounter
	if counter < 1 {
		counter = 1
	}
	return InvoiceSettingsResponse{
		ID:             st.ID.String(),
		Name:           st.Name,
		BranchID:       uuidString(st.BranchID),
		Prefix:         st.Prefix,
		IncludeYear:    st.IncludeYear,
		IncludeMonth:   st.IncludeMonth,
		IncludeDay:     st.IncludeDay,
		DigitCount:     st.DigitCount,
		CurrentCounter: st.CurrentCounter,
		IsDefault:      st.IsDefault,
		NextNumber:     FormatInvoiceNumber(st, counter, now),
		UpdatedAt:      st.UpdatedAt.Format(timeLayout),
	}
}
