package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"laundry/internal/apperror"
	"laundry/internal/logger"
	"laundry/internal/model"
	"laundry/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const timeLayout = time.RFC3339

// EventPublisher pushes committed changes to live clients.
type EventPublisher interface {
	Publish(event string, data any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}

// Clock returns the current time; tests pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// parseActor turns the authenticated user id into a nullable reference.
func parseActor(actorID string) *uuid.UUID {
	id, err := uuid.Parse(actorID)
	if err != nil {
		return nil
	}
	return &id
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation(apperror.CodeValidationFailed, "invalid "+field, map[string]string{field: "uuid"})
	}
	return id, nil
}

func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseAmount reads a non-negative decimal; empty means zero.
func parseAmount(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperror.Validation(apperror.CodeValidationFailed, "invalid "+field, map[string]string{field: "decimal"})
	}
	if d.IsNegative() {
		return decimal.Zero, apperror.Validation(apperror.CodeValidationFailed, field+" must not be negative", map[string]string{field: "decimal_gte0"})
	}
	return d, nil
}

// notFoundAs maps gorm.ErrRecordNotFound to a typed not-found error and
// wraps anything else as internal.
func notFoundAs(err error, code, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(code, message)
	}
	return apperror.Internal(message, err)
}

func recordAudit(ctx context.Context, repo repository.AuditRepository, actor *uuid.UUID, action, entityID, entityName string, details any) error {
	payload := "{}"
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return err
		}
		payload = string(b)
	}
	return repo.Log(ctx, &model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	})
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// logSoftError records a failure that must not fail the request, such as
// a cache miss-write or token pruning.
func logSoftError(module, context string, err error) {
	logger.LogError(logger.Get(), module, "afterCommit", context, nil, err)
}
