package service

import (
	"fmt"
	"slices"

	"laundry/internal/apperror"
	"laundry/internal/model"
)

var allowedTransitions = map[string][]string{
	model.OrderStatusPending:        {model.OrderStatusProcessing, model.OrderStatusReadyForPickup, model.OrderStatusCompleted, model.OrderStatusCancelled},
	model.OrderStatusProcessing:     {model.OrderStatusReadyForPickup, model.OrderStatusCompleted, model.OrderStatusCancelled},
	model.OrderStatusReadyForPickup: {model.OrderStatusCompleted, model.OrderStatusCancelled},
	model.OrderStatusCompleted:      nil,
	model.OrderStatusCancelled:      nil,
}

// CanTransition reports whether the strict table allows from -> to.
func CanTransition(from, to string) bool {
	return slices.Contains(allowedTransitions[from], to)
}

func isKnownStatus(status string) bool {
	return slices.Contains(model.OrderStatuses, status)
}

// checkTransition validates a status change. Without strict mode any known
// status may follow any other.
func checkTransition(from, to string, strict bool) error {
	if !isKnownStatus(to) {
		return apperror.Validation(apperror.CodeValidationFailed, fmt.Sprintf("unknown order status %q", to), map[string]string{"status": "oneof"})
	}
	if strict && !CanTransition(from, to) {
		return apperror.Conflict(apperror.CodeInvalidStatusTransition, fmt.Sprintf("cannot move order from %s to %s", from, to)).
			WithDetail("from", from).
			WithDetail("to", to)
	}
	return nil
}
