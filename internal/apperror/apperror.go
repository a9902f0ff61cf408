package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindTransaction  Kind = "TRANSACTION_FAILURE"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindUnavailable  Kind = "UNAVAILABLE"
	KindInternal     Kind = "INTERNAL"
)

// Error codes surfaced to API clients.
const (
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeCustomerNotFound        = "CUSTOMER_NOT_FOUND"
	CodeCustomerInfoRequired    = "CUSTOMER_INFO_REQUIRED"
	CodeCustomerHasOrders       = "CUSTOMER_HAS_ORDERS"
	CodeBranchRequired          = "BRANCH_REQUIRED"
	CodeBranchNotFound          = "BRANCH_NOT_FOUND"
	CodeInvalidServiceType      = "INVALID_SERVICE_TYPE"
	CodeInvalidCategory         = "INVALID_CATEGORY"
	CodeDuplicateInvoiceNumber  = "DUPLICATE_INVOICE_NUMBER"
	CodeSettingsNotFound        = "SETTINGS_NOT_FOUND"
	CodeDefaultSettingsLocked   = "DEFAULT_SETTINGS_LOCKED"
	CodeOrderNotFound           = "ORDER_NOT_FOUND"
	CodeOrderItemNotFound       = "ORDER_ITEM_NOT_FOUND"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeDiscountExceedsSubtotal = "DISCOUNT_EXCEEDS_SUBTOTAL"
	CodeExpenseNotFound         = "EXPENSE_NOT_FOUND"
	CodeUserNotFound            = "USER_NOT_FOUND"
	CodeDuplicateUser           = "DUPLICATE_USER"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeNotFound                = "NOT_FOUND"
	CodeTransactionFailed       = "TRANSACTION_FAILED"
	CodeStorageDisabled         = "STORAGE_DISABLED"
	CodeLockNotObtained         = "LOCK_NOT_OBTAINED"
)

// Error is the typed error returned by services.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Fields maps request field names to a short reason.
	Fields  map[string]string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches structured context, e.g. the offending ids.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Fields: fields}
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func Unavailable(code, message string) *Error {
	return New(KindUnavailable, code, message)
}

// Internal wraps an unexpected infrastructure failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: message, Err: err}
}

// Transaction wraps a failure raised inside an atomic unit. The inner
// error stays reachable through errors.As so callers still see its code.
func Transaction(err error) *Error {
	return &Error{Kind: KindTransaction, Code: CodeTransactionFailed, Message: "transaction rolled back", Err: err}
}

// As returns the outermost *Error in the chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Cause returns the innermost *Error in the chain, skipping transaction wrappers.
func Cause(err error) (*Error, bool) {
	appErr, ok := As(err)
	if !ok {
		return nil, false
	}
	for appErr.Kind == KindTransaction {
		inner, ok := As(appErr.Err)
		if !ok {
			break
		}
		appErr = inner
	}
	return appErr, true
}

func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// IsCode reports whether any *Error in the chain carries code.
func IsCode(err error, code string) bool {
	for err != nil {
		appErr, ok := As(err)
		if !ok {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
