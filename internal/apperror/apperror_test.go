package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionKeepsInnerCause(t *testing.T) {
	inner := Conflict(CodeInvalidServiceType, "unknown service types").WithDetail("ids", []string{"a"})
	err := fmt.Errorf("update order: %w", Transaction(inner))

	assert.Equal(t, KindTransaction, KindOf(err))
	assert.True(t, IsCode(err, CodeTransactionFailed))
	assert.True(t, IsCode(err, CodeInvalidServiceType))

	cause, ok := Cause(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, cause.Kind)
	assert.Equal(t, []string{"a"}, cause.Details["ids"])
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsCode(errors.New("boom"), CodeOrderNotFound))
	_, ok := Cause(errors.New("boom"))
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindUnavailable:  http.StatusServiceUnavailable,
		KindTransaction:  http.StatusInternalServerError,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}

func TestErrorMessageIncludesWrapped(t *testing.T) {
	err := Internal("failed to load order", errors.New("conn reset"))
	assert.Equal(t, "failed to load order: conn reset", err.Error())
	assert.Equal(t, "order not found", NotFound(CodeOrderNotFound, "order not found").Error())
}
