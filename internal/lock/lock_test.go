package lock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopLockerRunsFn(t *testing.T) {
	called := false
	err := NewNoopLocker().WithLock(context.Background(), "invoice-settings:default", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestNoopLockerPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := NewNoopLocker().WithLock(context.Background(), "k", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}
