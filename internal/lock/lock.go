// Package lock serializes critical sections across API instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"laundry/internal/apperror"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL   = 30 * time.Second
	retryBackoff = 100 * time.Millisecond
	retryLimit   = 50
)

// Locker runs fn while holding the named lock.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type redisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedisLocker returns a Locker backed by redislock.
func NewRedisLocker(rdb *redis.Client) Locker {
	return &redisLocker{client: redislock.New(rdb), ttl: defaultTTL}
}

func (l *redisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lock, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryBackoff), retryLimit),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return apperror.Unavailable(apperror.CodeLockNotObtained, fmt.Sprintf("resource %s is busy, retry shortly", key))
	}
	if err != nil {
		return fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	defer func() {
		// Release after ctx cancellation still has to reach Redis.
		_ = lock.Release(context.WithoutCancel(ctx))
	}()

	return fn(ctx)
}

type noopLocker struct{}

// NewNoopLocker returns a Locker for single-instance deployments; the
// database row locks still apply.
func NewNoopLocker() Locker {
	return noopLocker{}
}

func (noopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
