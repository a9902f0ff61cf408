// Package cache stores JSON snapshots of expensive read models in Redis.
// A nil *Cache, or one built without a client, is a valid no-op cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "laundry:"

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get decodes the value at key into dest. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value under key and records the key in group so the whole
// group can be dropped at once.
func (c *Cache) Set(ctx context.Context, group, key string, value any) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, keyPrefix+key, data, c.ttl)
	pipe.SAdd(ctx, groupKey(group), key)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate removes every key recorded in group.
func (c *Cache) Invalidate(ctx context.Context, group string) error {
	if !c.Enabled() {
		return nil
	}
	members, err := c.rdb.SMembers(ctx, groupKey(group)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, keyPrefix+m)
	}
	keys = append(keys, groupKey(group))
	return c.rdb.Del(ctx, keys...).Err()
}

func groupKey(group string) string {
	return keyPrefix + "group:" + group
}
