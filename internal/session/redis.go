package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a Store backed by Redis, so in-flight dialogues survive a process
// restart. Values are JSON-encoded under a per-flow key prefix; TTL is
// enforced by Redis key expiry.
type Redis[T any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed session store for one flow. The prefix
// keeps flows from colliding on the same user id.
func NewRedis[T any](rdb *redis.Client, prefix string, ttl time.Duration) *Redis[T] {
	return &Redis[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Redis[T]) key(userID int64) string {
	return fmt.Sprintf("session:%s:%d", r.prefix, userID)
}

func (r *Redis[T]) Get(ctx context.Context, userID int64) (T, bool, error) {
	var value T

	data, err := r.rdb.Get(ctx, r.key(userID)).Bytes()
	if err == redis.Nil {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("session get failed: %w", err)
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("session decode failed: %w", err)
	}
	return value, true, nil
}

func (r *Redis[T]) Put(ctx context.Context, userID int64, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session encode failed: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("session put failed: %w", err)
	}
	return nil
}

func (r *Redis[T]) Delete(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("session delete failed: %w", err)
	}
	return nil
}
