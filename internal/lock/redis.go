package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker is a best-effort mutual exclusion primitive. It reduces duplicate
// work across instances; correctness must not depend on it.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RedisLock implements Locker with SETNX keys.
type RedisLock struct {
	client *redis.Client
}

// NewRedisLock wraps an existing redis client.
func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

// Lock attempts to take the lock, returning false when already held.
func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, "lock:"+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", key, err)
	}
	return ok, nil
}

// Unlock releases the lock.
func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, "lock:"+key).Err(); err != nil {
		return fmt.Errorf("unlock %s: %w", key, err)
	}
	return nil
}
