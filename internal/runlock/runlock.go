// Package runlock provides a Redis-backed distributed lock so concurrent
// opsradar replicas do not double-scan the same tenant.
package runlock

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/opsradar-systems/opsradar/pkg/types"
)

const scanLockKey = "scan"

// Locker serializes scan runs across replicas.
type Locker struct {
	client *goredis.Client
	prefix string
}

// New creates a Locker from config.
func New(cfg types.RedisConfig) *Locker {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client, cfg.KeyPrefix)
}

// NewFromClient wraps an existing client, useful for testing.
func NewFromClient(client *goredis.Client, prefix string) *Locker {
	if prefix == "" {
		prefix = "opsradar:"
	}
	return &Locker{client: client, prefix: prefix}
}

func (l *Locker) key() string { return l.prefix + "lock:" + scanLockKey }

// Acquire attempts to take the scan lock for the TTL. It reports false when
// another replica holds it.
func (l *Locker) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire scan lock: %w", err)
	}
	return ok, nil
}

// Release frees the scan lock.
func (l *Locker) Release(ctx context.Context) error {
	if err := l.client.Del(ctx, l.key()).Err(); err != nil {
		return fmt.Errorf("release scan lock: %w", err)
	}
	return nil
}

// Ping checks connectivity to the Redis server.
func (l *Locker) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (l *Locker) Close() error {
	return l.client.Close()
}
