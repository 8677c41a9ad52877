package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// idempotencyGuard claims a one-shot key. Acquire returns false when another
// request already claimed it.
type idempotencyGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

// paymentGuardTTL bounds how long a payment claim is held. The orders table's
// unique payment_ref is the durable backstop; the guard only short-circuits
// concurrent webhook retries cheaply.
const paymentGuardTTL = 24 * time.Hour

// RedisGuard implements idempotencyGuard on Redis SET NX.
type RedisGuard struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisGuard creates a guard namespaced by prefix.
func NewRedisGuard(client redis.UniversalClient, prefix string) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix}
}

// Acquire claims the key. Only the first caller gets true.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+":"+key, 1, paymentGuardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("service: acquire idempotency key: %w", err)
	}
	return ok, nil
}
