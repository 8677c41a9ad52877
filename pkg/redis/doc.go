// Package redis opens and supervises the Redis connection used for
// idempotency keys.
//
// Open parses redis:// and rediss:// URLs, applies pool and timeout
// defaults, and retries the initial connection with a growing interval.
package redis
