// Package kv provides the shared key-value store used for response
// caching and rate-limit counters. All application instances talk to
// the same store, so no per-process state needs to survive anywhere
// else.
package kv

import (
	"context"
	"time"
)

// Store is the minimal contract both the cache layer and the rate
// limiter need: plain get/set with expiry plus an atomic counter.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the raw bytes for key. ok is false when the key is
	// absent or expired; that is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key. A positive ttl schedules expiry;
	// zero or negative stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Incr atomically increments the integer counter at key, creating
	// it at 1 if absent, and returns the post-increment value.
	Incr(ctx context.Context, key string) (int64, error)

	// TTL reports the remaining time before key expires. ok is false
	// when the key is absent or has no expiry.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// Expire sets the expiry of an existing key. Missing keys are a
	// no-op.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
