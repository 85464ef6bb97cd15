// Package cache stores payout query results scoped by a generation counter.
// Advancing the generation makes every previously stored entry unreachable.
package cache

import (
	"context"
	"time"
)

// Cache is the back-end the payout store reads and writes query results through.
type Cache interface {
	// Generation returns the current generation.
	Generation(ctx context.Context) (int64, error)
	// Bump advances the generation and returns the new value.
	Bump(ctx context.Context) (int64, error)
	// Get returns the payload stored under key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores payload under key for ttl. A non-positive ttl never expires.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}
