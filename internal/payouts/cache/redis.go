package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache shared by every process pointed at the same server.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis creates a cache storing keys under prefix.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) generationKey() string { return r.prefix + ":generation" }

func (r *Redis) entryKey(key string) string { return r.prefix + ":" + key }

func (r *Redis) Generation(ctx context.Context) (int64, error) {
	gen, err := r.rdb.Get(ctx, r.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) Bump(ctx context.Context) (int64, error) {
	return r.rdb.Incr(ctx, r.generationKey()).Result()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := r.rdb.Get(ctx, r.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, r.entryKey(key), payload, ttl).Err()
}
