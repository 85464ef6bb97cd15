package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events as JSON on a pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	logger  Logger
}

// NewRedisPublisher creates a publisher for channel.
func NewRedisPublisher(rdb *redis.Client, channel string, logger Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel, logger: logger}
}

func (p *RedisPublisher) Notify(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Errorf("encode payout event %s: %v", ev.ID, err)
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Errorf("publish payout event %s to %s: %v", ev.ID, p.channel, err)
	}
}
