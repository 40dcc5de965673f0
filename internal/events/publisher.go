package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans drained outbox entries out over Redis pub/sub. Each
// event publishes to a per-type channel plus the firehose channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if client == nil {
		panic("events: redis client required")
	}
	if channel == "" {
		channel = "booking.events"
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Handle implements DeliveryHandler.
func (p *RedisPublisher) Handle(ctx context.Context, entry OutboxEntry) error {
	payload := []byte(entry.Payload)
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", p.channel, err)
	}
	typed := p.channel + "." + entry.Type
	if err := p.client.Publish(ctx, typed, payload).Err(); err != nil {
		return fmt.Errorf("events: publish %s: %w", typed, err)
	}
	return nil
}
