package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/example/storefront/internal/logger"
)

// RedisOrderPublisher publishes order events as JSON on a pub/sub channel
// for downstream consumers (fulfilment, analytics).
type RedisOrderPublisher struct {
	client  redis.UniversalClient
	channel string
	log     *logger.Logger
}

func NewRedisOrderPublisher(client redis.UniversalClient, channel string, log *logger.Logger) *RedisOrderPublisher {
	if channel == "" {
		channel = "storefront.orders"
	}
	return &RedisOrderPublisher{client: client, channel: channel, log: log.With("service", "RedisOrderPublisher")}
}

// NotifyOrder implements OrderNotifier.
func (p *RedisOrderPublisher) NotifyOrder(ctx context.Context, event OrderEvent) error {
	if p == nil || p.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	p.log.Debug("order event published", "channel", p.channel, "event", event.Type, "receivers", receivers)
	return nil
}
