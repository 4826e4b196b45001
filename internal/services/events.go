package services

import (
	"context"
	"time"

	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

// Order event types.
const (
	OrderCreated       = "order.created"
	OrderCancelled     = "order.cancelled"
	OrderDelivered     = "order.delivered"
	OrderStatusChanged = "order.status_changed"
)

// OrderEvent describes a change to an order after it was committed.
type OrderEvent struct {
	Type       string       `json:"type"`
	Order      models.Order `json:"order"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// OrderNotifier receives order events, e.g. staff chat alerts or a pub/sub
// channel.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, event OrderEvent) error
}

// OrderEvents fans committed order changes out to notifiers in the
// background. A nil *OrderEvents drops everything.
type OrderEvents struct {
	log       *logger.Logger
	notifiers []OrderNotifier
	timeout   time.Duration
}

func NewOrderEvents(log *logger.Logger, notifiers ...OrderNotifier) *OrderEvents {
	active := make([]OrderNotifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &OrderEvents{
		log:       log.With("service", "OrderEvents"),
		notifiers: active,
		timeout:   10 * time.Second,
	}
}

// Publish delivers event to every notifier asynchronously. Failures are
// logged and never reach the caller.
func (e *OrderEvents) Publish(eventType string, order models.Order, at time.Time) {
	if e == nil || len(e.notifiers) == 0 {
		return
	}
	event := OrderEvent{Type: eventType, Order: order, OccurredAt: at}
	for _, n := range e.notifiers {
		go func(n OrderNotifier) {
			ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
			defer cancel()
			if err := n.NotifyOrder(ctx, event); err != nil {
				e.log.Warn("order notification failed",
					"event", event.Type,
					"order_id", order.ID,
					"error", err)
			}
		}(n)
	}
}
