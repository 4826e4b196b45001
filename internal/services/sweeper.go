package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
)

// OrderSweeper marks PENDING orders older than a threshold as DELIVERED. It
// stands in for real fulfilment tracking and assumes a single instance.
type OrderSweeper struct {
	db        *gorm.DB
	log       *logger.Logger
	now       Clock
	threshold time.Duration
	events    *OrderEvents
}

func NewOrderSweeper(db *gorm.DB, log *logger.Logger, now Clock, threshold time.Duration, events *OrderEvents) *OrderSweeper {
	return &OrderSweeper{
		db:        db,
		log:       log.With("service", "OrderSweeper"),
		now:       clockOrSystem(now),
		threshold: threshold,
		events:    events,
	}
}

func (s *OrderSweeper) Name() string { return "order-sweep" }

// RunOnce transitions every stale PENDING order and returns how many moved.
// All transitioned orders share one delivery date. One failing order does not
// stop the batch.
func (s *OrderSweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.threshold)
	db := s.db.WithContext(ctx)

	var ids []uuid.UUID
	if err := db.Model(&models.Order{}).
		Where("status = ? AND order_date < ?", models.OrderStatusPending, cutoff).
		Order("order_date").
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	delivered := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		res := db.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":        models.OrderStatusDelivered,
				"delivery_date": now,
			})
		if res.Error != nil {
			s.log.Error("failed to deliver stale order", "order_id", id, "error", res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		delivered++
		metrics.OrdersDelivered.WithLabelValues(metrics.SourceSweep).Inc()
		s.publish(ctx, id, now)
	}

	if delivered > 0 {
		s.log.Info("stale orders delivered", "count", delivered, "cutoff", cutoff)
	}
	return delivered, nil
}

func (s *OrderSweeper) publish(ctx context.Context, id uuid.UUID, at time.Time) {
	if s.events == nil {
		return
	}
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		s.log.Warn("delivered order could not be reloaded", "order_id", id, "error", err)
		return
	}
	s.events.Publish(OrderDelivered, order, at)
}
