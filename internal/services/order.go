package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
)

// OrderLineRequest is one requested line of a checkout.
type OrderLineRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CheckoutRequest is the client-submitted order payload.
type CheckoutRequest struct {
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	PromoCode      string             `json:"promo_code"`
	Items          []OrderLineRequest `json:"items"`
	FullName       string             `json:"full_name"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	Street         string             `json:"street"`
	City           string             `json:"city"`
	State          string             `json:"state"`
	ZipCode        string             `json:"zip_code"`
	Country        string             `json:"country"`
}

// Validate checks the payload shape. It does not touch the database.
func (r CheckoutRequest) Validate() error {
	if len(r.Items) == 0 {
		return apperr.Validation("order must contain at least one item")
	}
	for i, item := range r.Items {
		if item.ProductID == uuid.Nil {
			return apperr.Validation("item %d: product_id is required", i+1)
		}
		if item.Quantity <= 0 {
			return apperr.Validation("item %d: quantity must be positive", i+1)
		}
		if !item.Price.IsPositive() {
			return apperr.Validation("item %d: price must be positive", i+1)
		}
	}
	if r.TotalAmount.IsNegative() {
		return apperr.Validation("total_amount must not be negative")
	}
	if r.DiscountAmount.IsNegative() {
		return apperr.Validation("discount_amount must not be negative")
	}
	shipping := []struct {
		name, value string
	}{
		{"full_name", r.FullName},
		{"email", r.Email},
		{"phone", r.Phone},
		{"street", r.Street},
		{"city", r.City},
		{"state", r.State},
		{"zip_code", r.ZipCode},
		{"country", r.Country},
	}
	for _, field := range shipping {
		if strings.TrimSpace(field.value) == "" {
			return apperr.Validation("%s is required", field.name)
		}
	}
	return nil
}

// OrderOptions tunes order creation.
type OrderOptions struct {
	// MissingProductPolicy is config.MissingProductSkip or
	// config.MissingProductFail.
	MissingProductPolicy string
	// EnforcePromo recomputes the discount from the promo code instead of
	// trusting the caller.
	EnforcePromo bool
}

// OrderService places orders and moves them through their lifecycle.
type OrderService struct {
	db     *gorm.DB
	log    *logger.Logger
	now    Clock
	opts   OrderOptions
	events *OrderEvents
}

func NewOrderService(db *gorm.DB, log *logger.Logger, now Clock, opts OrderOptions, events *OrderEvents) *OrderService {
	if opts.MissingProductPolicy == "" {
		opts.MissingProductPolicy = config.MissingProductSkip
	}
	return &OrderService{
		db:     db,
		log:    log.With("service", "OrderService"),
		now:    clockOrSystem(now),
		opts:   opts,
		events: events,
	}
}

var hundred = decimal.NewFromInt(100)

// Create persists the order and its lines in one transaction.
func (s *OrderService) Create(ctx context.Context, ownerID uuid.UUID, req CheckoutRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	order := models.Order{
		UserID:         ownerID,
		TotalAmount:    req.TotalAmount,
		DiscountAmount: req.DiscountAmount,
		PromoCode:      strings.TrimSpace(req.PromoCode),
		Status:         models.OrderStatusPending,
		OrderDate:      now,
		FullName:       strings.TrimSpace(req.FullName),
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		Street:         strings.TrimSpace(req.Street),
		City:           strings.TrimSpace(req.City),
		State:          strings.TrimSpace(req.State),
		ZipCode:        strings.TrimSpace(req.ZipCode),
		Country:        strings.TrimSpace(req.Country),
	}

	var skipped int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireUser(tx, ownerID); err != nil {
			return err
		}
		if err := tx.Omit("Items").Create(&order).Error; err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(req.Items))
		for _, line := range req.Items {
			var product models.Product
			err := tx.First(&product, "id = ?", line.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if s.opts.MissingProductPolicy == config.MissingProductFail {
					return apperr.NotFound("product %s not found", line.ProductID)
				}
				skipped++
				s.log.Warn("skipping order line for unknown product",
					"order_id", order.ID,
					"product_id", line.ProductID)
				continue
			}
			if err != nil {
				return err
			}
			productID := product.ID
			items = append(items, models.OrderItem{
				OrderID:      order.ID,
				ProductID:    &productID,
				ProductTitle: product.Title,
				Quantity:     line.Quantity,
				Price:        line.Price,
			})
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		if s.opts.EnforcePromo && order.PromoCode != "" {
			if err := s.applyPromo(tx, &order, items, now); err != nil {
				return err
			}
		}

		return tx.Preload("Items.Product").First(&order, "id = ?", order.ID).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.log.Info("order created",
		"order_id", order.ID,
		"user_id", ownerID,
		"items", len(order.Items),
		"skipped_items", skipped,
		"total", order.TotalAmount.String())
	s.events.Publish(OrderCreated, order, now)
	return &order, nil
}

// applyPromo validates the order's promo code against now and rewrites the
// discount and total from the persisted lines.
func (s *OrderService) applyPromo(tx *gorm.DB, order *models.Order, items []models.OrderItem, now time.Time) error {
	result, _, err := validatePromo(tx, order.PromoCode, now)
	if err != nil {
		return err
	}
	if !result.Valid {
		return apperr.Validation("%s", result.Message)
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	discount := subtotal.Mul(result.DiscountPercentage).Div(hundred).Round(2)
	order.DiscountAmount = discount
	order.TotalAmount = subtotal.Sub(discount)
	return tx.Model(order).Updates(map[string]interface{}{
		"discount_amount": order.DiscountAmount,
		"total_amount":    order.TotalAmount,
	}).Error
}

// UpdateStatus is the admin override. Setting the current status again is a
// no-op; moves outside the transition table are rejected.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, apperr.InvalidState("unknown order status %q", status)
	}

	now := s.now()
	var order models.Order
	var changed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "order not found")
		}
		if order.Status == next {
			return nil
		}
		if !order.Status.CanTransition(next) {
			return apperr.InvalidState("cannot change order status from %s to %s", order.Status, next)
		}

		updates := map[string]interface{}{"status": next}
		if next == models.OrderStatusDelivered {
			updates["delivery_date"] = now
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, order.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("order status changed concurrently")
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		switch next {
		case models.OrderStatusDelivered:
			metrics.OrdersDelivered.WithLabelValues(metrics.SourceAdmin).Inc()
			s.events.Publish(OrderDelivered, *result, now)
		case models.OrderStatusCancelled:
			metrics.OrdersCancelled.Inc()
			s.events.Publish(OrderCancelled, *result, now)
		default:
			s.events.Publish(OrderStatusChanged, *result, now)
		}
		s.log.Info("order status updated", "order_id", id, "from", order.Status, "to", next)
	}
	return result, nil
}

// Cancel lets the owner cancel a PENDING order.
func (s *OrderService) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "order not found")
		}
		if order.UserID != userID {
			return apperr.Forbidden("you can only cancel your own orders")
		}
		if order.Status != models.OrderStatusPending {
			return apperr.InvalidState("only pending orders can be cancelled")
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, models.OrderStatusPending).
			Update("status", models.OrderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("only pending orders can be cancelled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.OrdersCancelled.Inc()
	s.log.Info("order cancelled", "order_id", id, "user_id", userID)
	s.events.Publish(OrderCancelled, *order, s.now())
	return order, nil
}

func (s *OrderService) withItems(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Items.Product").Order("order_date desc")
}

// List returns every order, newest first.
func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.withItems(ctx).Find(&orders).Error
	return orders, err
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.withItems(ctx).Where("user_id = ?", userID).Find(&orders).Error
	return orders, err
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.withItems(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "order not found")
	}
	return &order, nil
}

// Recent returns the n newest orders.
func (s *OrderService) Recent(ctx context.Context, n int) ([]models.Order, error) {
	if n <= 0 {
		n = 5
	}
	var orders []models.Order
	err := s.withItems(ctx).Limit(n).Find(&orders).Error
	return orders, err
}

func (s *OrderService) Count(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Order{}).Count(&total).Error
	return total, err
}
