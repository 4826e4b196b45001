package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// orderTransitions lists the allowed moves out of each status.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: nil,
	OrderStatusCancelled: nil,
}

// ParseOrderStatus accepts a status name in any case.
func ParseOrderStatus(value string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := orderTransitions[status]; !ok {
		return "", false
	}
	return status, true
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	allowed, ok := orderTransitions[s]
	return ok && len(allowed) == 0
}

// Order is a placed checkout with its shipping details and line items.
type Order struct {
	BaseModel
	UserID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	PromoCode      string          `json:"promo_code"`
	Status         OrderStatus     `gorm:"type:varchar(16);index;not null" json:"status"`
	OrderDate      time.Time       `gorm:"index;not null" json:"order_date"`
	DeliveryDate   *time.Time      `json:"delivery_date"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Street         string          `json:"street"`
	City           string          `json:"city"`
	State          string          `json:"state"`
	ZipCode        string          `json:"zip_code"`
	Country        string          `json:"country"`
	Items          []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is a frozen (product, quantity, price) triple bound to one order.
type OrderItem struct {
	BaseModel
	OrderID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID    *uuid.UUID      `gorm:"type:uuid;index" json:"product_id"`
	Product      *Product        `gorm:"constraint:OnDelete:SET NULL" json:"product,omitempty"`
	ProductTitle string          `json:"product_title"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PromoCode is a percentage discount with an optional validity window.
type PromoCode struct {
	BaseModel
	Code               string          `gorm:"uniqueIndex;not null" json:"code"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	ValidFrom          *time.Time      `json:"valid_from"`
	ValidUntil         *time.Time      `json:"valid_until"`
	IsActive           bool            `gorm:"not null" json:"is_active"`
}
