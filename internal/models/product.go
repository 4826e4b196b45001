package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Orders keep their own price snapshot, so edits
// here never change placed orders.
type Product struct {
	BaseModel
	Title       string          `gorm:"not null" json:"title"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Description string          `gorm:"size:1000" json:"description"`
	Category    string          `gorm:"index;not null" json:"category"`
	Image       string          `json:"image"`
	RatingRate  float64         `json:"rating_rate"`
	RatingCount int             `json:"rating_count"`
}

// ProductRating is one user's score for a product.
type ProductRating struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_product_user" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_product_user" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Rating    int       `gorm:"not null" json:"rating"`
	Review    string    `gorm:"size:1000" json:"review"`
}

// CartItem is one (user, product) line of a shopping cart.
type CartItem struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product;index" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE" json:"product,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
}
