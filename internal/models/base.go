package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Money is rendered as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// BaseModel provides shared columns for all tables.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures UUIDs are generated for new records.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&OTPVerification{},
		&Product{},
		&ProductRating{},
		&CartItem{},
		&WishlistItem{},
		&PromoCode{},
		&Order{},
		&OrderItem{},
	}
}
