package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

// CartService keeps one quantity per (user, product).
type CartService struct {
	db  *gorm.DB
	log *logger.Logger
	now Clock
}

func NewCartService(db *gorm.DB, log *logger.Logger, now Clock) *CartService {
	return &CartService{db: db, log: log.With("service", "CartService"), now: clockOrSystem(now)}
}

var cartConflictColumns = []clause.Column{{Name: "user_id"}, {Name: "product_id"}}

// Add increases the quantity of a product in the user's cart, creating the
// line when absent. The increment is a single upsert so concurrent adds are
// summed. It returns the resulting line and the number of lines in the cart.
func (s *CartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, int64, error) {
	if quantity < 1 {
		return nil, 0, apperr.Validation("quantity must be at least 1")
	}

	var item models.CartItem
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireUser(tx, userID); err != nil {
			return err
		}
		if _, err := requireProduct(tx, productID); err != nil {
			return err
		}

		line := models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
		err := tx.Clauses(clause.OnConflict{
			Columns: cartConflictColumns,
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": s.now(),
			}),
		}).Create(&line).Error
		if err != nil {
			return err
		}
		return s.loadLine(tx, userID, productID, &item, &count)
	})
	if err != nil {
		return nil, 0, err
	}
	s.log.Debug("cart line added", "user_id", userID, "product_id", productID, "quantity", item.Quantity)
	return &item, count, nil
}

// SetQuantity sets the line to exactly quantity. A quantity of zero or less
// removes the line, and removing an absent line is not an error.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, int64, error) {
	var item *models.CartItem
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireUser(tx, userID); err != nil {
			return err
		}
		if _, err := requireProduct(tx, productID); err != nil {
			return err
		}

		if quantity <= 0 {
			if err := tx.Where("user_id = ? AND product_id = ?", userID, productID).
				Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			return tx.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&count).Error
		}

		line := models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
		err := tx.Clauses(clause.OnConflict{
			Columns: cartConflictColumns,
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   quantity,
				"updated_at": s.now(),
			}),
		}).Create(&line).Error
		if err != nil {
			return err
		}
		item = &models.CartItem{}
		return s.loadLine(tx, userID, productID, item, &count)
	})
	if err != nil {
		return nil, 0, err
	}
	return item, count, nil
}

func (s *CartService) loadLine(tx *gorm.DB, userID, productID uuid.UUID, item *models.CartItem, count *int64) error {
	if err := tx.Preload("Product").
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(item).Error; err != nil {
		return err
	}
	return tx.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(count).Error
}

// Remove deletes a single line. Nothing to delete is not an error.
func (s *CartService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	s.log.Debug("cart cleared", "user_id", userID, "lines", res.RowsAffected)
	return nil
}

// Count is the number of distinct lines, zero for unknown users.
func (s *CartService) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// List returns the user's lines, newest first, with products loaded.
func (s *CartService) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	db := s.db.WithContext(ctx)
	if _, err := requireUser(db, userID); err != nil {
		return nil, err
	}
	var items []models.CartItem
	err := db.Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&items).Error
	return items, err
}
