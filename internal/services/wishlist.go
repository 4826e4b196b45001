package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

// WishlistService keeps the set of products each user has favourited.
type WishlistService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWishlistService(db *gorm.DB, log *logger.Logger) *WishlistService {
	return &WishlistService{db: db, log: log.With("service", "WishlistService")}
}

// Toggle removes the pair when present and adds it otherwise. It reports
// whether the product is now in the wishlist.
func (s *WishlistService) Toggle(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var added bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireUser(tx, userID); err != nil {
			return err
		}
		if _, err := requireProduct(tx, productID); err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.WishlistItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			added = false
			return nil
		}
		added = true
		return tx.Create(&models.WishlistItem{UserID: userID, ProductID: productID}).Error
	})
	if err != nil {
		return false, err
	}
	s.log.Debug("wishlist toggled", "user_id", userID, "product_id", productID, "added", added)
	return added, nil
}

// Contains is false for unknown users and products.
func (s *WishlistService) Contains(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	return count > 0, err
}

// List returns the user's wishlist, newest first, with products loaded.
func (s *WishlistService) List(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&items).Error
	return items, err
}
