package services

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

// RatingSummary aggregates a product's ratings.
type RatingSummary struct {
	ProductID    uuid.UUID   `json:"product_id"`
	Average      float64     `json:"average"`
	Total        int64       `json:"total"`
	Distribution map[int]int `json:"distribution"`
}

// RatingService stores one rating per (user, product).
type RatingService struct {
	db  *gorm.DB
	log *logger.Logger
	now Clock
}

func NewRatingService(db *gorm.DB, log *logger.Logger, now Clock) *RatingService {
	return &RatingService{db: db, log: log.With("service", "RatingService"), now: clockOrSystem(now)}
}

// Upsert records or replaces the user's rating and refreshes the product's
// cached rate and count.
func (s *RatingService) Upsert(ctx context.Context, userID, productID uuid.UUID, rating int, review string) (*models.ProductRating, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	review = strings.TrimSpace(review)
	if len(review) > 1000 {
		return nil, apperr.Validation("review must be at most 1000 characters")
	}

	var saved models.ProductRating
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireUser(tx, userID); err != nil {
			return err
		}
		if _, err := requireProduct(tx, productID); err != nil {
			return err
		}
		row := models.ProductRating{ProductID: productID, UserID: userID, Rating: rating, Review: review}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"rating":     rating,
				"review":     review,
				"updated_at": s.now(),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		if err := refreshRatingAggregate(tx, productID); err != nil {
			return err
		}
		return tx.Where("product_id = ? AND user_id = ?", productID, userID).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("product rated", "product_id", productID, "user_id", userID, "rating", rating)
	return &saved, nil
}

// refreshRatingAggregate recomputes Product.RatingRate and RatingCount.
func refreshRatingAggregate(tx *gorm.DB, productID uuid.UUID) error {
	var agg struct {
		Average float64
		Total   int64
	}
	if err := tx.Model(&models.ProductRating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("product_id = ?", productID).
		Scan(&agg).Error; err != nil {
		return err
	}
	return tx.Model(&models.Product{}).Where("id = ?", productID).Updates(map[string]interface{}{
		"rating_rate":  roundRate(agg.Average),
		"rating_count": agg.Total,
	}).Error
}

func roundRate(v float64) float64 {
	return math.Round(v*10) / 10
}

// Summary returns the average, count and 1..5 distribution.
func (s *RatingService) Summary(ctx context.Context, productID uuid.UUID) (*RatingSummary, error) {
	db := s.db.WithContext(ctx)
	if _, err := requireProduct(db, productID); err != nil {
		return nil, err
	}
	var rows []struct {
		Rating int
		Count  int
	}
	if err := db.Model(&models.ProductRating{}).
		Select("rating, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Group("rating").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	summary := &RatingSummary{ProductID: productID, Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := 0
	for _, row := range rows {
		summary.Distribution[row.Rating] = row.Count
		summary.Total += int64(row.Count)
		sum += row.Rating * row.Count
	}
	if summary.Total > 0 {
		summary.Average = roundRate(float64(sum) / float64(summary.Total))
	}
	return summary, nil
}

// Reviews pages through a product's ratings, newest first, with authors.
func (s *RatingService) Reviews(ctx context.Context, productID uuid.UUID, page, size int) (*Page[models.ProductRating], error) {
	page, size = normalizePage(page, size)
	db := s.db.WithContext(ctx)
	if _, err := requireProduct(db, productID); err != nil {
		return nil, err
	}
	query := db.Model(&models.ProductRating{}).Where("product_id = ?", productID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var ratings []models.ProductRating
	if err := query.Preload("User").
		Order("created_at desc").
		Limit(size).Offset((page - 1) * size).
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	return &Page[models.ProductRating]{Items: ratings, Page: page, Size: size, Total: total}, nil
}
