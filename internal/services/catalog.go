package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

// CatalogService manages products.
type CatalogService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogService(db *gorm.DB, log *logger.Logger) *CatalogService {
	return &CatalogService{db: db, log: log.With("service", "CatalogService")}
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	RatingRate  float64         `json:"rating_rate"`
	RatingCount int             `json:"rating_count"`
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Validation("title is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return apperr.Validation("category is required")
	}
	if !in.Price.IsPositive() {
		return apperr.Validation("price must be positive")
	}
	if len(in.Description) > 1000 {
		return apperr.Validation("description must be at most 1000 characters")
	}
	return nil
}

// List returns one page of products, newest first, optionally filtered by
// category (case-insensitive).
func (s *CatalogService) List(ctx context.Context, page, size int, category string) (*Page[models.Product], error) {
	page, size = normalizePage(page, size)
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if category = strings.TrimSpace(category); category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var products []models.Product
	if err := query.Order("created_at desc").
		Limit(size).Offset((page - 1) * size).
		Find(&products).Error; err != nil {
		return nil, err
	}

	s.log.Debug("listed products", "page", page, "size", size, "category", category, "count", len(products))
	return &Page[models.Product]{Items: products, Page: page, Size: size, Total: total}, nil
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return requireProduct(s.db.WithContext(ctx), id)
}

// ByCategory returns every product in a category.
func (s *CatalogService) ByCategory(ctx context.Context, category string) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("LOWER(category) = LOWER(?)", strings.TrimSpace(category)).
		Order("created_at desc").
		Find(&products).Error
	return products, err
}

// Categories returns the distinct category names, sorted.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Distinct("category").
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

// Related samples up to limit other products from the same category.
func (s *CatalogService) Related(ctx context.Context, id uuid.UUID, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 4
	}
	db := s.db.WithContext(ctx)
	product, err := requireProduct(db, id)
	if err != nil {
		return nil, err
	}

	var related []models.Product
	err = db.Where("LOWER(category) = LOWER(?) AND id <> ?", product.Category, product.ID).
		Order("RANDOM()").
		Limit(limit).
		Find(&related).Error
	return related, err
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	product := models.Product{
		Title:       strings.TrimSpace(in.Title),
		Price:       in.Price,
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Image:       in.Image,
		RatingRate:  in.RatingRate,
		RatingCount: in.RatingCount,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	s.log.Info("product created", "product_id", product.ID, "title", product.Title)
	return &product, nil
}

// Update replaces the editable fields. An empty image keeps the current one.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var product *models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if product, err = requireProduct(tx, id); err != nil {
			return err
		}
		product.Title = strings.TrimSpace(in.Title)
		product.Price = in.Price
		product.Description = in.Description
		product.Category = strings.TrimSpace(in.Category)
		if in.Image != "" {
			product.Image = in.Image
		}
		product.RatingRate = in.RatingRate
		product.RatingCount = in.RatingCount
		return tx.Save(product).Error
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product together with the cart, wishlist and rating rows
// that point at it. Order lines keep their snapshot and lose the reference.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireProduct(tx, id); err != nil {
			return err
		}
		for _, model := range []interface{}{&models.CartItem{}, &models.WishlistItem{}, &models.ProductRating{}} {
			if err := tx.Where("product_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.OrderItem{}).
			Where("product_id = ?", id).
			Update("product_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("product deleted", "product_id", id)
	return nil
}

func (s *CatalogService) Count(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error
	return total, err
}
