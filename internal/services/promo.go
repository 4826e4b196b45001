package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

// Promo validation messages.
const (
	PromoMessageInvalid     = "Invalid promo code"
	PromoMessageNotYetValid = "Promo code is not yet valid"
	PromoMessageExpired     = "Promo code has expired"
	PromoMessageValid       = "Promo code is valid"
)

// PromoValidation is the answer to "can this code be used right now?".
type PromoValidation struct {
	Valid              bool            `json:"valid"`
	Message            string          `json:"message"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// PromoService manages promo codes.
type PromoService struct {
	db  *gorm.DB
	log *logger.Logger
	now Clock
}

func NewPromoService(db *gorm.DB, log *logger.Logger, now Clock) *PromoService {
	return &PromoService{db: db, log: log.With("service", "PromoService"), now: clockOrSystem(now)}
}

// Validate checks code against the current time. It never writes.
func (s *PromoService) Validate(ctx context.Context, code string) (*PromoValidation, error) {
	result, _, err := validatePromo(s.db.WithContext(ctx), code, s.now())
	return result, err
}

// validatePromo is shared with order creation so enforcement can run inside
// the order transaction.
func validatePromo(db *gorm.DB, code string, now time.Time) (*PromoValidation, *models.PromoCode, error) {
	code = strings.TrimSpace(code)
	invalid := &PromoValidation{Valid: false, Message: PromoMessageInvalid, DiscountPercentage: decimal.Zero}
	if code == "" {
		return invalid, nil, nil
	}

	var promo models.PromoCode
	err := db.Where("code = ? AND is_active = ?", code, true).First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalid, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return &PromoValidation{Message: PromoMessageNotYetValid, DiscountPercentage: decimal.Zero}, &promo, nil
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return &PromoValidation{Message: PromoMessageExpired, DiscountPercentage: decimal.Zero}, &promo, nil
	}
	return &PromoValidation{Valid: true, Message: PromoMessageValid, DiscountPercentage: promo.DiscountPercentage}, &promo, nil
}

// PromoInput describes a new promo code.
type PromoInput struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	ValidFrom          *time.Time      `json:"valid_from"`
	ValidUntil         *time.Time      `json:"valid_until"`
	IsActive           *bool           `json:"is_active"`
}

func (s *PromoService) Create(ctx context.Context, in PromoInput) (*models.PromoCode, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, apperr.Validation("code is required")
	}
	if !in.DiscountPercentage.IsPositive() || in.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, apperr.Validation("discount percentage must be in (0, 100]")
	}
	if in.ValidFrom != nil && in.ValidUntil != nil && in.ValidUntil.Before(*in.ValidFrom) {
		return nil, apperr.Validation("valid_until must not be before valid_from")
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	promo := models.PromoCode{
		Code:               code,
		DiscountPercentage: in.DiscountPercentage,
		ValidFrom:          in.ValidFrom,
		ValidUntil:         in.ValidUntil,
		IsActive:           active,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.PromoCode{}).Where("code = ?", code).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("promo code %s already exists", code)
		}
		return tx.Create(&promo).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("promo code created", "code", code, "discount", promo.DiscountPercentage.String())
	return &promo, nil
}

func (s *PromoService) List(ctx context.Context) ([]models.PromoCode, error) {
	var promos []models.PromoCode
	err := s.db.WithContext(ctx).Order("code").Find(&promos).Error
	return promos, err
}

// SetActive switches a code on or off.
func (s *PromoService) SetActive(ctx context.Context, code string, active bool) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&promo, "code = ?", strings.TrimSpace(code)).Error; err != nil {
			return notFoundOr(err, "promo code not found")
		}
		promo.IsActive = active
		return tx.Model(&promo).Update("is_active", active).Error
	})
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// Seed inserts the launch promo codes unless they already exist.
func (s *PromoService) Seed(ctx context.Context) (int, error) {
	now := s.now()
	until := now.AddDate(0, 6, 0)
	seeds := []struct {
		code string
		pct  int64
	}{
		{"SAVE10", 10},
		{"SAVE20", 20},
		{"WELCOME15", 15},
	}

	created := 0
	for _, seed := range seeds {
		from, to := now, until
		_, err := s.Create(ctx, PromoInput{
			Code:               seed.code,
			DiscountPercentage: decimal.NewFromInt(seed.pct),
			ValidFrom:          &from,
			ValidUntil:         &to,
		})
		if apperr.Is(err, apperr.KindConflict) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
