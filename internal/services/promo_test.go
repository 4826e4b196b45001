package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/database/dbtest"
)

func TestPromoValidateSeededCode(t *testing.T) {
	db := dbtest.New(t)
	clock := newFakeClock()
	promos := NewPromoService(db, nopLog(), clock.Now)

	created, err := promos.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	again, err := promos.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, again, "seeding is idempotent")

	result, err := promos.Validate(ctx, "SAVE10")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, PromoMessageValid, result.Message)
	assert.True(t, result.DiscountPercentage.Equal(dec("10")))

	_, err = promos.SetActive(ctx, "SAVE10", false)
	require.NoError(t, err)
	result, err = promos.Validate(ctx, "SAVE10")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, PromoMessageInvalid, result.Message)
}

func TestPromoValidityWindow(t *testing.T) {
	db := dbtest.New(t)
	clock := newFakeClock()
	promos := NewPromoService(db, nopLog(), clock.Now)

	from := clock.Now().Add(time.Hour)
	until := clock.Now().Add(48 * time.Hour)
	_, err := promos.Create(ctx, PromoInput{
		Code:               "LATER",
		DiscountPercentage: dec("12.5"),
		ValidFrom:          &from,
		ValidUntil:         &until,
	})
	require.NoError(t, err)

	result, err := promos.Validate(ctx, "LATER")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, PromoMessageNotYetValid, result.Message)

	clock.Advance(2 * time.Hour)
	result, err = promos.Validate(ctx, "LATER")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.True(t, result.DiscountPercentage.Equal(dec("12.5")))

	clock.Advance(47 * time.Hour)
	result, err = promos.Validate(ctx, "LATER")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, PromoMessageExpired, result.Message)

	result, err = promos.Validate(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, PromoMessageInvalid, result.Message)
}

func TestPromoCreateValidation(t *testing.T) {
	db := dbtest.New(t)
	promos := NewPromoService(db, nopLog(), nil)

	_, err := promos.Create(ctx, PromoInput{Code: "ZERO", DiscountPercentage: dec("0")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	now := time.Now().UTC()
	before := now.Add(-time.Hour)
	_, err = promos.Create(ctx, PromoInput{Code: "BACKWARDS", DiscountPercentage: dec("5"), ValidFrom: &now, ValidUntil: &before})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = promos.Create(ctx, PromoInput{Code: "DUP", DiscountPercentage: dec("5")})
	require.NoError(t, err)
	_, err = promos.Create(ctx, PromoInput{Code: "DUP", DiscountPercentage: dec("5")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = promos.SetActive(ctx, "NOPE", true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	list, err := promos.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsActive)
}
