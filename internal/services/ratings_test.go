package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/database/dbtest"
	"github.com/example/storefront/internal/models"
)

func TestRatingUpsertRefreshesAggregate(t *testing.T) {
	db := dbtest.New(t)
	ratings := NewRatingService(db, nopLog(), nil)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	tea := createProduct(t, db, "Tea", "drinks", "3.50")

	_, err := ratings.Upsert(ctx, alice.ID, tea.ID, 5, "lovely")
	require.NoError(t, err)
	_, err = ratings.Upsert(ctx, bob.ID, tea.ID, 2, "")
	require.NoError(t, err)
	saved, err := ratings.Upsert(ctx, bob.ID, tea.ID, 4, "grew on me")
	require.NoError(t, err)
	assert.Equal(t, 4, saved.Rating)
	assert.Equal(t, "grew on me", saved.Review)

	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", tea.ID).Error)
	assert.Equal(t, 2, product.RatingCount)
	assert.InDelta(t, 4.5, product.RatingRate, 0.001)

	summary, err := ratings.Summary(ctx, tea.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.Total)
	assert.InDelta(t, 4.5, summary.Average, 0.001)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 1, 5: 1}, summary.Distribution)

	page, err := ratings.Reviews(ctx, tea.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.Items[0].User)
}

func TestRatingValidation(t *testing.T) {
	db := dbtest.New(t)
	ratings := NewRatingService(db, nopLog(), nil)
	alice := createUser(t, db, "alice")
	tea := createProduct(t, db, "Tea", "drinks", "3.50")

	for _, r := range []int{0, 6} {
		_, err := ratings.Upsert(ctx, alice.ID, tea.ID, r, "")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	}
	_, err := ratings.Upsert(ctx, alice.ID, uuid.New(), 3, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = ratings.Summary(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
