package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/database/dbtest"
)

func TestCartAddTwiceSumsQuantities(t *testing.T) {
	db := dbtest.New(t)
	cart := NewCartService(db, nopLog(), nil)
	user := createUser(t, db, "alice")
	product := createProduct(t, db, "Tea", "drinks", "3.50")

	for _, tc := range []struct{ q1, q2 int }{{1, 1}, {2, 5}, {7, 3}} {
		require.NoError(t, cart.Clear(ctx, user.ID))

		_, _, err := cart.Add(ctx, user.ID, product.ID, tc.q1)
		require.NoError(t, err)
		item, count, err := cart.Add(ctx, user.ID, product.ID, tc.q2)
		require.NoError(t, err)

		assert.Equal(t, tc.q1+tc.q2, item.Quantity)
		assert.EqualValues(t, 1, count)
		require.NotNil(t, item.Product)
		assert.Equal(t, "Tea", item.Product.Title)
	}
}

func TestCartAddValidatesInput(t *testing.T) {
	db := dbtest.New(t)
	cart := NewCartService(db, nopLog(), nil)
	user := createUser(t, db, "alice")
	product := createProduct(t, db, "Tea", "drinks", "3.50")

	_, _, err := cart.Add(ctx, user.ID, product.ID, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, _, err = cart.Add(ctx, uuid.New(), product.ID, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, _, err = cart.Add(ctx, user.ID, uuid.New(), 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCartSetQuantityIsAbsoluteAndRemovesAtZero(t *testing.T) {
	db := dbtest.New(t)
	cart := NewCartService(db, nopLog(), nil)
	user := createUser(t, db, "alice")
	tea := createProduct(t, db, "Tea", "drinks", "3.50")
	cake := createProduct(t, db, "Cake", "food", "5.00")

	_, _, err := cart.Add(ctx, user.ID, tea.ID, 4)
	require.NoError(t, err)

	item, count, err := cart.SetQuantity(ctx, user.ID, tea.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.EqualValues(t, 1, count)

	item, count, err = cart.SetQuantity(ctx, user.ID, cake.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.EqualValues(t, 2, count)

	item, count, err = cart.SetQuantity(ctx, user.ID, tea.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.EqualValues(t, 1, count)

	// Removing an absent line again is fine.
	_, _, err = cart.SetQuantity(ctx, user.ID, tea.ID, -1)
	require.NoError(t, err)

	items, err := cart.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, cake.ID, items[0].ProductID)
}

func TestCartRemoveClearAndCount(t *testing.T) {
	db := dbtest.New(t)
	cart := NewCartService(db, nopLog(), nil)
	user := createUser(t, db, "alice")
	tea := createProduct(t, db, "Tea", "drinks", "3.50")
	cake := createProduct(t, db, "Cake", "food", "5.00")

	_, _, err := cart.Add(ctx, user.ID, tea.ID, 10)
	require.NoError(t, err)
	_, _, err = cart.Add(ctx, user.ID, cake.ID, 1)
	require.NoError(t, err)

	count, err := cart.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "count is lines, not units")

	require.NoError(t, cart.Remove(ctx, user.ID, tea.ID))
	require.NoError(t, cart.Remove(ctx, user.ID, tea.ID))
	count, err = cart.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, cart.Clear(ctx, user.ID))
	count, err = cart.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = cart.Count(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = cart.List(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
