package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/database/dbtest"
)

func TestWishlistToggleIsItsOwnInverse(t *testing.T) {
	db := dbtest.New(t)
	wishlist := NewWishlistService(db, nopLog())
	user := createUser(t, db, "alice")
	tea := createProduct(t, db, "Tea", "drinks", "3.50")

	in, err := wishlist.Contains(ctx, user.ID, tea.ID)
	require.NoError(t, err)
	assert.False(t, in)

	added, err := wishlist.Toggle(ctx, user.ID, tea.ID)
	require.NoError(t, err)
	assert.True(t, added)
	in, err = wishlist.Contains(ctx, user.ID, tea.ID)
	require.NoError(t, err)
	assert.True(t, in)

	added, err = wishlist.Toggle(ctx, user.ID, tea.ID)
	require.NoError(t, err)
	assert.False(t, added)
	in, err = wishlist.Contains(ctx, user.ID, tea.ID)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestWishlistUnknownParties(t *testing.T) {
	db := dbtest.New(t)
	wishlist := NewWishlistService(db, nopLog())
	user := createUser(t, db, "alice")
	tea := createProduct(t, db, "Tea", "drinks", "3.50")

	_, err := wishlist.Toggle(ctx, uuid.New(), tea.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = wishlist.Toggle(ctx, user.ID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	in, err := wishlist.Contains(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, in)
}

func TestWishlistListLoadsProducts(t *testing.T) {
	db := dbtest.New(t)
	wishlist := NewWishlistService(db, nopLog())
	user := createUser(t, db, "alice")
	tea := createProduct(t, db, "Tea", "drinks", "3.50")
	cake := createProduct(t, db, "Cake", "food", "5.00")

	_, err := wishlist.Toggle(ctx, user.ID, tea.ID)
	require.NoError(t, err)
	_, err = wishlist.Toggle(ctx, user.ID, cake.ID)
	require.NoError(t, err)

	items, err := wishlist.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	titles := []string{items[0].Product.Title, items[1].Product.Title}
	assert.ElementsMatch(t, []string{"Tea", "Cake"}, titles)
}
