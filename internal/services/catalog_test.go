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

func TestCatalogListAndFilters(t *testing.T) {
	db := dbtest.New(t)
	catalog := NewCatalogService(db, nopLog())
	for _, p := range []struct{ title, category string }{
		{"Green Tea", "Drinks"}, {"Coffee", "drinks"}, {"Cake", "Food"}, {"Juice", "Drinks"},
	} {
		_, err := catalog.Create(ctx, ProductInput{Title: p.title, Category: p.category, Price: dec("2.00")})
		require.NoError(t, err)
	}

	page, err := catalog.List(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Items, 2)

	page, err = catalog.List(ctx, 1, 10, "DRINKS")
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)

	categories, err := catalog.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Drinks", "Food", "drinks"}, categories)

	byCategory, err := catalog.ByCategory(ctx, "food")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Cake", byCategory[0].Title)
}

func TestCatalogRelated(t *testing.T) {
	db := dbtest.New(t)
	catalog := NewCatalogService(db, nopLog())
	tea := createProduct(t, db, "Tea", "drinks", "1.00")
	createProduct(t, db, "Coffee", "drinks", "1.00")
	createProduct(t, db, "Juice", "drinks", "1.00")
	createProduct(t, db, "Cake", "food", "1.00")

	related, err := catalog.Related(ctx, tea.ID, 0)
	require.NoError(t, err)
	assert.Len(t, related, 2)
	for _, p := range related {
		assert.NotEqual(t, tea.ID, p.ID)
		assert.Equal(t, "drinks", p.Category)
	}

	related, err = catalog.Related(ctx, tea.ID, 1)
	require.NoError(t, err)
	assert.Len(t, related, 1)

	_, err = catalog.Related(ctx, uuid.New(), 4)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCatalogCreateUpdateValidation(t *testing.T) {
	db := dbtest.New(t)
	catalog := NewCatalogService(db, nopLog())

	_, err := catalog.Create(ctx, ProductInput{Title: "Free", Category: "x", Price: dec("0")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = catalog.Create(ctx, ProductInput{Title: " ", Category: "x", Price: dec("1")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	product, err := catalog.Create(ctx, ProductInput{Title: "Tea", Category: "drinks", Price: dec("1.25"), Image: "/uploads/a.png"})
	require.NoError(t, err)

	updated, err := catalog.Update(ctx, product.ID, ProductInput{Title: "Black Tea", Category: "drinks", Price: dec("1.50")})
	require.NoError(t, err)
	assert.Equal(t, "Black Tea", updated.Title)
	assert.True(t, updated.Price.Equal(dec("1.50")))
	assert.Equal(t, "/uploads/a.png", updated.Image, "empty image keeps the current one")

	_, err = catalog.Update(ctx, uuid.New(), ProductInput{Title: "x", Category: "x", Price: dec("1")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCatalogDeleteCleansReferences(t *testing.T) {
	db := dbtest.New(t)
	catalog := NewCatalogService(db, nopLog())
	user := createUser(t, db, "alice")
	tea := createProduct(t, db, "Tea", "drinks", "3.50")

	_, _, err := NewCartService(db, nopLog(), nil).Add(ctx, user.ID, tea.ID, 2)
	require.NoError(t, err)
	_, err = NewWishlistService(db, nopLog()).Toggle(ctx, user.ID, tea.ID)
	require.NoError(t, err)
	orders := NewOrderService(db, nopLog(), nil, OrderOptions{}, nil)
	order, err := orders.Create(ctx, user.ID, checkout(line(tea.ID, 1, "3.50")))
	require.NoError(t, err)

	require.NoError(t, catalog.Delete(ctx, tea.ID))
	assert.True(t, apperr.Is(catalog.Delete(ctx, tea.ID), apperr.KindNotFound))

	for _, model := range []interface{}{&models.CartItem{}, &models.WishlistItem{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}

	got, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Nil(t, got.Items[0].ProductID)
	assert.Equal(t, "Tea", got.Items[0].ProductTitle)

	count, err := catalog.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
