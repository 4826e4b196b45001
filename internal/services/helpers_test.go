package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/models"
)

var ctx = context.Background()

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func nopLog() *logger.Logger { return logger.NewNop() }

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Phone:    "+1555" + username,
		Role:     models.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createProduct(t *testing.T, db *gorm.DB, title, category, price string) *models.Product {
	t.Helper()
	product := &models.Product{
		Title:    title,
		Category: category,
		Price:    decimal.RequireFromString(price),
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func checkout(items ...OrderLineRequest) CheckoutRequest {
	return CheckoutRequest{
		TotalAmount:    dec("100.00"),
		DiscountAmount: dec("0"),
		Items:          items,
		FullName:       "Ada Lovelace",
		Email:          "ada@example.com",
		Phone:          "+15550001",
		Street:         "1 Analytical St",
		City:           "London",
		State:          "LDN",
		ZipCode:        "N1",
		Country:        "UK",
	}
}

func line(productID uuid.UUID, qty int, price string) OrderLineRequest {
	return OrderLineRequest{ProductID: productID, Quantity: qty, Price: dec(price)}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (n *recordingNotifier) NotifyOrder(_ context.Context, event OrderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}
