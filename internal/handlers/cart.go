package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// CartHandler manages the caller's cart. Every mutation answers with the
// new line count so clients can refresh their badge.
type CartHandler struct {
	cart *services.CartService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(cart *services.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

// Add adds quantity (default 1) of productId to the cart.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := queryID(c, "productId")
	if err != nil {
		return err
	}
	item, count, err := h.cart.Add(c.UserContext(), userID, productID, utils.QueryInt(c, "quantity", 1))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"message":         "Product added to cart",
		"data":            item,
		"cart_item_count": count,
	})
}

// Update sets the exact quantity of a line; zero or less removes it.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := queryID(c, "productId")
	if err != nil {
		return err
	}
	quantity, err := strconv.Atoi(c.Query("quantity"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "quantity is required")
	}
	item, count, err := h.cart.SetQuantity(c.UserContext(), userID, productID, quantity)
	if err != nil {
		return err
	}
	message := "Cart updated"
	if item == nil {
		message = "Product removed from cart"
	}
	return c.JSON(fiber.Map{
		"success":         true,
		"message":         message,
		"data":            item,
		"cart_item_count": count,
	})
}

// Remove drops one product from the cart.
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}
	if err := h.cart.Remove(c.UserContext(), userID, productID); err != nil {
		return err
	}
	return h.countResponse(c, userID, "Product removed from cart")
}

// Clear empties the cart.
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.cart.Clear(c.UserContext(), userID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Cart cleared", "cart_item_count": 0})
}

// List returns the cart lines with their products.
func (h *CartHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.cart.List(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items, "cart_item_count": len(items)})
}

// Count returns the number of cart lines.
func (h *CartHandler) Count(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	return h.countResponse(c, userID, "")
}

func (h *CartHandler) countResponse(c *fiber.Ctx, userID uuid.UUID, message string) error {
	count, err := h.cart.Count(c.UserContext(), userID)
	if err != nil {
		return err
	}
	resp := fiber.Map{"success": true, "cart_item_count": count}
	if message != "" {
		resp["message"] = message
	}
	return c.JSON(resp)
}
