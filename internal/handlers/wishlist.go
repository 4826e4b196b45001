package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
)

type WishlistHandler struct {
	wishlist *services.WishlistService
}

func NewWishlistHandler(wishlist *services.WishlistService) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist}
}

// Toggle adds the product when absent and removes it when present.
func (h *WishlistHandler) Toggle(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}
	added, err := h.wishlist.Toggle(c.UserContext(), userID, productID)
	if err != nil {
		return err
	}
	message := "Removed from wishlist"
	if added {
		message = "Added to wishlist"
	}
	return c.JSON(fiber.Map{"success": true, "message": message, "in_wishlist": added})
}

func (h *WishlistHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.wishlist.List(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

func (h *WishlistHandler) Check(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}
	present, err := h.wishlist.Contains(c.UserContext(), userID, productID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "in_wishlist": present})
}
