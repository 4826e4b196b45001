package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
)

// PromoHandler manages promo code endpoints.
type PromoHandler struct {
	promos *services.PromoService
}

// NewPromoHandler constructs PromoHandler.
func NewPromoHandler(promos *services.PromoService) *PromoHandler {
	return &PromoHandler{promos: promos}
}

// Validate reports whether :code can be used right now. An unusable code
// is still a 200 with valid=false.
func (h *PromoHandler) Validate(c *fiber.Ctx) error {
	result, err := h.promos.Validate(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": result})
}

// List returns every promo code.
func (h *PromoHandler) List(c *fiber.Ctx) error {
	codes, err := h.promos.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": codes})
}

// Create adds a promo code.
func (h *PromoHandler) Create(c *fiber.Ctx) error {
	var req services.PromoInput
	if err := bind(c, &req); err != nil {
		return err
	}
	code, err := h.promos.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": code})
}

type activeRequest struct {
	Active *bool `json:"active"`
}

// SetActive enables or disables a promo code.
func (h *PromoHandler) SetActive(c *fiber.Ctx) error {
	var req activeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Active == nil {
		return fiber.NewError(fiber.StatusBadRequest, "active is required")
	}
	code, err := h.promos.SetActive(c.UserContext(), c.Params("code"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": code})
}
