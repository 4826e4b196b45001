package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder places an order for the authenticated user.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req services.CheckoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.orders.Create(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": order})
}

// ListOrders returns every order for admins and the caller's own otherwise.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	if middleware.IsAdmin(c) {
		return h.listAll(c)
	}
	return h.MyOrders(c)
}

// MyOrders returns the caller's orders, newest first.
func (h *OrderHandler) MyOrders(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	orders, err := h.orders.ListForUser(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": orders})
}

func (h *OrderHandler) listAll(c *fiber.Ctx) error {
	orders, err := h.orders.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": orders})
}

// GetOrder returns one order. Users only see their own.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.orders.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	if order.UserID != userID && !middleware.IsAdmin(c) {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

// CancelOrder cancels one of the caller's pending orders.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.orders.Cancel(c.UserContext(), id, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Order cancelled", "data": order})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves an order to the status given as ?status= or in the body.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	status := c.Query("status")
	if status == "" && len(c.Body()) > 0 {
		var req statusRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		status = req.Status
	}
	if status == "" {
		return fiber.NewError(fiber.StatusBadRequest, "status is required")
	}
	order, err := h.orders.UpdateStatus(c.UserContext(), id, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}
