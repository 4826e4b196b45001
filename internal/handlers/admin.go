package handlers

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	users   *services.UserService
	catalog *services.CatalogService
	orders  *services.OrderService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(users *services.UserService, catalog *services.CatalogService, orders *services.OrderService) *AdminHandler {
	return &AdminHandler{users: users, catalog: catalog, orders: orders}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var (
		totalUsers, totalProducts, totalOrders int64
		recent                                 []models.Order
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		totalUsers, err = h.users.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		totalProducts, err = h.catalog.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		totalOrders, err = h.orders.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = h.orders.Recent(ctx, 5)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":    totalUsers,
			"total_products": totalProducts,
			"total_orders":   totalOrders,
			"recent_orders":  recent,
		},
	})
}

// ListAllUsers returns registered users with pagination.
func (h *AdminHandler) ListAllUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	page, err := h.users.List(c.UserContext(), pg.Page, pg.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page.Items,
		"pagination": fiber.Map{
			"current_page":   page.Page,
			"items_per_page": page.Size,
			"total_items":    page.Total,
		},
	})
}

type roleRequest struct {
	Role string `json:"role"`
}

// SetUserRole changes a user's role, read from ?role= or the body.
func (h *AdminHandler) SetUserRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	role := c.Query("role")
	if role == "" {
		var req roleRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		role = req.Role
	}
	user, err := h.users.SetRole(c.UserContext(), id, role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

// DeleteUser removes a user and the data that hangs off them. Orders stay.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if current, ok := middleware.GetCurrentUserID(c); ok && current == id {
		return fiber.NewError(fiber.StatusBadRequest, "you cannot delete your own account")
	}
	if err := h.users.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "User deleted"})
}

// ListProducts returns paginated products.
func (h *AdminHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	page, err := h.catalog.List(c.UserContext(), pg.Page, pg.Limit, c.Query("category"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page.Items,
		"pagination": fiber.Map{
			"current_page":   page.Page,
			"items_per_page": page.Size,
			"total_items":    page.Total,
		},
	})
}

// CreateProduct adds a product.
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	var req services.ProductInput
	if err := bind(c, &req); err != nil {
		return err
	}
	product, err := h.catalog.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct replaces a product's editable fields.
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req services.ProductInput
	if err := bind(c, &req); err != nil {
		return err
	}
	product, err := h.catalog.Update(c.UserContext(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// DeleteProduct removes a product.
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product deleted"})
}

// ListAllOrders returns every order, newest first.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	orders, err := h.orders.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": orders})
}
