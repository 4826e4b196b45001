package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// ProductHandler serves the public catalog and product ratings.
type ProductHandler struct {
	catalog *services.CatalogService
	ratings *services.RatingService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(catalog *services.CatalogService, ratings *services.RatingService) *ProductHandler {
	return &ProductHandler{catalog: catalog, ratings: ratings}
}

// ListProducts returns paginated products, optionally filtered by category.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
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

// GetProduct returns a single product.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.catalog.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// ListCategories returns the distinct category names.
func (h *ProductHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categories})
}

// ListByCategory returns every product of one category.
func (h *ProductHandler) ListByCategory(c *fiber.Ctx) error {
	products, err := h.catalog.ByCategory(c.UserContext(), c.Params("category"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": products})
}

// Related returns products sharing the category of :id.
func (h *ProductHandler) Related(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	products, err := h.catalog.Related(c.UserContext(), id, utils.QueryInt(c, "limit", 4))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": products})
}

// RatingSummary returns the rating distribution of a product.
func (h *ProductHandler) RatingSummary(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	summary, err := h.ratings.Summary(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": summary})
}

// Reviews returns paginated reviews of a product.
func (h *ProductHandler) Reviews(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c)
	page, err := h.ratings.Reviews(c.UserContext(), id, pg.Page, pg.Limit)
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

type rateRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// Rate creates or replaces the caller's rating of a product.
func (h *ProductHandler) Rate(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req rateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	rating, err := h.ratings.Upsert(c.UserContext(), userID, id, req.Rating, req.Review)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rating})
}

// RegisterProductRoutes mounts the public product routes plus the
// authenticated rating route guarded by auth.
func (h *ProductHandler) RegisterProductRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/", h.ListProducts)
	router.Get("/categories", h.ListCategories)
	router.Get("/category/:category", h.ListByCategory)
	router.Get("/:id", h.GetProduct)
	router.Get("/:id/related", h.Related)
	router.Get("/:id/ratings", h.RatingSummary)
	router.Get("/:id/reviews", h.Reviews)
	router.Post("/:id/ratings", auth, h.Rate)
}
