package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// Services bundles the domain services the HTTP layer talks to.
type Services struct {
	Catalog  *services.CatalogService
	Ratings  *services.RatingService
	Cart     *services.CartService
	Orders   *services.OrderService
	Promos   *services.PromoService
	Wishlist *services.WishlistService
	Users    *services.UserService
	Images   *services.ImageStore
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, svc Services) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "status": "down"})
		}
		return c.JSON(fiber.Map{"success": true, "status": "ok", "time": time.Now().UTC()})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	if svc.Images != nil {
		app.Static("/uploads", svc.Images.Dir())
	}

	authHandler := handlers.NewAuthHandler(svc.Users)
	productHandler := handlers.NewProductHandler(svc.Catalog, svc.Ratings)
	cartHandler := handlers.NewCartHandler(svc.Cart)
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	promoHandler := handlers.NewPromoHandler(svc.Promos)
	wishlistHandler := handlers.NewWishlistHandler(svc.Wishlist)
	profileHandler := handlers.NewProfileHandler(svc.Users)
	adminHandler := handlers.NewAdminHandler(svc.Users, svc.Catalog, svc.Orders)

	requireAuth := middleware.AuthMiddleware(cfg.JWTSecret)
	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/verify-otp", authHandler.VerifyOTP)
	auth.Post("/google", authHandler.Google)
	auth.Post("/resend-otp", authHandler.ResendOTP)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)

	// Products
	products := api.Group("/products")
	productHandler.RegisterProductRoutes(products, requireAuth)

	api.Get("/promo-codes/validate/:code", promoHandler.Validate)

	// Protected routes
	orders := api.Group("/orders", requireAuth)
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/", orderHandler.ListOrders)
	orders.Get("/my-orders", orderHandler.MyOrders)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Delete("/:id", orderHandler.CancelOrder)
	orders.Put("/:id/status", middleware.RequireAdmin(), orderHandler.UpdateStatus)

	cart := api.Group("/cart", requireAuth)
	cart.Get("/", cartHandler.List)
	cart.Get("/count", cartHandler.Count)
	cart.Post("/add", cartHandler.Add)
	cart.Put("/update", cartHandler.Update)
	cart.Delete("/remove/:productId", cartHandler.Remove)
	cart.Delete("/clear", cartHandler.Clear)

	wishlist := api.Group("/wishlist", requireAuth)
	wishlist.Get("/", wishlistHandler.List)
	wishlist.Post("/toggle/:productId", wishlistHandler.Toggle)
	wishlist.Get("/check/:productId", wishlistHandler.Check)

	profile := api.Group("/users/profile", requireAuth)
	profile.Get("/", profileHandler.GetProfile)
	profile.Put("/", profileHandler.UpdateProfile)
	profile.Post("/image", profileHandler.UploadImage)

	// Admin routes
	admin := api.Group("/admin", requireAuth, middleware.RequireAdmin())
	admin.Get("/dashboard", adminHandler.DashboardStats)
	admin.Get("/users", adminHandler.ListAllUsers)
	admin.Put("/users/:id/role", adminHandler.SetUserRole)
	admin.Delete("/users/:id", adminHandler.DeleteUser)
	admin.Get("/products", adminHandler.ListProducts)
	admin.Post("/products", adminHandler.CreateProduct)
	admin.Put("/products/:id", adminHandler.UpdateProduct)
	admin.Delete("/products/:id", adminHandler.DeleteProduct)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Put("/orders/:id/status", orderHandler.UpdateStatus)
	admin.Get("/promo-codes", promoHandler.List)
	admin.Post("/promo-codes", promoHandler.Create)
	admin.Put("/promo-codes/:code/active", promoHandler.SetActive)
}
