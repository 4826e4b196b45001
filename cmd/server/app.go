package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/jobs"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/services"
)

type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *gorm.DB
	redis *redis.Client

	svc     routes.Services
	promos  *services.PromoService
	otp     *services.OTPService
	sweeper *services.OrderSweeper
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	db, err := database.Connect(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		log.Sync()
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: db}

	notifiers := []services.OrderNotifier{
		services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, log),
	}
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unavailable, order events stay local", "addr", cfg.RedisAddr, "error", err)
			_ = a.redis.Close()
			a.redis = nil
		} else {
			notifiers = append(notifiers, services.NewRedisOrderPublisher(a.redis, cfg.RedisOrderChannel, log))
		}
	}
	events := services.NewOrderEvents(log, notifiers...)

	var mailer services.Mailer
	if cfg.MailAPIKey != "" {
		mailer = services.NewHTTPMailer(services.MailConfig{
			APIKey:    cfg.MailAPIKey,
			BaseURL:   cfg.MailBaseURL,
			FromEmail: cfg.MailFromEmail,
			FromName:  cfg.MailFromName,
		}, log)
	} else {
		log.Warn("MAIL_API_KEY not set, email codes go to the log")
	}
	a.otp = services.NewOTPService(db, log, services.SystemClock, cfg.OTPLength, cfg.OTPTTL, mailer)
	sms := services.NewPlumSMS(services.PlumConfig{
		BaseURL:  cfg.PlumBaseURL,
		Username: cfg.PlumUsername,
		Password: cfg.PlumPassword,
	}, log, services.SystemClock)
	if sms.Enabled() {
		a.otp.WithSMS(sms)
	} else {
		log.Warn("PLUM credentials not set, sms codes go to the log")
	}
	a.promos = services.NewPromoService(db, log, services.SystemClock)
	a.sweeper = services.NewOrderSweeper(db, log, services.SystemClock, cfg.OrderDeliveryAfter, events)

	images := services.NewImageStore(cfg.UploadDir)
	google := services.NewGoogleVerifier(cfg.GoogleClientID, "", nil, services.SystemClock)
	a.svc = routes.Services{
		Catalog: services.NewCatalogService(db, log),
		Ratings: services.NewRatingService(db, log, services.SystemClock),
		Cart:    services.NewCartService(db, log, services.SystemClock),
		Orders: services.NewOrderService(db, log, services.SystemClock, services.OrderOptions{
			MissingProductPolicy: cfg.MissingProductPolicy,
			EnforcePromo:         cfg.EnforcePromoAtOrder,
		}, events),
		Promos:   a.promos,
		Wishlist: services.NewWishlistService(db, log),
		Users: services.NewUserService(db, log, a.otp, google, images, services.TokenConfig{
			Secret: cfg.JWTSecret,
			TTL:    cfg.TokenExpires,
		}),
		Images: images,
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	a.log.Sync()
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server := fiber.New(fiber.Config{
		AppName:      "Storefront Backend",
		ErrorHandler: handlers.ErrorHandler(a.log),
		BodyLimit:    6 << 20,
	})
	server.Use(recover.New())
	server.Use(fiberlogger.New())
	routes.Register(server, a.db, a.cfg, a.svc)

	runner := jobs.NewRunner(a.log)
	runner.Register(a.sweeper, a.cfg.OrderSweepInterval)
	runner.Register(services.OTPPurgeJob{OTP: a.otp}, a.cfg.OTPPurgeInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("starting server", "port", a.cfg.AppPort)
		return server.Listen(":" + a.cfg.AppPort)
	})
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		return server.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
