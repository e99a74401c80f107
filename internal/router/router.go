package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/forecaster/internal/config"
	"github.com/soltixdb/forecaster/internal/handlers"
	"github.com/soltixdb/forecaster/internal/logging"
	"github.com/soltixdb/forecaster/internal/metrics"
	"github.com/soltixdb/forecaster/internal/middleware"
	"github.com/soltixdb/forecaster/internal/services"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, predictService *services.PredictService,
	recorder *metrics.Recorder, cfg config.Config,
) *handlers.Handler {
	h := handlers.New(logger, predictService)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))
	app.Use(middleware.Metrics(recorder))

	// Health check and metrics (no auth required)
	app.Get("/health", h.Health)
	if cfg.Metrics.Enabled && recorder != nil {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(recorder.Handler()))
	}

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}

	// API v1 routes
	v1 := app.Group("/api/v1",
		middleware.RateLimit(limiter),
		middleware.TokenAuth(logger, cfg.Auth),
	)
	v1.Post("/predict", h.Predict)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, predictService *services.PredictService,
	recorder *metrics.Recorder, cfg config.Config,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Forecaster",
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimit(),
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, predictService, recorder, cfg)

	return app
}
