// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"cinebook/internal/analytics"
	"cinebook/internal/auth"
	"cinebook/internal/bookings"
	"cinebook/internal/idempotency"
	"cinebook/internal/notifications"
	"cinebook/internal/payments"
	"cinebook/internal/seats"
	"cinebook/internal/shared/config"
	"cinebook/internal/shared/database"
	"cinebook/internal/showtimes"
	"cinebook/pkg/cache"
)

// Router holds all route dependencies
type Router struct {
	config     *config.Config
	db         *database.DB
	seatEngine *seats.Engine
	publisher  notifications.Publisher

	// Services kept on the router for cross-feature dependency injection.
	showtimeService    showtimes.Service
	idempotencyService idempotency.Service
	bookingService     bookings.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, seatEngine *seats.Engine, publisher notifications.Publisher) *Router {
	return &Router{
		config:     cfg,
		db:         db,
		seatEngine: seatEngine,
		publisher:  publisher,
	}
}

// BookingService exposes the booking service for background workers.
// Valid only after SetupRoutes has run.
func (r *Router) BookingService() bookings.Service {
	return r.bookingService
}

// IdempotencyService exposes the request dedup service for background workers.
// Valid only after SetupRoutes has run.
func (r *Router) IdempotencyService() idempotency.Service {
	return r.idempotencyService
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// Swagger UI
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Shared request dedup store, used by bookings and payments.
	r.idempotencyService = idempotency.NewService(idempotency.NewRepository(r.db.GetPostgreSQL()))

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Setup auth routes
		r.setupAuthRoutes(api)

		// Setup catalog routes (must be before booking routes for dependency injection)
		r.setupShowtimeRoutes(api)
		r.setupSeatRoutes(api)

		// Setup booking routes (must be before payment routes for dependency injection)
		r.setupBookingRoutes(api)

		// Setup payment routes
		r.setupPaymentRoutes(api)

		// Setup analytics routes
		r.setupAnalyticsRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "cinebook-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "cinebook-backend",
		})
	})

	engine.GET("/health/ready", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready": false,
				"error": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"ready": true})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupAuthRoutes configures authentication routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	// Initialize auth dependencies
	authRepo := auth.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(authRepo, r.config)
	authController := auth.NewController(authService)
	authRouter := auth.NewRouter(authController, r.config)

	// Setup auth routes
	authRouter.SetupRoutes(rg)
}

// setupShowtimeRoutes configures the public movie and showtime catalog
func (r *Router) setupShowtimeRoutes(rg *gin.RouterGroup) {
	// Initialize showtime dependencies
	showtimeRepo := showtimes.NewRepository(r.db.GetPostgreSQL())
	showtimeService := showtimes.NewService(showtimeRepo)

	// Inject cache service for catalog read caching
	if r.db.Redis != nil {
		showtimeService.SetCacheService(cache.NewService(r.db.Redis))
	}

	showtimeController := showtimes.NewController(showtimeService)

	// Store showtime service for dependency injection
	r.showtimeService = showtimeService

	// Setup showtime routes
	showtimes.SetupShowtimeRoutes(rg, showtimeController)
}

// setupSeatRoutes configures the live seat-map read
func (r *Router) setupSeatRoutes(rg *gin.RouterGroup) {
	seatService := seats.NewService(r.seatEngine, r.showtimeService)
	seatController := seats.NewController(seatService)

	seats.SetupSeatRoutes(rg, seatController)
}

// setupBookingRoutes configures the seat hold and booking lifecycle routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	// Initialize booking dependencies
	bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL())
	bookingService := bookings.NewService(bookingRepo, r.seatEngine, r.showtimeService,
		r.idempotencyService, r.publisher, r.config.Booking)
	bookingController := bookings.NewController(bookingService)

	// Store booking service for dependency injection
	r.bookingService = bookingService

	// Setup booking routes
	bookings.SetupBookingRoutes(rg, bookingController)
}

// setupPaymentRoutes configures payment creation, lookup and the gateway webhook
func (r *Router) setupPaymentRoutes(rg *gin.RouterGroup) {
	// Initialize payment dependencies
	paymentRepo := payments.NewRepository(r.db.GetPostgreSQL())
	gateway := payments.NewSimulatedGateway(r.config.Payment.GatewayBaseURL)
	paymentService := payments.NewService(paymentRepo, gateway, r.bookingService,
		r.idempotencyService, r.publisher, r.config.Payment)
	paymentController := payments.NewController(paymentService, r.config.Payment.WebhookSecret)

	// Inject payment service into bookings so confirm can re-drive the gateway
	r.bookingService.SetPaymentInitiator(paymentService)

	// Setup payment routes
	payments.SetupPaymentRoutes(rg, paymentController)
}

// setupAnalyticsRoutes configures admin reporting and personal stats
func (r *Router) setupAnalyticsRoutes(rg *gin.RouterGroup) {
	// Initialize analytics dependencies
	analyticsRepo := analytics.NewRepository(r.db.GetPostgreSQL())
	analyticsService := analytics.NewService(analyticsRepo)

	// Inject cache service for dashboard caching
	if r.db.Redis != nil {
		analyticsService.SetCacheService(cache.NewService(r.db.Redis))
	}

	analyticsController := analytics.NewController(analyticsService)

	// Setup analytics routes
	analytics.SetupAnalyticsRoutes(rg, analyticsController)
}
