package bookings

import (
	"github.com/gin-gonic/gin"

	"cinebook/internal/shared/middleware"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller) {
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuth())
	{
		// Write operations additionally require a client idempotency key.
		bookings.POST("/hold", middleware.IdempotencyKey(), controller.HoldSeats)
		bookings.POST("/:id/confirm", middleware.IdempotencyKey(), controller.ConfirmBooking)

		bookings.DELETE("/:id", controller.CancelBooking)
		bookings.GET("/:id", controller.GetBooking)
	}
}
