package payments

import (
	"github.com/gin-gonic/gin"

	"cinebook/internal/shared/middleware"
)

// SetupPaymentRoutes configures all payment-related routes
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller) {
	payments := rg.Group("/payments")
	{
		// The gateway callback authenticates by signature, not by JWT.
		payments.POST("/webhook/:provider", controller.HandleWebhook)

		authed := payments.Group("")
		authed.Use(middleware.JWTAuth())
		{
			authed.POST("", middleware.IdempotencyKey(), controller.CreatePayment)
			authed.GET("/:id", controller.GetPayment)
		}
	}
}
