package analytics

import (
	"github.com/gin-gonic/gin"

	"cinebook/internal/shared/middleware"
)

// SetupAnalyticsRoutes configures analytics routes. Admin reporting lives
// under /analytics/admin; authenticated users get their own stats at
// /analytics/me.
func SetupAnalyticsRoutes(rg *gin.RouterGroup, controller Controller) {
	analytics := rg.Group("/analytics")

	admin := analytics.Group("/admin")
	admin.Use(middleware.JWTAuth())
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/dashboard", controller.GetDashboardAnalytics)
		admin.GET("/bookings/daily", controller.GetDailyBookingStats)
		admin.GET("/showtimes/:id", controller.GetShowtimeAnalytics)
	}

	me := analytics.Group("/me")
	me.Use(middleware.JWTAuth())
	{
		me.GET("", controller.GetPersonalStats)
	}
}
