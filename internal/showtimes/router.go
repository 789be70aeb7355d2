package showtimes

import (
	"github.com/gin-gonic/gin"
)

// SetupShowtimeRoutes registers the public catalog routes. The per-showtime
// seat map lives in the seats package; booking mutations live in bookings.
func SetupShowtimeRoutes(router *gin.RouterGroup, controller Controller) {
	showtimes := router.Group("/showtimes")
	{
		showtimes.GET("", controller.GetAllShowtimes) // GET /api/v1/showtimes - Browse showtimes
		showtimes.GET("/:id", controller.GetShowtime) // GET /api/v1/showtimes/:id - Showtime details
	}

	movies := router.Group("/movies")
	{
		movies.GET("", controller.GetAllMovies) // GET /api/v1/movies - Browse movies
		movies.GET("/:id", controller.GetMovie) // GET /api/v1/movies/:id - Movie details
	}
}
