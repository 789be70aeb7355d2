package seats

import (
	"github.com/gin-gonic/gin"
)

// SetupSeatRoutes mounts the public seat-map read alongside the showtime
// routes. All seat mutations go through the booking flow, never through
// this surface.
func SetupSeatRoutes(rg *gin.RouterGroup, controller Controller) {
	showtimes := rg.Group("/showtimes")
	{
		showtimes.GET("/:id/seats", controller.GetSeatMap)
	}
}
