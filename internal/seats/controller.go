package seats

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/utils/response"
)

type Controller interface {
	GetSeatMap(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// GetSeatMap godoc
// @Summary Get the live seat map for a showtime
// @Tags seats
// @Produce json
// @Param id path string true "Showtime ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.ErrorEnvelope
// @Router /showtimes/{id}/seats [get]
func (ctrl *controller) GetSeatMap(c *gin.Context) {
	showtimeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, apperrors.Validation(apperrors.CodeValidation, "Invalid showtime ID"))
		return
	}

	seatMap, err := ctrl.service.GetSeatMap(c.Request.Context(), showtimeID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Seat map retrieved successfully", seatMap)
}
