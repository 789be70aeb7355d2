package showtimes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/utils/response"
)

type Controller interface {
	GetAllShowtimes(c *gin.Context)
	GetShowtime(c *gin.Context)
	GetAllMovies(c *gin.Context)
	GetMovie(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// GetAllShowtimes godoc
// @Summary List showtimes
// @Tags showtimes
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param movie_id query string false "Filter by movie"
// @Param city query string false "Filter by city"
// @Success 200 {object} response.StandardApiResponse
// @Router /showtimes [get]
func (ctrl *controller) GetAllShowtimes(c *gin.Context) {
	var query ShowtimeListQuery

	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondError(c, apperrors.Validation(apperrors.CodeValidation, "Invalid query parameters").WithDetails(err.Error()))
		return
	}

	showtimes, err := ctrl.service.GetAllShowtimes(c.Request.Context(), query)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Showtimes retrieved successfully", showtimes)
}

// GetShowtime godoc
// @Summary Get showtime details
// @Tags showtimes
// @Produce json
// @Param id path string true "Showtime ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 404 {object} response.ErrorEnvelope
// @Router /showtimes/{id} [get]
func (ctrl *controller) GetShowtime(c *gin.Context) {
	showtimeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, apperrors.Validation(apperrors.CodeValidation, "Invalid showtime ID"))
		return
	}

	showtime, err := ctrl.service.GetShowtimeByID(c.Request.Context(), showtimeID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Showtime retrieved successfully", showtime)
}

func (ctrl *controller) GetAllMovies(c *gin.Context) {
	var query MovieListQuery

	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondError(c, apperrors.Validation(apperrors.CodeValidation, "Invalid query parameters").WithDetails(err.Error()))
		return
	}

	movies, err := ctrl.service.GetAllMovies(c.Request.Context(), query)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Movies retrieved successfully", movies)
}

func (ctrl *controller) GetMovie(c *gin.Context) {
	movieID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, apperrors.Validation(apperrors.CodeValidation, "Invalid movie ID"))
		return
	}

	movie, err := ctrl.service.GetMovieByID(c.Request.Context(), movieID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Movie retrieved successfully", movie)
}
