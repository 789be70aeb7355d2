package analytics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/utils/response"
)

type Controller interface {
	GetDashboardAnalytics(c *gin.Context)
	GetShowtimeAnalytics(c *gin.Context)
	GetDailyBookingStats(c *gin.Context)
	GetPersonalStats(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) GetDashboardAnalytics(c *gin.Context) {
	dashboard, err := ctrl.service.GetDashboardAnalytics(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Dashboard analytics retrieved successfully", dashboard)
}

func (ctrl *controller) GetShowtimeAnalytics(c *gin.Context) {
	showtimeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, apperrors.Validation(apperrors.CodeValidation, "Invalid showtime ID"))
		return
	}

	analytics, err := ctrl.service.GetShowtimeAnalytics(c.Request.Context(), showtimeID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Showtime analytics retrieved successfully", analytics)
}

func (ctrl *controller) GetDailyBookingStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		response.RespondError(c, apperrors.Validation(apperrors.CodeValidation, "Invalid days parameter"))
		return
	}

	stats, err := ctrl.service.GetDailyBookingStats(c.Request.Context(), days)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Daily booking statistics retrieved successfully", stats)
}

func (ctrl *controller) GetPersonalStats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := ctrl.service.GetPersonalStats(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondSuccess(c, http.StatusOK, "Personal stats retrieved successfully", stats)
}

// currentUser extracts the authenticated user id set by the JWT middleware.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userIDInterface, exists := c.Get("user_id")
	if !exists {
		response.RespondErrorCode(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	userIDStr, ok := userIDInterface.(string)
	if !ok {
		response.RespondErrorCode(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		response.RespondErrorCode(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	return userID, true
}
