package bookings

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cinebook/internal/idempotency"
	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/middleware"
	"cinebook/internal/shared/utils/response"
	"cinebook/internal/users"
)

const jsonContentType = "application/json; charset=utf-8"

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// currentUser extracts the authenticated user id set by the JWT middleware.
func currentUser(ctx *gin.Context) (uuid.UUID, bool) {
	userIDInterface, exists := ctx.Get("user_id")
	if !exists {
		response.RespondErrorCode(ctx, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	userIDStr, ok := userIDInterface.(string)
	if !ok {
		response.RespondErrorCode(ctx, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	return userID, true
}

func isAdmin(ctx *gin.Context) bool {
	role, _ := ctx.Get("user_role")
	roleStr, _ := role.(string)
	return roleStr == string(users.RoleAdmin)
}

// readBody consumes and restores the request body so it can be hashed for
// idempotency and then bound as usual.
func readBody(ctx *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return nil, err
	}
	ctx.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// HoldSeats godoc
// @Summary Hold seats for a showtime
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-Idempotency-Key header string true "Client idempotency key (UUID v4)"
// @Param request body HoldSeatsRequest true "Seats to hold"
// @Success 201 {object} response.StandardApiResponse
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 409 {object} response.ErrorEnvelope
// @Security BearerAuth
// @Router /bookings/hold [post]
func (c *Controller) HoldSeats(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	idempotencyKey := ctx.GetString(middleware.ContextKeyIdempotencyKey)

	rawBody, err := readBody(ctx)
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Failed to read request body")
		return
	}

	var req HoldSeatsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Invalid request body").WithDetails(err.Error()))
		return
	}

	requestHash, err := idempotency.HashBody(rawBody)
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Request body is not valid JSON")
		return
	}

	outcome, err := c.service.HoldSeats(ctx.Request.Context(), userID, idempotencyKey, ctx.FullPath(), requestHash, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	if outcome.Replayed {
		ctx.Header("X-Idempotent-Replay", "true")
	}
	ctx.Data(outcome.StatusCode, jsonContentType, outcome.Body)
}

// ConfirmBooking godoc
// @Summary Confirm a booking by initiating payment
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param X-Idempotency-Key header string true "Client idempotency key (UUID v4)"
// @Param request body ConfirmBookingRequest true "Payment method"
// @Success 200 {object} response.StandardApiResponse
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 403 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Security BearerAuth
// @Router /bookings/{id}/confirm [post]
func (c *Controller) ConfirmBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid booking ID")
		return
	}
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	idempotencyKey := ctx.GetString(middleware.ContextKeyIdempotencyKey)

	rawBody, err := readBody(ctx)
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Failed to read request body")
		return
	}

	var req ConfirmBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Invalid request body").WithDetails(err.Error()))
		return
	}

	requestHash, err := idempotency.HashBody(rawBody)
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Request body is not valid JSON")
		return
	}

	outcome, err := c.service.ConfirmBooking(ctx.Request.Context(), bookingID, userID, idempotencyKey, ctx.FullPath(), requestHash, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	if outcome.Replayed {
		ctx.Header("X-Idempotent-Replay", "true")
	}
	ctx.Data(outcome.StatusCode, jsonContentType, outcome.Body)
}

// CancelBooking godoc
// @Summary Cancel a pending booking
// @Tags bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 403 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Security BearerAuth
// @Router /bookings/{id} [delete]
func (c *Controller) CancelBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid booking ID")
		return
	}
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	booking, err := c.service.CancelBooking(ctx.Request.Context(), bookingID, userID, isAdmin(ctx))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Booking cancelled successfully", booking)
}

// GetBooking godoc
// @Summary Get a booking by ID
// @Tags bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Security BearerAuth
// @Router /bookings/{id} [get]
func (c *Controller) GetBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid booking ID")
		return
	}
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID, userID, isAdmin(ctx))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Booking retrieved successfully", booking)
}
