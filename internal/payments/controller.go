package payments

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
	service       Service
	webhookSecret string
}

func NewController(service Service, webhookSecret string) *Controller {
	return &Controller{service: service, webhookSecret: webhookSecret}
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

// readBody consumes and restores the request body so the exact bytes can be
// hashed or signature-checked and then bound as usual.
func readBody(ctx *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return nil, err
	}
	ctx.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// CreatePayment godoc
// @Summary Create a payment for a pending booking
// @Tags payments
// @Accept json
// @Produce json
// @Param X-Idempotency-Key header string true "Client idempotency key (UUID v4)"
// @Param request body CreatePaymentRequest true "Booking and payment method"
// @Success 201 {object} response.StandardApiResponse
// @Success 200 {object} response.StandardApiResponse
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Failure 409 {object} response.ErrorEnvelope
// @Security BearerAuth
// @Router /payments [post]
func (c *Controller) CreatePayment(ctx *gin.Context) {
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

	var req CreatePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Invalid request body").WithDetails(err.Error()))
		return
	}

	requestHash, err := idempotency.HashBody(rawBody)
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Request body is not valid JSON")
		return
	}

	outcome, err := c.service.CreatePayment(ctx.Request.Context(), userID, idempotencyKey, ctx.FullPath(), requestHash, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	if outcome.Replayed {
		ctx.Header("X-Idempotent-Replay", "true")
	}
	ctx.Data(outcome.StatusCode, jsonContentType, outcome.Body)
}

// HandleWebhook godoc
// @Summary Gateway callback for payment results
// @Tags payments
// @Accept json
// @Produce json
// @Param provider path string true "Payment provider" Enums(momo, vnpay, zalopay, card)
// @Param X-Signature header string true "HMAC-SHA256 of the raw body, hex encoded"
// @Param request body WebhookRequest true "Gateway result"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /payments/webhook/{provider} [post]
func (c *Controller) HandleWebhook(ctx *gin.Context) {
	rawBody, err := readBody(ctx)
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Failed to read request body")
		return
	}

	// The signature covers the raw bytes, so it is checked before anything
	// is decoded.
	if !VerifySignature(c.webhookSecret, rawBody, ctx.GetHeader("X-Signature")) {
		response.RespondErrorCode(ctx, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature is missing or invalid")
		return
	}

	var req WebhookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Invalid webhook payload").WithDetails(err.Error()))
		return
	}

	result, err := c.service.HandleWebhook(ctx.Request.Context(), ctx.Param("provider"), req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// GetPayment godoc
// @Summary Get a payment by ID
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Security BearerAuth
// @Router /payments/{id} [get]
func (c *Controller) GetPayment(ctx *gin.Context) {
	paymentID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondErrorCode(ctx, http.StatusBadRequest, apperrors.CodeInvalidInput, "Invalid payment ID")
		return
	}
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}

	payment, err := c.service.GetPayment(ctx.Request.Context(), paymentID, userID, isAdmin(ctx))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Payment retrieved successfully", payment)
}
