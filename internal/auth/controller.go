package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/utils/response"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} response.StandardApiResponse
// @Failure 409 {object} response.ErrorEnvelope
// @Router /auth/register [post]
func (c *Controller) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Invalid request body").WithDetails(err.Error()))
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Validation failed").WithDetails(err.Error()))
		return
	}

	resp, err := c.service.Register(ctx.Request.Context(), &req)
	if err != nil {
		switch err {
		case ErrUserAlreadyExists:
			response.RespondErrorCode(ctx, http.StatusConflict, "USER_ALREADY_EXISTS", "User with this email already exists")
		default:
			response.RespondError(ctx, err)
		}
		return
	}

	response.RespondSuccess(ctx, http.StatusCreated, "User registered successfully", resp)
}

// Login godoc
// @Summary Authenticate and obtain a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} response.StandardApiResponse
// @Failure 401 {object} response.ErrorEnvelope
// @Router /auth/login [post]
func (c *Controller) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Invalid request body").WithDetails(err.Error()))
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Validation failed").WithDetails(err.Error()))
		return
	}

	resp, err := c.service.Login(ctx.Request.Context(), &req)
	if err != nil {
		switch err {
		case ErrInvalidCredentials:
			response.RespondErrorCode(ctx, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		default:
			response.RespondError(ctx, err)
		}
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Login successful", resp)
}

func (c *Controller) RefreshToken(ctx *gin.Context) {
	var req RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Invalid request body").WithDetails(err.Error()))
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Validation failed").WithDetails(err.Error()))
		return
	}

	tokenPair, err := c.service.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		switch err {
		case ErrInvalidToken, ErrTokenExpired, ErrUserNotFound:
			response.RespondErrorCode(ctx, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid or expired refresh token")
		default:
			response.RespondError(ctx, err)
		}
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Token refreshed successfully", tokenPair)
}

func (c *Controller) Logout(ctx *gin.Context) {
	var req LogoutRequest
	ctx.ShouldBindJSON(&req) // Optional body

	response.RespondSuccess(ctx, http.StatusOK, "Logged out successfully", nil)
}

func (c *Controller) ChangePassword(ctx *gin.Context) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		response.RespondErrorCode(ctx, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
		return
	}

	var req ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Invalid request body").WithDetails(err.Error()))
		return
	}

	if err := c.validator.Struct(&req); err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeValidation, "Validation failed").WithDetails(err.Error()))
		return
	}

	err := c.service.ChangePassword(ctx.Request.Context(), userID.(string), &req)
	if err != nil {
		switch err {
		case ErrInvalidCredentials:
			response.RespondErrorCode(ctx, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is incorrect")
		case ErrUserNotFound:
			response.RespondErrorCode(ctx, http.StatusNotFound, apperrors.CodeNotFound, "User not found")
		default:
			response.RespondError(ctx, err)
		}
		return
	}

	response.RespondSuccess(ctx, http.StatusOK, "Password changed successfully", nil)
}

func (c *Controller) GetMe(ctx *gin.Context) {
	userID, exists := ctx.Get("user_id")
	if !exists {
		response.RespondErrorCode(ctx, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
		return
	}

	email, _ := ctx.Get("user_email")
	role, _ := ctx.Get("user_role")

	userData := map[string]interface{}{
		"id":    userID,
		"email": email,
		"role":  role,
	}

	response.RespondSuccess(ctx, http.StatusOK, "User data retrieved successfully", userData)
}
