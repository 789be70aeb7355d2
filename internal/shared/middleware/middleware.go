package middleware

import (
	"net/http"
	"strings"

	"cinebook/internal/shared/apperrors"
	"cinebook/internal/shared/config"
	"cinebook/internal/shared/utils/response"
	"cinebook/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ContextKeyIdempotencyKey is where the validated X-Idempotency-Key lands.
const ContextKeyIdempotencyKey = "idempotency_key"

// JWTAuth creates a JWT authentication middleware
func JWTAuth() gin.HandlerFunc {
	return JWTAuthWithConfig(config.Load())
}

// JWTAuthWithConfig creates a JWT authentication middleware with config
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondErrorCode(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondErrorCode(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}

		tokenString := parts[1]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})

		if err != nil || !token.Valid {
			response.RespondErrorCode(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
				response.RespondErrorCode(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Invalid token type")
				c.Abort()
				return
			}
			c.Set("user_id", claims["user_id"])
			c.Set("user_email", claims["email"])
			c.Set("user_role", claims["role"])
		}

		c.Next()
	}
}

// RequireRole middleware checks if user has required role
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("user_role")
		if !exists {
			response.RespondErrorCode(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User role not found in context")
			c.Abort()
			return
		}

		if userRole.(string) != requiredRole {
			response.RespondErrorCode(c, http.StatusForbidden, apperrors.CodeForbidden, "Insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(string(users.RoleAdmin))
}

// IdempotencyKey validates the X-Idempotency-Key header on mutating routes.
// The core treats the key as an opaque string; the boundary requires the
// canonical UUID-v4 textual form so clients cannot smuggle arbitrary blobs
// into the dedup table.
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Idempotency-Key")
		if key == "" {
			response.RespondErrorCode(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_REQUIRED", "X-Idempotency-Key header is required")
			c.Abort()
			return
		}

		if len(key) > 100 {
			response.RespondErrorCode(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_INVALID", "X-Idempotency-Key must be at most 100 characters")
			c.Abort()
			return
		}

		parsed, err := uuid.Parse(key)
		if err != nil || parsed.Version() != 4 {
			response.RespondErrorCode(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_INVALID", "X-Idempotency-Key must be a UUID v4")
			c.Abort()
			return
		}

		c.Set(ContextKeyIdempotencyKey, key)
		c.Next()
	}
}

// CORS middleware
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Idempotency-Key, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
