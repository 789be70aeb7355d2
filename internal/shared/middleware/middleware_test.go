package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cinebook/internal/shared/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret"},
	}
}

func signToken(t *testing.T, secret, tokenType string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": uuid.NewString(),
		"email":   "user@example.com",
		"role":    "USER",
		"type":    tokenType,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func performRequest(handler gin.HandlerFunc, headers map[string]string) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/protected", handler, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAuthAcceptsValidAccessToken(t *testing.T) {
	cfg := testConfig()
	token := signToken(t, cfg.JWT.Secret, "access")

	w := performRequest(JWTAuthWithConfig(cfg), map[string]string{
		"Authorization": "Bearer " + token,
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	w := performRequest(JWTAuthWithConfig(testConfig()), nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthRejectsRefreshToken(t *testing.T) {
	cfg := testConfig()
	token := signToken(t, cfg.JWT.Secret, "refresh")

	w := performRequest(JWTAuthWithConfig(cfg), map[string]string{
		"Authorization": "Bearer " + token,
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", "access")

	w := performRequest(JWTAuthWithConfig(testConfig()), map[string]string{
		"Authorization": "Bearer " + token,
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdempotencyKeyAcceptsUUIDv4(t *testing.T) {
	var captured string
	router := gin.New()
	router.POST("/hold", IdempotencyKey(), func(c *gin.Context) {
		captured = c.GetString(ContextKeyIdempotencyKey)
		c.Status(http.StatusCreated)
	})

	key := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/hold", nil)
	req.Header.Set("X-Idempotency-Key", key)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, key, captured)
}

func TestIdempotencyKeyRejectsMissingHeader(t *testing.T) {
	router := gin.New()
	router.POST("/hold", IdempotencyKey(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/hold", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "IDEMPOTENCY_KEY_REQUIRED", envelope["errorCode"])
	assert.NotEmpty(t, envelope["timestamp"])
}

func TestIdempotencyKeyRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "not a uuid", key: "order-12345"},
		{name: "uuid v1", key: "c232ab00-9414-11ec-b3c8-9f68deced846"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/hold", IdempotencyKey(), func(c *gin.Context) {
				c.Status(http.StatusCreated)
			})

			req := httptest.NewRequest(http.MethodPost, "/hold", nil)
			req.Header.Set("X-Idempotency-Key", tt.key)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var envelope map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			assert.Equal(t, "IDEMPOTENCY_KEY_INVALID", envelope["errorCode"])
		})
	}
}
