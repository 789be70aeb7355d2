package response

import (
	"time"

	"cinebook/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondSuccess writes the success envelope.
func RespondSuccess(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

// RespondError normalizes any error into the failure envelope.
func RespondError(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	c.JSON(appErr.Status, ErrorEnvelope{
		StatusCode: appErr.Status,
		ErrorCode:  appErr.Code,
		Message:    appErr.Message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Details:    appErr.Details,
	})
}

// RespondErrorCode writes the failure envelope from an explicit status and code.
func RespondErrorCode(c *gin.Context, status int, errorCode, message string) {
	c.JSON(status, ErrorEnvelope{
		StatusCode: status,
		ErrorCode:  errorCode,
		Message:    message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}
