package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced in the error envelope. Handlers and clients
// branch on these, never on message text.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeTooManyCalls  = "RATE_LIMITED"
	CodeUnprocessable = "UNPROCESSABLE"
)

// AppError is a categorized error carrying the HTTP status and stable code
// used to build the error envelope. Details holds optional structured
// payload (e.g. the unavailable seat list) and is omitted when nil.
type AppError struct {
	Code    string
	Status  int
	Message string
	Details interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy carrying structured detail payload.
func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause returns a copy wrapping the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

func New(code string, status int, message string) *AppError {
	return &AppError{Code: code, Status: status, Message: message}
}

// Constructors by taxonomy class.

func Validation(code, message string) *AppError {
	return New(code, http.StatusBadRequest, message)
}

func Unauthorized(code, message string) *AppError {
	return New(code, http.StatusUnauthorized, message)
}

func Forbidden(code, message string) *AppError {
	return New(code, http.StatusForbidden, message)
}

func NotFound(code, message string) *AppError {
	return New(code, http.StatusNotFound, message)
}

func Conflict(code, message string) *AppError {
	return New(code, http.StatusConflict, message)
}

// Precondition covers requests that are well-formed but arrive in a state
// the lifecycle no longer permits (expired hold, started showtime).
func Precondition(code, message string) *AppError {
	return New(code, http.StatusBadRequest, message)
}

func Internal(message string, err error) *AppError {
	return &AppError{Code: CodeInternal, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// FromError normalizes any error into an AppError. Uncategorized errors
// become 500 INTERNAL_ERROR without leaking internals to the client.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    CodeInternal,
		Status:  http.StatusInternalServerError,
		Message: "An unexpected error occurred",
		Err:     err,
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP status an error maps to.
func StatusOf(err error) int {
	return FromError(err).Status
}
