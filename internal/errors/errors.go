package errors

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-realtime-api/internal/validation"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"

	// Service errors
	ErrCodeInternalError = "INTERNAL_ERROR"
)

const internalErrorMessage = "Internal server error"

var hideInternalErrors atomic.Bool

// SetProduction hides the detail of 500 responses when enabled.
func SetProduction(enabled bool) {
	hideInternalErrors.Store(enabled)
}

// APIError is the body of every failed response.
type APIError struct {
	Success bool                    `json:"success"`
	Message string                  `json:"error"`
	Code    string                  `json:"code"`
	Fields  []validation.FieldError `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// RespondWithError sends an error response and aborts the handler chain.
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	err.Success = false
	c.AbortWithStatusJSON(statusCode, err)
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, orDefault(message, "Authentication required")))
}

// InvalidCredentials sends a 401 response for a failed login
func InvalidCredentials(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeInvalidCredentials, orDefault(message, "Invalid email or password")))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, orDefault(message, "Access denied")))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, orDefault(message, "Resource not found")))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, orDefault(message, "Invalid request")))
}

// ValidationFailed sends a 400 response listing every rejected field.
func ValidationFailed(c *gin.Context, verr *validation.Error) {
	RespondWithError(c, http.StatusBadRequest, &APIError{
		Message: "Validation failed",
		Code:    ErrCodeValidation,
		Fields:  verr.Fields,
	})
}

// AlreadyExists sends a 409 response for a uniqueness violation
func AlreadyExists(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeAlreadyExists, orDefault(message, "Resource already exists")))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeConflict, orDefault(message, "Resource conflict")))
}

// InternalError sends a 500 response. The message is replaced in production.
func InternalError(c *gin.Context, message string) {
	if hideInternalErrors.Load() {
		message = internalErrorMessage
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, orDefault(message, internalErrorMessage)))
}
