package errors

import (
	stderrors "errors"
	"net/http"

	"chefbot_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeBadRequest          ErrorType = "BAD_REQUEST"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden           ErrorType = "FORBIDDEN"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeTooManyRequests     ErrorType = "TOO_MANY_REQUESTS"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnavailable         ErrorType = "SERVICE_UNAVAILABLE"
)

// CustomError carries the HTTP status and a client-safe message. Internal is logged,
// never serialized.
type CustomError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Internal   error
}

func (e *CustomError) Error() string {
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Internal
}

func newError(errType ErrorType, message string, statusCode int, internal error) *CustomError {
	return &CustomError{
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

func New400Error(message string) *CustomError {
	return newError(ErrorTypeBadRequest, message, http.StatusBadRequest, nil)
}

func New401Error() *CustomError {
	return newError(ErrorTypeUnauthorized, "Unauthorized access", http.StatusUnauthorized, nil)
}

func New403Error() *CustomError {
	return newError(ErrorTypeForbidden, "Access forbidden", http.StatusForbidden, nil)
}

func New404Error(message string) *CustomError {
	return newError(ErrorTypeNotFound, message, http.StatusNotFound, nil)
}

// New429Error reports an exhausted quota.
func New429Error(message string) *CustomError {
	return newError(ErrorTypeTooManyRequests, message, http.StatusTooManyRequests, nil)
}

func New500Error(internal error) *CustomError {
	return newError(ErrorTypeInternalServerError, "An unexpected error occurred", http.StatusInternalServerError, internal)
}

func New503Error(internal error) *CustomError {
	return newError(ErrorTypeUnavailable, "The recipe service is temporarily unavailable", http.StatusServiceUnavailable, internal)
}

// FromService maps the service layer's sentinel errors onto HTTP errors.
func FromService(err error) *CustomError {
	var customErr *CustomError
	switch {
	case stderrors.As(err, &customErr):
		return customErr
	case stderrors.Is(err, services.ErrUserNotFound):
		return New404Error("User not found")
	case stderrors.Is(err, services.ErrDishNotFound):
		return New404Error("Dish not found")
	case stderrors.Is(err, services.ErrSessionExpired):
		return New400Error("Session expired")
	case stderrors.Is(err, services.ErrBackendFailure):
		return New503Error(err)
	default:
		return New500Error(err)
	}
}

// HandleError handles the custom error and sends an appropriate JSON response
func HandleError(c *gin.Context, err error) {
	customErr := FromService(err)

	if customErr.StatusCode >= http.StatusInternalServerError {
		log.Error().
			Err(customErr.Internal).
			Str("url", c.Request.URL.String()).
			Int("status", customErr.StatusCode).
			Msg("Internal Server Error")
	}

	c.AbortWithStatusJSON(customErr.StatusCode, gin.H{
		"error": gin.H{
			"type":    customErr.Type,
			"message": customErr.Message,
		},
	})
}

// LogAndReturn500 logs an internal error and returns a 500 error
func LogAndReturn500(internal error) *CustomError {
	log.Error().Err(internal).Msg("Internal Server Error")
	return New500Error(internal)
}
