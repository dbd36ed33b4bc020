package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/axonote/pipeline/pkg/services"
)

// abortWithError writes the error response and stops further handler processing.
func abortWithError(c *gin.Context, apiErr *apiError) {
	c.AbortWithStatusJSON(apiErr.Code, ErrorResponse{Error: apiErr.Message})
}

// apiError carries an HTTP status code alongside a client-facing message.
type apiError struct {
	Code    int
	Message string
}

func (e *apiError) Error() string { return e.Message }

func newAPIError(code int, msg string) *apiError {
	return &apiError{Code: code, Message: msg}
}

// mapServiceError maps service-layer errors to HTTP error responses.
func mapServiceError(err error) *apiError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return newAPIError(http.StatusBadRequest, validErr.Error())
	}
	if errors.Is(err, services.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "resource not found")
	}
	if errors.Is(err, services.ErrNotCancellable) {
		return newAPIError(http.StatusConflict, "session is not in a cancellable state")
	}
	if errors.Is(err, services.ErrAlreadyExists) {
		return newAPIError(http.StatusConflict, "resource already exists")
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return newAPIError(http.StatusInternalServerError, "internal server error")
}
