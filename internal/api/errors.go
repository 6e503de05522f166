package api

import (
	"errors"
	"net/http"

	"github.com/prismworks/prism-api/internal/service"
	"github.com/prismworks/prism-api/internal/service/auth"
	"github.com/prismworks/prism-api/internal/store"
	"github.com/prismworks/prism-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, task.ErrForbidden),
		errors.Is(err, service.ErrImageAccessDenied):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, task.ErrInvalidRequest),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Saturation: the worker pool's queue is full
	case errors.Is(err, task.ErrQueueFull):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, task.ErrForbidden),
		errors.Is(err, service.ErrImageAccessDenied):
		return "You do not have access to this resource"

	case errors.Is(err, task.ErrTaskNotFound):
		return "Generation task not found"

	case errors.Is(err, store.ErrImageNotFound):
		return "Image not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, task.ErrInvalidRequest):
		return "Invalid generation request"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, task.ErrQueueFull):
		return "Service is at capacity, try again later"

	default:
		return "An unexpected error occurred"
	}
}
