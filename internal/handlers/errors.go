package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"mediagrab/internal/platform"
	"mediagrab/internal/worker"

	"github.com/labstack/echo/v4"
)

// writeError maps a synchronous error to its HTTP status.
func writeError(c echo.Context, err error) error {
	var invalid *platform.ValidationError
	var limited *platform.RateLimitedError

	switch {
	case errors.As(err, &invalid):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": invalid.Error()})
	case errors.As(err, &limited):
		c.Response().Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds()))
		return c.JSON(http.StatusTooManyRequests, map[string]any{
			"error":       limited.Error(),
			"retry_after": limited.RetryAfterSeconds(),
		})
	case errors.Is(err, platform.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, worker.ErrStopped):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "server is shutting down"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
