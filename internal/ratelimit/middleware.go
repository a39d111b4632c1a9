package ratelimit

import (
	"net/http"
	"strconv"

	"mediagrab/internal/platform"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Middleware gates every request through l, keyed by client IP. Paths in
// exempt are never counted.
func Middleware(l *Limiter, exempt ...string) echo.MiddlewareFunc {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return skip[c.Request().URL.Path]
		},
		Store: l,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "unable to identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			denied := &platform.RateLimitedError{RetryAfter: l.RetryAfter(identifier)}
			c.Response().Header().Set("Retry-After", strconv.Itoa(denied.RetryAfterSeconds()))
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error":       denied.Error(),
				"retry_after": denied.RetryAfterSeconds(),
			})
		},
	})
}
