package handlers

import (
	"net/http"
	"time"

	"mediagrab/internal/models"
	"mediagrab/internal/version"
	"mediagrab/web/components"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Home renders the landing page.
func Home(c echo.Context) error {
	return render(c, components.Home(version.Version, models.Formats))
}

// Health is never rate limited.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version.Version,
	})
}

func render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return component.Render(c.Request().Context(), c.Response())
}
