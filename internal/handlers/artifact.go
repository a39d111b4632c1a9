package handlers

import (
	"mediagrab/internal/artifacts"

	"github.com/labstack/echo/v4"
)

// ArtifactHandler serves finished downloads.
type ArtifactHandler struct {
	locator *artifacts.Locator
}

func NewArtifactHandler(locator *artifacts.Locator) *ArtifactHandler {
	return &ArtifactHandler{locator: locator}
}

// Download streams the artifact as an attachment.
func (h *ArtifactHandler) Download(c echo.Context) error {
	path, filename, err := h.locator.Resolve(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Attachment(path, filename)
}
