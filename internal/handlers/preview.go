package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"mediagrab/internal/models"
	"mediagrab/internal/platform"
	"mediagrab/internal/spotify"
	"mediagrab/internal/tiktok"
	"mediagrab/internal/worker"
	"mediagrab/internal/youtube"

	"github.com/labstack/echo/v4"
)

// PreviewHandler looks up metadata without downloading.
type PreviewHandler struct {
	scheduler *worker.Scheduler
	timeout   time.Duration
}

func NewPreviewHandler(scheduler *worker.Scheduler, timeout time.Duration) *PreviewHandler {
	return &PreviewHandler{scheduler: scheduler, timeout: timeout}
}

type previewRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

type previewResponse struct {
	Success   bool    `json:"success"`
	Platform  string  `json:"platform,omitempty"`
	Title     string  `json:"title,omitempty"`
	Artist    string  `json:"artist,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// DetectPlatform guesses the platform of a link.
func DetectPlatform(url string) string {
	switch {
	case spotify.IsURL(url):
		return spotify.Name
	case tiktok.IsURL(url):
		return tiktok.Name
	case youtube.IsURL(url):
		return youtube.Name
	}
	return ""
}

// Preview returns title, artist and thumbnail for a link.
// Lookup failures are reported in the body with success=false.
func (h *PreviewHandler) Preview(c echo.Context) error {
	var req previewRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, platform.Invalid("", "invalid request body"))
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return writeError(c, platform.Invalid("url", "must not be empty"))
	}

	name := strings.ToLower(strings.TrimSpace(req.Platform))
	if name == "" {
		name = DetectPlatform(req.URL)
	}
	adapter, ok := h.scheduler.Adapter(name)
	if !ok {
		return writeError(c, &platform.ValidationError{Field: "platform", Message: platform.ErrUnknownPlatform.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	meta, err := adapter.FetchMetadata(ctx, req.URL)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = platform.Timeout(name, h.timeout)
		}
		return c.JSON(http.StatusOK, previewResponse{
			Platform: name,
			Error:    platform.Truncate(err.Error(), platform.MaxErrorLength),
		})
	}

	return c.JSON(http.StatusOK, previewResponse{
		Success:   true,
		Platform:  name,
		Title:     meta.Title,
		Artist:    meta.Author,
		Thumbnail: meta.Thumbnail,
		Duration:  meta.Duration.Seconds(),
	})
}

// Formats はサポートしている出力形式を返す
func Formats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"formats": models.Formats})
}
