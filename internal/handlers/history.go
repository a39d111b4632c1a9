package handlers

import (
	"net/http"
	"strconv"

	"mediagrab/internal/storage"
	"mediagrab/internal/tasks"

	"github.com/labstack/echo/v4"
)

// HistoryHandler は履歴APIのハンドラー
// repo が nil の場合はメモリ上のタスクを返す
type HistoryHandler struct {
	repo     *storage.HistoryRepository
	registry *tasks.Registry
}

func NewHistoryHandler(repo *storage.HistoryRepository, registry *tasks.Registry) *HistoryHandler {
	return &HistoryHandler{repo: repo, registry: registry}
}

// List は最近のダウンロードを返す
func (h *HistoryHandler) List(c echo.Context) error {
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	if h.repo == nil {
		return c.JSON(http.StatusOK, map[string]any{
			"source":  "memory",
			"history": h.registry.List(limit),
		})
	}

	entries, err := h.repo.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	if entries == nil {
		entries = []storage.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"source":  "database",
		"history": entries,
	})
}
