package handlers

import (
	"net/http"

	"mediagrab/internal/models"
	"mediagrab/internal/platform"
	"mediagrab/internal/tasks"
	"mediagrab/internal/worker"

	"github.com/labstack/echo/v4"
)

// TaskHandler はダウンロードタスクAPIのハンドラー
type TaskHandler struct {
	scheduler *worker.Scheduler
	registry  *tasks.Registry
}

// NewTaskHandler は新しいTaskHandlerを作成
func NewTaskHandler(scheduler *worker.Scheduler, registry *tasks.Registry) *TaskHandler {
	return &TaskHandler{scheduler: scheduler, registry: registry}
}

type createTaskRequest struct {
	Platform  string `json:"platform"`
	Reference string `json:"reference"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	Quality   string `json:"quality"`
}

type createTaskResponse struct {
	TaskID  string            `json:"task_id"`
	Status  models.TaskStatus `json:"status"`
	Message string            `json:"message"`
}

// Create はタスクを登録して 202 を返す
func (h *TaskHandler) Create(c echo.Context) error {
	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, platform.Invalid("", "invalid request body"))
	}
	return h.submit(c, req.Platform, req)
}

// CreateForPlatform はパスで指定されたプラットフォームにタスクを登録
func (h *TaskHandler) CreateForPlatform(c echo.Context) error {
	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, platform.Invalid("", "invalid request body"))
	}
	return h.submit(c, c.Param("platform"), req)
}

func (h *TaskHandler) submit(c echo.Context, platformName string, req createTaskRequest) error {
	if platformName == "" {
		return writeError(c, platform.Invalid("platform", "must not be empty"))
	}
	reference := req.Reference
	if reference == "" {
		reference = req.URL
	}

	id, err := h.scheduler.Submit(platformName, models.TaskRequest{
		Reference: reference,
		Format:    req.Format,
		Quality:   req.Quality,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusAccepted, createTaskResponse{
		TaskID:  id,
		Status:  models.TaskStatusPending,
		Message: "Download started",
	})
}

// Get はタスクの状態を返す
func (h *TaskHandler) Get(c echo.Context) error {
	task, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// Stats はスケジューラの統計を返す
func (h *TaskHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.Stats())
}
