// Package server wires the HTTP routes onto echo.
package server

import (
	"time"

	"mediagrab/internal/agent"
	"mediagrab/internal/artifacts"
	"mediagrab/internal/handlers"
	"mediagrab/internal/ratelimit"
	"mediagrab/internal/storage"
	"mediagrab/internal/tasks"
	"mediagrab/internal/worker"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Deps are the components the routes are served from. History may be nil.
type Deps struct {
	Scheduler      *worker.Scheduler
	Registry       *tasks.Registry
	Locator        *artifacts.Locator
	Limiter        *ratelimit.Limiter
	Agent          *agent.Agent
	History        *storage.HistoryRepository
	CORSOrigins    []string
	PreviewTimeout time.Duration
	AccessLog      bool
}

// New builds the echo instance with middleware and routes.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	if d.AccessLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		ExposeHeaders: []string{
			echo.HeaderContentDisposition,
			echo.HeaderRetryAfter,
		},
	}))
	e.Use(ratelimit.Middleware(d.Limiter, "/health"))

	taskHandler := handlers.NewTaskHandler(d.Scheduler, d.Registry)
	artifactHandler := handlers.NewArtifactHandler(d.Locator)
	previewHandler := handlers.NewPreviewHandler(d.Scheduler, d.PreviewTimeout)
	agentHandler := handlers.NewAgentHandler(d.Agent)
	historyHandler := handlers.NewHistoryHandler(d.History, d.Registry)

	e.GET("/", handlers.Home)
	e.GET("/health", handlers.Health)

	api := e.Group("/api")
	api.POST("/tasks", taskHandler.Create)
	api.GET("/tasks/:id", taskHandler.Get)
	api.POST("/download/:platform", taskHandler.CreateForPlatform)
	api.GET("/artifacts/:id", artifactHandler.Download)
	api.GET("/files/:id", artifactHandler.Download)
	api.GET("/formats", handlers.Formats)
	api.POST("/preview", previewHandler.Preview)
	api.POST("/agent/chat", agentHandler.Chat)
	api.GET("/history", historyHandler.List)
	api.GET("/stats", taskHandler.Stats)

	return e
}
