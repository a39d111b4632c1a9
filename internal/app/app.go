// Package app assembles the service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"mediagrab/internal/agent"
	"mediagrab/internal/artifacts"
	"mediagrab/internal/config"
	"mediagrab/internal/media"
	"mediagrab/internal/ratelimit"
	"mediagrab/internal/server"
	"mediagrab/internal/spotify"
	"mediagrab/internal/storage"
	"mediagrab/internal/tasks"
	"mediagrab/internal/tiktok"
	"mediagrab/internal/webfetch"
	"mediagrab/internal/worker"
	"mediagrab/internal/youtube"
	"mediagrab/internal/ytdlp"

	"github.com/labstack/echo/v4"
)

// App owns every long-lived component.
type App struct {
	Config    *config.Config
	Registry  *tasks.Registry
	Locator   *artifacts.Locator
	Scheduler *worker.Scheduler
	Limiter   *ratelimit.Limiter
	Agent     *agent.Agent
	History   *storage.HistoryRepository
	Runner    *ytdlp.Runner
	Converter *media.Converter

	db    *storage.DB
	pages *webfetch.Client
}

// New builds the components and registers the platform adapters.
func New(cfg *config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.DownloadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create downloads directory: %w", err)
	}

	a := &App{
		Config:    cfg,
		Registry:  tasks.NewRegistry(),
		Locator:   artifacts.NewLocator(),
		Limiter:   ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow),
		Runner:    ytdlp.NewRunner(cfg.YtDlpPath, cfg.DownloadsDir),
		Converter: media.NewConverter(cfg.FFmpegPath),
	}
	a.Scheduler = worker.NewScheduler(a.Registry, a.Locator, cfg.MaxConcurrentTasks)

	if cfg.HistoryDB != "" {
		db, err := storage.Open(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.History = storage.NewHistoryRepository(db)
		a.Scheduler.SetRecorder(a.History)
	}

	var pages tiktok.PageFetcher
	if cfg.BrowserPreview {
		a.pages = webfetch.NewClient(nil)
		pages = a.pages
	}

	a.Scheduler.Register(youtube.NewAdapter(youtube.NewClient(), a.Runner, a.Converter, cfg.DownloadsDir), cfg.YouTubeTimeout)
	a.Scheduler.Register(spotify.NewAdapter(a.Runner), cfg.SpotifyTimeout)
	a.Scheduler.Register(tiktok.NewAdapter(tiktok.NewClient(cfg.TikwmRPS), a.Converter, pages, cfg.DownloadsDir), cfg.TikTokTimeout)

	a.Agent = agent.New(cfg.GroqAPIKey, cfg.GroqModel, a.Runner)

	if !a.Runner.Available() {
		log.Println("Warning: yt-dlp not found, YouTube falls back to native streams and Spotify downloads will fail")
	}
	if !a.Converter.Available() {
		log.Println("Warning: ffmpeg not found, format conversion is disabled")
	}
	if cfg.GroqAPIKey == "" {
		log.Println("GROQ_API_KEY not set, agent chat handles links and plain searches only")
	}

	return a, nil
}

// Server returns the HTTP handler for this app.
func (a *App) Server() *echo.Echo {
	return server.New(server.Deps{
		Scheduler:      a.Scheduler,
		Registry:       a.Registry,
		Locator:        a.Locator,
		Limiter:        a.Limiter,
		Agent:          a.Agent,
		History:        a.History,
		CORSOrigins:    a.Config.CORSOrigins,
		PreviewTimeout: a.Config.PreviewTimeout,
		AccessLog:      true,
	})
}

// Serve listens on the configured port until ctx ends, then shuts the
// server down and drains the scheduler.
func (a *App) Serve(ctx context.Context) error {
	e := a.Server()
	addr := fmt.Sprintf(":%s", a.Config.Port)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s (downloads: %s)", addr, a.Config.DownloadsDir)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Join(err, a.Close())
		}
		return a.Close()
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	return a.Close()
}

// Close stops the scheduler, then releases the database and the browser.
func (a *App) Close() error {
	a.Scheduler.Stop()

	var errs []error
	if a.pages != nil {
		errs = append(errs, a.pages.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
