package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"

	"mediagrab/internal/config"
)

func TestNewRegistersPlatforms(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DownloadsDir = filepath.Join(dir, "downloads")
	cfg.HistoryDB = filepath.Join(dir, "data", "history.db")

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	want := []string{"spotify", "tiktok", "youtube"}
	if got := a.Scheduler.Platforms(); !reflect.DeepEqual(got, want) {
		t.Errorf("Platforms() = %v, want %v", got, want)
	}
	if a.History == nil {
		t.Error("history repository not opened")
	}

	rec := httptest.NewRecorder()
	a.Server().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health: %d", rec.Code)
	}
}

func TestNewWithoutHistory(t *testing.T) {
	cfg := config.Default()
	cfg.DownloadsDir = t.TempDir()
	cfg.HistoryDB = ""

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.History != nil {
		t.Error("history should be disabled")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Close is safe to repeat.
	a.Scheduler.Stop()
}
