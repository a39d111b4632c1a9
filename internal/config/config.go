// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration
type Config struct {
	Port         string // HTTP listen port
	DownloadsDir string // Where adapters write artifacts
	Environment  string // development / production

	RateLimitRequests int           // Requests admitted per window and client
	RateLimitWindow   time.Duration // Sliding window width
	CORSOrigins       []string      // Allowed origins; ["*"] allows any

	MaxConcurrentTasks int           // Tasks inside an adapter at once
	YouTubeTimeout     time.Duration // Hard bound per YouTube download
	SpotifyTimeout     time.Duration // Hard bound per Spotify download
	TikTokTimeout      time.Duration // Hard bound per TikTok download
	PreviewTimeout     time.Duration // Bound for metadata lookups

	YtDlpPath  string // yt-dlp binary; empty means look up on PATH
	FFmpegPath string // ffmpeg binary; empty means look up on PATH

	GroqAPIKey string // Enables the LLM side of the agent
	GroqModel  string

	HistoryDB      string  // sqlite path; empty disables the history journal
	BrowserPreview bool    // Use a headless browser as last preview fallback
	TikwmRPS       float64 // Outbound request rate to the tikwm API
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Port:               "8000",
		DownloadsDir:       "./downloads",
		Environment:        "development",
		RateLimitRequests:  100,
		RateLimitWindow:    60 * time.Second,
		CORSOrigins:        []string{"*"},
		MaxConcurrentTasks: 4,
		YouTubeTimeout:     300 * time.Second,
		SpotifyTimeout:     120 * time.Second,
		TikTokTimeout:      120 * time.Second,
		PreviewTimeout:     10 * time.Second,
		GroqModel:          "llama-3.3-70b-versatile",
		HistoryDB:          "./data/history.db",
		TikwmRPS:           1,
	}
}

// Load reads .env (if present) and the process environment on top of Default
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	var errs []string

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	seconds := func(key string, dst *time.Duration) {
		var n int
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			integer(key, &n)
			*dst = time.Duration(n) * time.Second
		}
	}

	str("PORT", &cfg.Port)
	str("DOWNLOADS_DIR", &cfg.DownloadsDir)
	str("ENVIRONMENT", &cfg.Environment)
	integer("RATE_LIMIT_REQUESTS", &cfg.RateLimitRequests)
	seconds("RATE_LIMIT_WINDOW", &cfg.RateLimitWindow)
	integer("MAX_CONCURRENT_TASKS", &cfg.MaxConcurrentTasks)
	seconds("YOUTUBE_TIMEOUT", &cfg.YouTubeTimeout)
	seconds("SPOTIFY_TIMEOUT", &cfg.SpotifyTimeout)
	seconds("TIKTOK_TIMEOUT", &cfg.TikTokTimeout)
	seconds("PREVIEW_TIMEOUT", &cfg.PreviewTimeout)
	str("YTDLP_PATH", &cfg.YtDlpPath)
	str("FFMPEG_PATH", &cfg.FFmpegPath)
	str("GROQ_API_KEY", &cfg.GroqAPIKey)
	str("GROQ_MODEL", &cfg.GroqModel)
	str("HISTORY_DB", &cfg.HistoryDB)

	if v, ok := lookup("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = ParseOrigins(v)
	}
	if v, ok := lookup("BROWSER_PREVIEW"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("BROWSER_PREVIEW: %v", err))
		} else {
			cfg.BrowserPreview = b
		}
	}
	if v, ok := lookup("TIKWM_RPS"); ok && strings.TrimSpace(v) != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("TIKWM_RPS: %v", err))
		} else {
			cfg.TikwmRPS = f
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseOrigins splits a comma separated origin list. Empty or "*" means any.
func ParseOrigins(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" || v == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.DownloadsDir == "" {
		return fmt.Errorf("DOWNLOADS_DIR must not be empty")
	}
	if c.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimitRequests)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.MaxConcurrentTasks < 1 {
		return fmt.Errorf("MAX_CONCURRENT_TASKS must be positive, got %d", c.MaxConcurrentTasks)
	}
	for name, d := range map[string]time.Duration{
		"YOUTUBE_TIMEOUT": c.YouTubeTimeout,
		"SPOTIFY_TIMEOUT": c.SpotifyTimeout,
		"TIKTOK_TIMEOUT":  c.TikTokTimeout,
		"PREVIEW_TIMEOUT": c.PreviewTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.TikwmRPS <= 0 {
		return fmt.Errorf("TIKWM_RPS must be positive")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
