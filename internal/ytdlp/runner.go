// Package ytdlp drives the yt-dlp binary through go-ytdlp.
package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mediagrab/internal/models"
	"mediagrab/internal/platform"

	"github.com/lrstanley/go-ytdlp"
)

const videoFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// Runner runs yt-dlp downloads into a single output directory.
type Runner struct {
	binary    string
	outputDir string
}

// NewRunner creates a runner. An empty binary uses yt-dlp from PATH.
func NewRunner(binary, outputDir string) *Runner {
	return &Runner{binary: binary, outputDir: outputDir}
}

// Available reports whether the yt-dlp binary can be found.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.executable())
	return err == nil
}

func (r *Runner) executable() string {
	if r.binary != "" {
		return r.binary
	}
	return "yt-dlp"
}

func (r *Runner) command() *ytdlp.Command {
	cmd := ytdlp.New()
	if r.binary != "" {
		cmd.SetExecutable(r.binary)
	}
	return cmd
}

// DownloadRequest describes one yt-dlp download.
type DownloadRequest struct {
	Target   string // URL or "ytsearch1:<query>"
	Stem     string // filename stem; empty uses the media title
	Format   string
	Quality  string
	Progress func(percent int)
}

// Download is a finished yt-dlp download.
type Download struct {
	Path     string
	Filename string
	Title    string
}

// Download fetches req.Target and returns the produced file.
func (r *Runner) Download(ctx context.Context, req DownloadRequest) (*Download, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	token := platform.UniqueSuffix(time.Now())
	stem := "%(title).80s"
	if req.Stem != "" {
		stem = platform.SafeName(req.Stem)
	}

	cmd := r.command().
		Output(filepath.Join(r.outputDir, stem+"_"+token+".%(ext)s")).
		RestrictFilenames().
		NoPlaylist().
		NoOverwrites().
		PrintJSON()

	if models.IsVideoFormat(req.Format) {
		cmd.Format(videoFormat).MergeOutputFormat("mp4")
	} else {
		cmd.ExtractAudio().
			AudioFormat(AudioCodec(req.Format)).
			AudioQuality(AudioQuality(req.Quality))
	}

	if req.Progress != nil {
		cmd.ProgressFunc(500*time.Millisecond, func(update ytdlp.ProgressUpdate) {
			if update.TotalBytes > 0 {
				req.Progress(platform.ScaleProgress(int64(update.DownloadedBytes), int64(update.TotalBytes), 10, 90))
			}
		})
	}

	result, err := cmd.Run(ctx, req.Target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp failed: %s", diagnostic(result, err))
	}

	path, err := FindOutput(r.outputDir, token, Extension(req.Format))
	if err != nil {
		return nil, err
	}

	title := ""
	if info, err := result.GetExtractedInfo(); err == nil && len(info) > 0 && info[0].Title != nil {
		title = *info[0].Title
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), "_"+token+filepath.Ext(path))
	}

	return &Download{Path: path, Filename: filepath.Base(path), Title: title}, nil
}

// SearchResult is one entry of a ytsearch query.
type SearchResult struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Uploader string        `json:"uploader"`
	URL      string        `json:"url"`
	Duration time.Duration `json:"-"`
}

// Search runs "ytsearchN:<query>" without downloading.
func (r *Runner) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit < 1 {
		limit = 1
	}

	result, err := r.command().
		FlatPlaylist().
		DumpJSON().
		SkipDownload().
		Run(ctx, fmt.Sprintf("ytsearch%d:%s", limit, query))
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search failed: %s", diagnostic(result, err))
	}

	entries, err := parseEntries(result.Stdout)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, SearchResult{
			ID:       e.ID,
			Title:    e.Title,
			Uploader: e.author(),
			URL:      e.link(),
			Duration: e.duration(),
		})
	}
	return results, nil
}

// Probe reads metadata for a single URL without downloading.
func (r *Runner) Probe(ctx context.Context, url string) (*platform.Metadata, error) {
	result, err := r.command().
		DumpJSON().
		SkipDownload().
		NoPlaylist().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe failed: %s", diagnostic(result, err))
	}

	entries, err := parseEntries(result.Stdout)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("yt-dlp returned no metadata")
	}

	e := entries[0]
	return &platform.Metadata{
		Title:     e.Title,
		Author:    e.author(),
		Thumbnail: e.Thumbnail,
		Duration:  e.duration(),
	}, nil
}

type entry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Thumbnail  string  `json:"thumbnail"`
	Duration   float64 `json:"duration"`
}

func (e entry) author() string {
	if e.Uploader != "" {
		return e.Uploader
	}
	return e.Channel
}

func (e entry) link() string {
	switch {
	case e.WebpageURL != "":
		return e.WebpageURL
	case strings.HasPrefix(e.URL, "http"):
		return e.URL
	case e.ID != "":
		return "https://www.youtube.com/watch?v=" + e.ID
	}
	return e.URL
}

func (e entry) duration() time.Duration {
	return time.Duration(e.Duration * float64(time.Second))
}

// parseEntries decodes yt-dlp's one-JSON-object-per-line output.
func parseEntries(stdout string) ([]entry, error) {
	var entries []entry
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// FindOutput locates the file yt-dlp produced for token in dir, preferring
// the expected extension and ignoring partial and sidecar files.
func FindOutput(dir, token, ext string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+token+".*"))
	if err != nil {
		return "", fmt.Errorf("failed to search output: %w", err)
	}

	var candidates []string
	for _, m := range matches {
		switch strings.ToLower(filepath.Ext(m)) {
		case ".part", ".ytdl", ".temp", ".tmp", ".jpg", ".webp", ".png", ".json":
			continue
		}
		if ext != "" && strings.EqualFold(filepath.Ext(m), "."+ext) {
			return m, nil
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("downloaded file not found")
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

// AudioQuality maps an API quality onto yt-dlp's --audio-quality.
func AudioQuality(quality string) string {
	switch quality {
	case "128k":
		return "128K"
	case "192k":
		return "192K"
	case "320k":
		return "320K"
	case "best":
		return "0"
	}
	return "192K"
}

// AudioCodec maps an API format onto yt-dlp's --audio-format.
func AudioCodec(format string) string {
	switch format {
	case "m4a", "flac", "wav", "mp3":
		return format
	case "ogg":
		return "vorbis"
	}
	return "mp3"
}

// Extension is the file extension expected for format.
func Extension(format string) string {
	if format == "" {
		return "mp3"
	}
	return format
}

func diagnostic(result *ytdlp.Result, err error) string {
	if result != nil {
		if stderr := strings.TrimSpace(result.Stderr); stderr != "" {
			lines := strings.Split(stderr, "\n")
			for i := len(lines) - 1; i >= 0; i-- {
				if strings.Contains(lines[i], "ERROR") {
					return strings.TrimSpace(lines[i])
				}
			}
			return strings.TrimSpace(lines[len(lines)-1])
		}
	}
	return err.Error()
}
