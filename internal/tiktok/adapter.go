package tiktok

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediagrab/internal/media"
	"mediagrab/internal/models"
	"mediagrab/internal/platform"
)

// Name is the platform key.
const Name = "tiktok"

// PageFetcher scrapes metadata from a rendered page. Used as the last preview
// fallback when both oEmbed and tikwm fail.
type PageFetcher interface {
	Metadata(ctx context.Context, pageURL string) (*platform.Metadata, error)
}

// Adapter implements platform.Adapter for TikTok.
type Adapter struct {
	client    *Client
	converter *media.Converter
	pages     PageFetcher
	outputDir string
}

// NewAdapter creates the TikTok adapter. pages may be nil.
func NewAdapter(client *Client, converter *media.Converter, pages PageFetcher, outputDir string) *Adapter {
	return &Adapter{client: client, converter: converter, pages: pages, outputDir: outputDir}
}

// Name implements platform.Adapter.
func (a *Adapter) Name() string { return Name }

// FetchMetadata tries oEmbed, then tikwm, then the page fetcher.
func (a *Adapter) FetchMetadata(ctx context.Context, reference string) (*platform.Metadata, error) {
	if !IsURL(reference) {
		return nil, platform.Failure(Name, "invalid TikTok URL")
	}

	if o, err := a.client.OEmbed(ctx, reference); err == nil && o.Title != "" {
		return &platform.Metadata{Title: o.Title, Author: o.AuthorName, Thumbnail: o.ThumbnailURL}, nil
	}

	v, err := a.client.Lookup(ctx, reference)
	if err == nil {
		return &platform.Metadata{Title: v.Title, Author: v.Author, Thumbnail: v.Cover, Duration: v.Duration}, nil
	}

	if a.pages != nil {
		if meta, perr := a.pages.Metadata(ctx, reference); perr == nil {
			return meta, nil
		}
	}
	return nil, platform.Failure(Name, "could not fetch video info: %v", err)
}

// FetchArtifact downloads the video (mp4) or its sound, transcoding when the
// requested audio format is not what tikwm serves.
func (a *Adapter) FetchArtifact(ctx context.Context, reference string, opts platform.Options) (*platform.Artifact, error) {
	if !IsURL(reference) {
		return nil, platform.Failure(Name, "invalid TikTok URL")
	}

	v, err := a.client.Lookup(ctx, reference)
	if err != nil {
		return nil, wrap(err)
	}
	opts.Report(20)

	source, ext := v.MusicURL, "mp3"
	if models.IsVideoFormat(opts.Format) || source == "" {
		source, ext = v.PlayURL, "mp4"
	}
	if source == "" {
		return nil, platform.Failure(Name, "no downloadable media found")
	}

	path, err := a.stream(ctx, source, Filename(v.Title, ext, time.Now()), opts)
	if err != nil {
		return nil, wrap(err)
	}

	want := opts.Format
	if want == "" {
		want = models.DefaultFormat
	}
	if want != ext {
		if a.converter == nil || !a.converter.Available() {
			os.Remove(path)
			return nil, platform.Failure(Name, "ffmpeg is required to produce %s", want)
		}
		opts.Report(90)
		path, err = a.converter.Convert(ctx, path, want, opts.Quality)
		if err != nil {
			return nil, wrap(err)
		}
	}

	return &platform.Artifact{
		FilePath: path,
		Filename: filepath.Base(path),
		Title:    v.Title,
		Author:   v.Author,
		Duration: v.Duration,
	}, nil
}

func (a *Adapter) stream(ctx context.Context, source, filename string, opts platform.Options) (string, error) {
	body, size, err := a.client.Open(ctx, source)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := os.MkdirAll(a.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(a.outputDir, filename)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	_, err = platform.CopyWithProgress(ctx, file, body, size, func(current, total int64) {
		opts.Report(platform.ScaleProgress(current, total, 20, 85))
	})
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// Filename builds "tiktok_<title>_<timestamp>_<token>.<ext>".
func Filename(title, ext string, now time.Time) string {
	stem := platform.Truncate(platform.SafeName(title), 50)
	return "tiktok_" + stem + "_" + platform.UniqueSuffix(now) + "." + ext
}

func wrap(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return platform.Failure(Name, "TikTok download failed: %v", err)
}

var _ platform.Adapter = (*Adapter)(nil)
