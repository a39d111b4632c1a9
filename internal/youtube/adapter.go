package youtube

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"mediagrab/internal/media"
	"mediagrab/internal/platform"
	"mediagrab/internal/ytdlp"
)

// Name is the platform key.
const Name = "youtube"

// Adapter downloads YouTube media. yt-dlp is the primary path; when it is not
// installed, audio is streamed through the native client and transcoded.
type Adapter struct {
	client    *Client
	runner    *ytdlp.Runner
	converter *media.Converter
	outputDir string
}

// NewAdapter creates the YouTube adapter.
func NewAdapter(client *Client, runner *ytdlp.Runner, converter *media.Converter, outputDir string) *Adapter {
	return &Adapter{client: client, runner: runner, converter: converter, outputDir: outputDir}
}

// Name implements platform.Adapter.
func (a *Adapter) Name() string { return Name }

// FetchMetadata tries oEmbed, then the native client, then yt-dlp. A
// free-text reference is resolved through a search.
func (a *Adapter) FetchMetadata(ctx context.Context, reference string) (*platform.Metadata, error) {
	if !IsURL(reference) {
		return a.searchMetadata(ctx, reference)
	}

	if o, err := a.client.OEmbed(ctx, reference); err == nil && o.Title != "" {
		return &platform.Metadata{Title: o.Title, Author: o.AuthorName, Thumbnail: o.ThumbnailURL}, nil
	}

	if info, err := a.client.GetVideo(ctx, reference); err == nil {
		return &platform.Metadata{
			Title:     info.Title,
			Author:    info.Author,
			Thumbnail: info.Thumbnail,
			Duration:  info.Duration,
		}, nil
	}

	if a.runner == nil || !a.runner.Available() {
		return nil, platform.Failure(Name, "could not fetch video info")
	}
	meta, err := a.runner.Probe(ctx, reference)
	if err != nil {
		return nil, platform.Failure(Name, "could not fetch video info: %v", err)
	}
	return meta, nil
}

func (a *Adapter) searchMetadata(ctx context.Context, query string) (*platform.Metadata, error) {
	if a.runner == nil || !a.runner.Available() {
		return nil, platform.Failure(Name, "search requires yt-dlp")
	}
	results, err := a.runner.Search(ctx, query, 1)
	if err != nil {
		return nil, platform.Failure(Name, "search failed: %v", err)
	}
	if len(results) == 0 {
		return nil, platform.Failure(Name, "no results for %q", query)
	}
	return &platform.Metadata{
		Title:    results[0].Title,
		Author:   results[0].Uploader,
		Duration: results[0].Duration,
	}, nil
}

// FetchArtifact downloads reference in the requested format.
func (a *Adapter) FetchArtifact(ctx context.Context, reference string, opts platform.Options) (*platform.Artifact, error) {
	if a.runner != nil && a.runner.Available() {
		return a.fetchWithYtDlp(ctx, reference, opts)
	}
	if !IsURL(reference) {
		return nil, platform.Failure(Name, "yt-dlp is required to resolve search queries")
	}
	if opts.Format == "mp4" {
		return nil, platform.Failure(Name, "yt-dlp is required for video downloads")
	}
	log.Printf("yt-dlp not found, streaming %s natively", reference)
	return a.fetchNative(ctx, reference, opts)
}

func (a *Adapter) fetchWithYtDlp(ctx context.Context, reference string, opts platform.Options) (*platform.Artifact, error) {
	target := reference
	if !IsURL(reference) {
		target = "ytsearch1:" + reference
	}

	dl, err := a.runner.Download(ctx, ytdlp.DownloadRequest{
		Target:   target,
		Format:   opts.Format,
		Quality:  opts.Quality,
		Progress: opts.Progress,
	})
	if err != nil {
		return nil, wrap(err)
	}
	return &platform.Artifact{FilePath: dl.Path, Filename: dl.Filename, Title: dl.Title}, nil
}

func (a *Adapter) fetchNative(ctx context.Context, reference string, opts platform.Options) (*platform.Artifact, error) {
	artifact, err := a.client.DownloadAudio(ctx, reference, a.outputDir, func(current, total int64) {
		opts.Report(platform.ScaleProgress(current, total, 10, 80))
	})
	if err != nil {
		return nil, wrap(err)
	}

	if opts.Format == "m4a" && strings.HasSuffix(artifact.Filename, ".m4a") {
		return artifact, nil
	}
	if a.converter == nil || !a.converter.Available() {
		return nil, platform.Failure(Name, "ffmpeg is required to produce %s", opts.Format)
	}

	opts.Report(85)
	converted, err := a.converter.Convert(ctx, artifact.FilePath, opts.Format, opts.Quality)
	if err != nil {
		return nil, wrap(err)
	}
	artifact.FilePath = converted
	artifact.Filename = filepath.Base(converted)
	return artifact, nil
}

func wrap(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return platform.Failure(Name, "YouTube download failed: %v", err)
}

var _ platform.Adapter = (*Adapter)(nil)
