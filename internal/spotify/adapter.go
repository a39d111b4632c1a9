// Package spotify resolves Spotify tracks to a YouTube search and downloads
// the best match.
package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"mediagrab/internal/platform"
	"mediagrab/internal/ytdlp"
)

// Name is the platform key.
const Name = "spotify"

const defaultOEmbedEndpoint = "https://open.spotify.com/oembed"

var (
	trackPattern = regexp.MustCompile(`open\.spotify\.com/(?:intl-[a-z]+/)?track/([a-zA-Z0-9]+)`)
	urlPattern   = regexp.MustCompile(`(?i)(?:https?://)?open\.spotify\.com/(?:intl-[a-z]+/)?(?:track|album|playlist)/[a-zA-Z0-9]+`)
)

// TrackID extracts the track id from a Spotify URL.
func TrackID(reference string) (string, bool) {
	m := trackPattern.FindStringSubmatch(reference)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsURL reports whether s contains a Spotify link.
func IsURL(s string) bool {
	return urlPattern.MatchString(s)
}

// FindURLs returns every Spotify track, album or playlist URL in text.
func FindURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// ParseTitle splits an oEmbed title of the form "Song by Artist".
func ParseTitle(title string) (song, artist string) {
	title = strings.TrimSpace(title)
	if i := strings.LastIndex(title, " by "); i > 0 {
		return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+4:])
	}
	return title, ""
}

// SearchQuery is the YouTube query used to find a track.
func SearchQuery(song, artist string) string {
	if artist == "" {
		return song
	}
	return song + " - " + artist
}

// Downloader is the subset of ytdlp.Runner the adapter needs.
type Downloader interface {
	Download(ctx context.Context, req ytdlp.DownloadRequest) (*ytdlp.Download, error)
}

// Adapter implements platform.Adapter for Spotify tracks.
type Adapter struct {
	http           *http.Client
	oembedEndpoint string
	downloader     Downloader
}

// NewAdapter creates the Spotify adapter.
func NewAdapter(downloader Downloader) *Adapter {
	return &Adapter{
		http:           &http.Client{Timeout: 10 * time.Second},
		oembedEndpoint: defaultOEmbedEndpoint,
		downloader:     downloader,
	}
}

// Name implements platform.Adapter.
func (a *Adapter) Name() string { return Name }

// FetchMetadata reads the track's oEmbed card.
func (a *Adapter) FetchMetadata(ctx context.Context, reference string) (*platform.Metadata, error) {
	id, ok := TrackID(reference)
	if !ok {
		return nil, platform.Failure(Name, "invalid Spotify track URL, only track links are supported")
	}

	trackURL := "https://open.spotify.com/track/" + id
	o, err := platform.FetchOEmbed(ctx, a.http, a.oembedEndpoint+"?url="+url.QueryEscape(trackURL))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, platform.Failure(Name, "could not fetch track info: %v", err)
	}

	song, artist := ParseTitle(o.Title)
	if artist == "" {
		artist = o.AuthorName
	}
	return &platform.Metadata{Title: song, Author: artist, Thumbnail: o.ThumbnailURL}, nil
}

// FetchArtifact looks the track up and downloads the first YouTube match.
func (a *Adapter) FetchArtifact(ctx context.Context, reference string, opts platform.Options) (*platform.Artifact, error) {
	meta, err := a.FetchMetadata(ctx, reference)
	if err != nil {
		return nil, err
	}
	opts.Report(20)

	query := SearchQuery(meta.Title, meta.Author)
	dl, err := a.downloader.Download(ctx, ytdlp.DownloadRequest{
		Target:  "ytsearch1:" + query,
		Stem:    query,
		Format:  opts.Format,
		Quality: opts.Quality,
		Progress: func(percent int) {
			// search already consumed the first part of the bar
			if percent > 20 {
				opts.Report(percent)
			}
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, platform.Failure(Name, "Spotify download failed: %v", err)
	}

	return &platform.Artifact{
		FilePath: dl.Path,
		Filename: dl.Filename,
		Title:    meta.Title,
		Author:   meta.Author,
	}, nil
}

var _ platform.Adapter = (*Adapter)(nil)
