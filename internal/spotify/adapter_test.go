package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mediagrab/internal/platform"
	"mediagrab/internal/ytdlp"
)

type fakeDownloader struct {
	got ytdlp.DownloadRequest
	err error
}

func (f *fakeDownloader) Download(ctx context.Context, req ytdlp.DownloadRequest) (*ytdlp.Download, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	req.Progress(50)
	return &ytdlp.Download{Path: "/tmp/song.mp3", Filename: "song.mp3", Title: "video title"}, nil
}

func newOEmbedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Query().Get("url"), "/track/4uLU6hMCjMI75M1A2tKUQC") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTrackID(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", "4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC?si=abc", "4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/album/1ATL5GLyefJaxhQzSPVrLX", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		got, ok := TrackID(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("TrackID(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseTitle(t *testing.T) {
	tests := []struct {
		in, song, artist string
	}{
		{"Never Gonna Give You Up by Rick Astley", "Never Gonna Give You Up", "Rick Astley"},
		{"Stand by Me by Ben E. King", "Stand by Me", "Ben E. King"},
		{"Untitled", "Untitled", ""},
	}
	for _, tt := range tests {
		song, artist := ParseTitle(tt.in)
		if song != tt.song || artist != tt.artist {
			t.Errorf("ParseTitle(%q) = (%q, %q)", tt.in, song, artist)
		}
	}
	if q := SearchQuery("Song", "Artist"); q != "Song - Artist" {
		t.Errorf("SearchQuery = %q", q)
	}
}

func TestFindURLs(t *testing.T) {
	text := "try https://open.spotify.com/track/abc123 or open.spotify.com/playlist/xyz"
	if got := FindURLs(text); len(got) != 2 {
		t.Errorf("FindURLs = %v", got)
	}
}

func TestFetchArtifactSearchesYouTube(t *testing.T) {
	srv := newOEmbedServer(t, `{"title":"Never Gonna Give You Up by Rick Astley","thumbnail_url":"https://i.scdn.co/x"}`)
	dl := &fakeDownloader{}
	a := NewAdapter(dl)
	a.oembedEndpoint = srv.URL

	var progress []int
	artifact, err := a.FetchArtifact(context.Background(), "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", platform.Options{
		Format:   "mp3",
		Quality:  "320k",
		Progress: func(p int) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatalf("FetchArtifact: %v", err)
	}

	if dl.got.Target != "ytsearch1:Never Gonna Give You Up - Rick Astley" {
		t.Errorf("target = %q", dl.got.Target)
	}
	if dl.got.Quality != "320k" || dl.got.Format != "mp3" {
		t.Errorf("options not forwarded: %+v", dl.got)
	}
	if artifact.Title != "Never Gonna Give You Up" || artifact.Author != "Rick Astley" || artifact.Filename != "song.mp3" {
		t.Errorf("artifact = %+v", artifact)
	}
	if len(progress) != 2 || progress[0] != 20 || progress[1] != 50 {
		t.Errorf("progress = %v", progress)
	}
}

func TestFetchArtifactErrors(t *testing.T) {
	srv := newOEmbedServer(t, `{"title":"Song by Artist"}`)

	a := NewAdapter(&fakeDownloader{})
	a.oembedEndpoint = srv.URL
	_, err := a.FetchArtifact(context.Background(), "https://open.spotify.com/album/1ATL5GLyefJaxhQzSPVrLX", platform.Options{})
	if !errors.Is(err, platform.ErrAdapterFailure) {
		t.Errorf("album URL: expected adapter failure, got %v", err)
	}

	_, err = a.FetchArtifact(context.Background(), "https://open.spotify.com/track/unknownTrack", platform.Options{})
	if err == nil || !strings.Contains(err.Error(), "could not fetch track info") {
		t.Errorf("unknown track: got %v", err)
	}

	b := NewAdapter(&fakeDownloader{err: errors.New("ERROR: no results")})
	b.oembedEndpoint = srv.URL
	_, err = b.FetchArtifact(context.Background(), "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", platform.Options{})
	if !errors.Is(err, platform.ErrAdapterFailure) || !strings.Contains(err.Error(), "no results") {
		t.Errorf("download failure: got %v", err)
	}
}
