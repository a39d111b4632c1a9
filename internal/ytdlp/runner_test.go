package ytdlp

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestAudioQuality(t *testing.T) {
	tests := map[string]string{
		"128k": "128K",
		"192k": "192K",
		"320k": "320K",
		"best": "0",
		"":     "192K",
		"999k": "192K",
	}
	for in, want := range tests {
		if got := AudioQuality(in); got != want {
			t.Errorf("AudioQuality(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAudioCodec(t *testing.T) {
	tests := map[string]string{
		"mp3":  "mp3",
		"m4a":  "m4a",
		"flac": "flac",
		"wav":  "wav",
		"ogg":  "vorbis",
		"":     "mp3",
	}
	for in, want := range tests {
		if got := AudioCodec(in); got != want {
			t.Errorf("AudioCodec(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindOutput(t *testing.T) {
	dir := t.TempDir()
	token := "20240101_000000_abcd1234"
	for _, name := range []string{
		"Song_" + token + ".webm.part",
		"Song_" + token + ".jpg",
		"Song_" + token + ".mp3",
		"Other_20240101_000000_ffffffff.mp3",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := FindOutput(dir, token, "mp3")
	if err != nil {
		t.Fatalf("FindOutput: %v", err)
	}
	if filepath.Base(got) != "Song_"+token+".mp3" {
		t.Errorf("FindOutput = %s", got)
	}

	if _, err := FindOutput(dir, "missing", "mp3"); err == nil {
		t.Error("expected error for unknown token")
	}
}

func TestFindOutputFallsBackToAnyExtension(t *testing.T) {
	dir := t.TempDir()
	token := "tok"
	os.WriteFile(filepath.Join(dir, "clip_tok.mkv"), nil, 0644)

	got, err := FindOutput(dir, token, "mp4")
	if err != nil {
		t.Fatalf("FindOutput: %v", err)
	}
	if filepath.Base(got) != "clip_tok.mkv" {
		t.Errorf("FindOutput = %s", got)
	}
}

func TestParseEntries(t *testing.T) {
	stdout := `[youtube] searching
{"id":"abc","title":"First","uploader":"Chan","duration":61.5}
{"id":"def","title":"Second","channel":"Other","webpage_url":"https://www.youtube.com/watch?v=def"}
`
	entries, err := parseEntries(stdout)
	if err != nil {
		t.Fatalf("parseEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].link() != "https://www.youtube.com/watch?v=abc" || entries[0].duration() != 61500*time.Millisecond {
		t.Errorf("first entry %+v", entries[0])
	}
	if entries[1].author() != "Other" || entries[1].link() != "https://www.youtube.com/watch?v=def" {
		t.Errorf("second entry %+v", entries[1])
	}
}

func TestSearchIntegration(t *testing.T) {
	if _, err := exec.LookPath("yt-dlp"); err != nil {
		t.Skip("yt-dlp not installed")
	}
	if os.Getenv("MEDIAGRAB_NETWORK_TESTS") == "" {
		t.Skip("set MEDIAGRAB_NETWORK_TESTS=1 to run network tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r := NewRunner("", t.TempDir())
	results, err := r.Search(ctx, "never gonna give you up", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].URL == "" {
		t.Errorf("unexpected results %+v", results)
	}
}
