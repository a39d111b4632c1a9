package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mediagrab/internal/ytdlp"

	openai "github.com/sashabaranov/go-openai"
)

type fakeSearcher struct {
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]ytdlp.SearchResult, error) {
	f.queries = append(f.queries, query)
	if query == "nothing" {
		return nil, nil
	}
	return []ytdlp.SearchResult{{ID: "abc", Title: "Top hit: " + query, URL: "https://www.youtube.com/watch?v=abc"}}, nil
}

type fakeCompleter struct {
	reply string
	err   error
	got   openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.got = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

func TestDetectURLs(t *testing.T) {
	text := `get these: youtu.be/dQw4w9WgXcQ
https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC
https://www.tiktok.com/@a/video/123`

	got := DetectURLs(text)
	if len(got) != 3 {
		t.Fatalf("DetectURLs = %+v", got)
	}
	want := []string{"youtube", "spotify", "tiktok"}
	for i, in := range got {
		if in.Platform != want[i] {
			t.Errorf("intention %d platform = %s", i, in.Platform)
		}
		if !strings.HasPrefix(in.URL, "https://") {
			t.Errorf("intention %d URL = %s", i, in.URL)
		}
		if in.Format != "mp3" || in.Quality != "320k" {
			t.Errorf("intention %d defaults = %s/%s", i, in.Format, in.Quality)
		}
	}
}

func TestChatWithLinksSkipsLLM(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("must not be called")}
	a := NewWithCompleter(llm, "model", nil)

	resp, err := a.Chat(context.Background(), "please https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !resp.AutoDownload || !resp.RequiresFolder || len(resp.Intentions) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !strings.Contains(resp.Message, "Youtube") {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestChatUsesLLMAndResolvesQueries(t *testing.T) {
	llm := &fakeCompleter{reply: `{"message":"ok","intentions":[
		{"query":"Bohemian Rhapsody Queen","platform":"youtube"},
		{"query":"something","url":"https://open.spotify.com/track/x","platform":"Spotify","format":"flac"}
	]}`}
	search := &fakeSearcher{}
	a := NewWithCompleter(llm, "llama-3.3-70b-versatile", search)

	resp, err := a.Chat(context.Background(), "download bohemian rhapsody and that spotify song")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if llm.got.Model != "llama-3.3-70b-versatile" || llm.got.ResponseFormat == nil ||
		llm.got.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Errorf("request not in JSON mode: %+v", llm.got)
	}
	if len(search.queries) != 1 || search.queries[0] != "Bohemian Rhapsody Queen" {
		t.Errorf("searches = %v", search.queries)
	}

	yt := resp.Intentions[0]
	if yt.URL != "https://www.youtube.com/watch?v=abc" || yt.Match == nil || yt.Format != "mp3" || yt.Quality != "320k" {
		t.Errorf("youtube intention = %+v", yt)
	}
	sp := resp.Intentions[1]
	if sp.Platform != "spotify" || sp.Format != "flac" {
		t.Errorf("spotify intention = %+v", sp)
	}
	if !strings.HasPrefix(resp.Message, "Found: Top hit") || resp.AutoDownload {
		t.Errorf("response = %+v", resp)
	}
}

func TestChatLLMErrors(t *testing.T) {
	a := NewWithCompleter(&fakeCompleter{err: errors.New("quota")}, "m", nil)
	if _, err := a.Chat(context.Background(), "some song"); err == nil {
		t.Error("expected llm error")
	}

	b := NewWithCompleter(&fakeCompleter{reply: "not json"}, "m", nil)
	if _, err := b.Chat(context.Background(), "some song"); err == nil {
		t.Error("expected parse error")
	}

	if _, err := b.Chat(context.Background(), "   "); err == nil {
		t.Error("expected error for empty message")
	}
}

func TestChatWithoutLLM(t *testing.T) {
	search := &fakeSearcher{}
	a := New("", "", search)

	resp, err := a.Chat(context.Background(), "daft punk one more time")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.Intentions) != 1 || resp.Intentions[0].URL == "" {
		t.Fatalf("response = %+v", resp)
	}

	resp, _ = a.Chat(context.Background(), "nothing")
	if len(resp.Intentions) != 0 || !strings.Contains(resp.Message, "No results") {
		t.Errorf("no-result response = %+v", resp)
	}

	bare := New("", "", nil)
	resp, _ = bare.Chat(context.Background(), "anything")
	if len(resp.Intentions) != 0 {
		t.Errorf("agent without search returned intentions")
	}
}
