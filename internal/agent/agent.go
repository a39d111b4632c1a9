// Package agent turns chat messages into download intentions.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"mediagrab/internal/spotify"
	"mediagrab/internal/tiktok"
	"mediagrab/internal/youtube"
	"mediagrab/internal/ytdlp"

	openai "github.com/sashabaranov/go-openai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

const maxSearches = 5

const systemPrompt = `You are the assistant of a media downloader that supports YouTube, Spotify and TikTok.
Identify every song or video the user asks for.
Rules:
- Use format "mp3" and quality "320k" unless the user asks for something else (formats: mp3, m4a, flac, wav, mp4; qualities: 128k, 192k, 320k, best).
- Put links in "url". Put song names in "query", adding the artist when you know it.
- platform is "spotify" or "tiktok" for their links and "youtube" for everything else.
Reply only with JSON of this shape:
{"message": "<short friendly reply>", "intentions": [{"query": "...", "url": "", "format": "mp3", "quality": "320k", "platform": "youtube"}]}`

// Intention is one requested download.
type Intention struct {
	Query    string              `json:"query"`
	URL      string              `json:"url,omitempty"`
	Format   string              `json:"format"`
	Quality  string              `json:"quality"`
	Platform string              `json:"platform"`
	Match    *ytdlp.SearchResult `json:"search_result,omitempty"`
}

// Response is the reply to a chat message.
type Response struct {
	Message        string      `json:"message"`
	Intentions     []Intention `json:"intentions"`
	RequiresFolder bool        `json:"requires_folder"`
	AutoDownload   bool        `json:"auto_download"`
}

// Completer is the chat completion call the agent uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Searcher finds YouTube videos for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]ytdlp.SearchResult, error)
}

// Agent answers chat messages. Without an LLM it only handles links and
// plain search.
type Agent struct {
	llm      Completer
	model    string
	searcher Searcher
}

// New creates an agent backed by Groq. An empty apiKey disables the LLM.
func New(apiKey, model string, searcher Searcher) *Agent {
	var llm Completer
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = GroqBaseURL
		llm = openai.NewClientWithConfig(cfg)
	}
	return NewWithCompleter(llm, model, searcher)
}

// NewWithCompleter creates an agent over any chat completion backend.
func NewWithCompleter(llm Completer, model string, searcher Searcher) *Agent {
	return &Agent{llm: llm, model: model, searcher: searcher}
}

// DetectURLs finds supported links in text, in order of platform.
func DetectURLs(text string) []Intention {
	var found []Intention
	add := func(platform string, urls []string) {
		for _, u := range urls {
			if !strings.HasPrefix(u, "http") {
				u = "https://" + u
			}
			found = append(found, Intention{
				Query:    strings.ToUpper(platform[:1]) + platform[1:] + " link",
				URL:      u,
				Format:   "mp3",
				Quality:  "320k",
				Platform: platform,
			})
		}
	}
	add(youtube.Name, youtube.FindURLs(text))
	add(spotify.Name, spotify.FindURLs(text))
	add(tiktok.Name, tiktok.FindURLs(text))
	return found
}

// Chat handles one user message.
func (a *Agent) Chat(ctx context.Context, message string) (*Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message is empty")
	}

	if links := DetectURLs(message); len(links) > 0 {
		noun := "Link"
		if len(links) > 1 {
			noun = "Links"
		}
		return &Response{
			Message:        fmt.Sprintf("%s detected (%s). Starting download...", noun, platformList(links)),
			Intentions:     links,
			RequiresFolder: true,
			AutoDownload:   true,
		}, nil
	}

	if a.llm == nil {
		return a.searchOnly(ctx, message), nil
	}

	resp, err := a.llm.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm returned no choices")
	}

	var out Response
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse llm reply: %w", err)
	}

	a.resolve(ctx, &out)
	out.RequiresFolder = len(out.Intentions) > 0
	return &out, nil
}

// resolve fills in YouTube URLs for intentions that only carry a query.
func (a *Agent) resolve(ctx context.Context, out *Response) {
	var found []string
	searches := 0
	for i := range out.Intentions {
		in := &out.Intentions[i]
		normalize(in)
		if in.URL != "" || in.Platform != youtube.Name || in.Query == "" || a.searcher == nil {
			continue
		}
		if searches >= maxSearches {
			continue
		}
		searches++

		results, err := a.searcher.Search(ctx, in.Query, 1)
		if err != nil {
			log.Printf("Agent search failed for %q: %v", in.Query, err)
			continue
		}
		if len(results) == 0 {
			continue
		}
		in.URL = results[0].URL
		in.Query = results[0].Title
		in.Match = &results[0]
		found = append(found, results[0].Title)
	}

	if len(found) > 0 {
		shown := found
		suffix := ""
		if len(shown) > 3 {
			shown, suffix = shown[:3], "..."
		}
		out.Message = fmt.Sprintf("Found: %s%s. Ready to download.", strings.Join(shown, ", "), suffix)
	}
}

func (a *Agent) searchOnly(ctx context.Context, message string) *Response {
	if a.searcher == nil {
		return &Response{Message: "Paste a YouTube, Spotify or TikTok link to start a download."}
	}

	out := &Response{
		Intentions: []Intention{{Query: message, Platform: youtube.Name}},
	}
	a.resolve(ctx, out)
	if out.Intentions[0].URL == "" {
		return &Response{Message: fmt.Sprintf("No results found for %q.", message)}
	}
	out.RequiresFolder = true
	return out
}

func normalize(in *Intention) {
	in.Platform = strings.ToLower(strings.TrimSpace(in.Platform))
	if in.Platform == "" {
		in.Platform = youtube.Name
	}
	if in.Format == "" {
		in.Format = "mp3"
	}
	if in.Quality == "" {
		in.Quality = "320k"
	}
}

func platformList(links []Intention) string {
	seen := make(map[string]bool)
	var names []string
	for _, l := range links {
		if !seen[l.Platform] {
			seen[l.Platform] = true
			names = append(names, strings.ToUpper(l.Platform[:1])+l.Platform[1:])
		}
	}
	return strings.Join(names, ", ")
}
