// Package tiktok downloads TikTok videos and sounds through the tikwm API.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"mediagrab/internal/platform"

	"golang.org/x/time/rate"
)

const (
	defaultEndpoint       = "https://www.tikwm.com/api/"
	defaultOEmbedEndpoint = "https://www.tiktok.com/oembed"
	tikwmBase             = "https://www.tikwm.com"
)

var urlPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.|vm\.|vt\.|m\.)?tiktok\.com/[^\s]+`)

// IsURL reports whether s is a TikTok link.
func IsURL(s string) bool {
	return urlPattern.MatchString(s)
}

// FindURLs returns every TikTok link in text.
func FindURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// Video is the tikwm description of a post.
type Video struct {
	ID       string
	Title    string
	Author   string
	Cover    string
	Duration time.Duration
	PlayURL  string
	MusicURL string
}

// Client talks to tikwm. Requests are throttled because the public API
// rejects bursts.
type Client struct {
	http           *http.Client
	endpoint       string
	oembedEndpoint string
	limiter        *rate.Limiter
}

// NewClient creates a client limited to rps lookups per second.
func NewClient(rps float64) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		http:           &http.Client{Timeout: 30 * time.Second},
		endpoint:       defaultEndpoint,
		oembedEndpoint: defaultOEmbedEndpoint,
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
	}
}

type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Play     string `json:"play"`
		HDPlay   string `json:"hdplay"`
		Music    string `json:"music"`
		Cover    string `json:"cover"`
		Duration int    `json:"duration"`
		Author   struct {
			Nickname string `json:"nickname"`
		} `json:"author"`
	} `json:"data"`
}

// Lookup resolves a TikTok URL to direct media links.
func (c *Client) Lookup(ctx context.Context, videoURL string) (*Video, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{"url": {videoURL}, "hd": {"1"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", platform.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tikwm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tikwm returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode tikwm response: %w", err)
	}
	if body.Code != 0 {
		msg := body.Msg
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("tikwm error: %s", msg)
	}

	d := body.Data
	play := d.HDPlay
	if play == "" {
		play = d.Play
	}
	return &Video{
		ID:       d.ID,
		Title:    d.Title,
		Author:   d.Author.Nickname,
		Cover:    absolute(d.Cover),
		Duration: time.Duration(d.Duration) * time.Second,
		PlayURL:  absolute(play),
		MusicURL: absolute(d.Music),
	}, nil
}

// OEmbed fetches TikTok's own oEmbed card.
func (c *Client) OEmbed(ctx context.Context, videoURL string) (*platform.OEmbed, error) {
	return platform.FetchOEmbed(ctx, c.http, c.oembedEndpoint+"?url="+url.QueryEscape(videoURL))
}

// Open starts streaming mediaURL. The caller closes the body.
func (c *Client) Open(ctx context.Context, mediaURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", platform.UserAgent)
	req.Header.Set("Referer", "https://www.tiktok.com/")

	// streaming client: the overall bound comes from ctx
	resp, err := (&http.Client{Transport: c.http.Transport}).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open media stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("media stream returned status %d", resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

func absolute(u string) string {
	if strings.HasPrefix(u, "/") {
		return tikwmBase + u
	}
	return u
}
