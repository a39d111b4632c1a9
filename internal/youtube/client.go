package youtube

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"mediagrab/internal/platform"

	"github.com/kkdai/youtube/v2"
)

const defaultOEmbedEndpoint = "https://www.youtube.com/oembed"

var urlPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.|m\.|music\.)?(?:youtube\.com/(?:watch\?v=|shorts/|embed/|live/)|youtu\.be/)([\w-]{11})`)

// IsURL は YouTube の動画 URL かどうかを返す
func IsURL(s string) bool {
	return urlPattern.MatchString(s)
}

// FindURLs はテキスト中の YouTube URL をすべて返す
func FindURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// Client はYouTube API操作を抽象化するクライアント
type Client struct {
	client         youtube.Client
	http           *http.Client
	oembedEndpoint string
}

// NewClient は新しいYouTubeクライアントを作成
func NewClient() *Client {
	return &Client{
		client:         youtube.Client{},
		http:           &http.Client{Timeout: 15 * time.Second},
		oembedEndpoint: defaultOEmbedEndpoint,
	}
}

// VideoInfo は動画のメタ情報
type VideoInfo struct {
	ID        string
	Title     string
	Author    string
	Thumbnail string
	Duration  time.Duration
}

// GetVideo は動画情報を取得
func (c *Client) GetVideo(ctx context.Context, videoURL string) (*VideoInfo, error) {
	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	info := &VideoInfo{
		ID:       video.ID,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
	}
	// 最後のサムネイルが最大解像度
	if n := len(video.Thumbnails); n > 0 {
		info.Thumbnail = video.Thumbnails[n-1].URL
	}
	return info, nil
}

// OEmbed は oEmbed エンドポイントからタイトルと投稿者を取得
func (c *Client) OEmbed(ctx context.Context, videoURL string) (*platform.OEmbed, error) {
	endpoint := c.oembedEndpoint + "?url=" + url.QueryEscape(videoURL) + "&format=json"
	return platform.FetchOEmbed(ctx, c.http, endpoint)
}
