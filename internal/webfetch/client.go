package webfetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mediagrab/internal/platform"

	"github.com/naozine/nz-html-fetch/pkg/htmlfetch"
)

// Client はヘッドレスブラウザでページを取得するクライアント
// ブラウザは最初の Fetch 時に起動する
type Client struct {
	opts *Options

	mu      sync.Mutex
	fetcher *htmlfetch.Fetcher
}

// Options はクライアント作成オプション
type Options struct {
	Stealth     bool   // ボット検出回避
	Proxy       string // プロキシアドレス
	BrowserPath string // ブラウザパス
}

// FetchOptions はフェッチ実行オプション
type FetchOptions struct {
	BlockAds    bool          // 広告ブロック
	BlockImages bool          // 画像ブロック
	WaitTime    time.Duration // 待機時間
	Selector    string        // 待機セレクタ
}

// NewClient は新しいクライアントを作成
func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = &Options{Stealth: true}
	}
	return &Client{opts: opts}
}

func (c *Client) start() (*htmlfetch.Fetcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetcher != nil {
		return c.fetcher, nil
	}

	var fetcherOpts []htmlfetch.Option
	if c.opts.BrowserPath != "" {
		fetcherOpts = append(fetcherOpts, htmlfetch.WithBrowserPath(c.opts.BrowserPath))
	}
	if c.opts.Proxy != "" {
		fetcherOpts = append(fetcherOpts, htmlfetch.WithProxy(c.opts.Proxy))
	}
	fetcherOpts = append(fetcherOpts, htmlfetch.WithStealth(c.opts.Stealth))

	fetcher := htmlfetch.New(fetcherOpts...)
	if err := fetcher.Start(); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	c.fetcher = fetcher
	return fetcher, nil
}

// Close はブラウザを終了
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetcher != nil {
		err := c.fetcher.Close()
		c.fetcher = nil
		return err
	}
	return nil
}

// FetchHTML はURLからHTMLを取得
func (c *Client) FetchHTML(ctx context.Context, url string, opts *FetchOptions) (string, error) {
	fetcher, err := c.start()
	if err != nil {
		return "", err
	}

	result, err := fetcher.Fetch(ctx, url, buildFetchOptions(opts)...)
	if err != nil {
		return "", err
	}
	return result.HTML, nil
}

// Metadata はページの Open Graph タグからプレビュー情報を取得
func (c *Client) Metadata(ctx context.Context, url string) (*platform.Metadata, error) {
	html, err := c.FetchHTML(ctx, url, &FetchOptions{BlockAds: true, BlockImages: true})
	if err != nil {
		return nil, err
	}

	og, err := ParseOpenGraph(html)
	if err != nil {
		return nil, err
	}
	if og.Title == "" {
		return nil, fmt.Errorf("no title found on %s", url)
	}
	return &platform.Metadata{Title: og.Title, Author: og.SiteName, Thumbnail: og.Image}, nil
}

// buildFetchOptions はFetchOptionsからhtmlfetch.FetchOptionを構築
func buildFetchOptions(opts *FetchOptions) []htmlfetch.FetchOption {
	var fetchOpts []htmlfetch.FetchOption

	if opts == nil {
		return fetchOpts
	}

	if opts.BlockAds || opts.BlockImages {
		fetchOpts = append(fetchOpts, htmlfetch.WithBlocking(htmlfetch.BlockingOptions{
			Ads:   opts.BlockAds,
			Image: opts.BlockImages,
		}))
	}

	if opts.Selector != "" {
		timeout := 30 * time.Second
		if opts.WaitTime > 0 {
			timeout = opts.WaitTime
		}
		fetchOpts = append(fetchOpts, htmlfetch.WithSelector(opts.Selector, timeout))
	}

	return fetchOpts
}
