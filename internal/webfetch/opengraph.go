package webfetch

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// OpenGraph はページから抽出したメタ情報
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	SiteName    string
}

// ParseOpenGraph は og:* と twitter:* の meta タグを読み取る
// og:title が無ければ <title> を使う
func ParseOpenGraph(document string) (*OpenGraph, error) {
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	og := &OpenGraph{}
	var pageTitle string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				key, content := metaPair(n)
				og.set(key, content)
			case "title":
				if n.FirstChild != nil && pageTitle == "" {
					pageTitle = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if og.Title == "" {
		og.Title = pageTitle
	}
	return og, nil
}

func metaPair(n *html.Node) (key, content string) {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			if key == "" {
				key = strings.ToLower(a.Val)
			}
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	return key, content
}

// og:* を優先し、未設定のときだけ twitter:* で埋める
func (og *OpenGraph) set(key, content string) {
	if content == "" {
		return
	}
	switch key {
	case "og:title":
		og.Title = content
	case "twitter:title":
		if og.Title == "" {
			og.Title = content
		}
	case "og:description":
		og.Description = content
	case "description", "twitter:description":
		if og.Description == "" {
			og.Description = content
		}
	case "og:image":
		og.Image = content
	case "twitter:image":
		if og.Image == "" {
			og.Image = content
		}
	case "og:site_name":
		og.SiteName = content
	}
}
