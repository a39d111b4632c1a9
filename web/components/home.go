// Package components holds the server-rendered pages.
package components

import (
	"context"
	"fmt"
	"io"

	"mediagrab/internal/models"

	"github.com/a-h/templ"
)

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>mediagrab</title>
<style>
body{font-family:system-ui,sans-serif;max-width:720px;margin:2rem auto;padding:0 1rem;color:#222}
code{background:#f3f3f3;padding:.1rem .3rem;border-radius:3px}
table{border-collapse:collapse;width:100%}
td,th{border-bottom:1px solid #ddd;padding:.4rem;text-align:left}
</style>
</head>
<body>
`

var endpoints = []struct{ method, path, about string }{
	{"POST", "/api/tasks", "Start a download"},
	{"POST", "/api/download/:platform", "Start a download for one platform"},
	{"GET", "/api/tasks/:id", "Task status and progress"},
	{"GET", "/api/artifacts/:id", "Fetch a finished file"},
	{"POST", "/api/preview", "Title, artist and thumbnail of a link"},
	{"GET", "/api/formats", "Output formats"},
	{"POST", "/api/agent/chat", "Ask for songs in plain words"},
	{"GET", "/api/history", "Recent downloads"},
	{"GET", "/api/stats", "Scheduler counters"},
	{"GET", "/health", "Health check"},
}

// Home is the landing page listing the API and the format catalog.
func Home(version string, formats []models.Format) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<h1>mediagrab <small>v%s</small></h1>\n", templ.EscapeString(version)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<p>Downloads from YouTube, Spotify and TikTok.</p>\n<h2>API</h2>\n<table>\n"); err != nil {
			return err
		}
		for _, e := range endpoints {
			if _, err := fmt.Fprintf(w, "<tr><td><code>%s</code></td><td><code>%s</code></td><td>%s</td></tr>\n",
				e.method, templ.EscapeString(e.path), templ.EscapeString(e.about)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</table>\n<h2>Formats</h2>\n<ul>\n"); err != nil {
			return err
		}
		for _, f := range formats {
			if _, err := fmt.Fprintf(w, "<li><code>%s</code> %s</li>\n",
				templ.EscapeString(f.ID), templ.EscapeString(f.Description)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>\n</body>\n</html>\n")
		return err
	})
}
