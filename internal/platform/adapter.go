package platform

import (
	"context"
	"time"
)

// Metadata is the lightweight preview of a media reference.
type Metadata struct {
	Title     string        `json:"title"`
	Author    string        `json:"artist"`
	Thumbnail string        `json:"thumbnail,omitempty"`
	Duration  time.Duration `json:"-"`
}

// ProgressFunc receives a percentage in [0, 100].
type ProgressFunc func(percent int)

// Options carries the requested output shape and a progress sink.
type Options struct {
	Format   string
	Quality  string
	Progress ProgressFunc
}

// Report forwards percent to the progress sink when one is set.
func (o Options) Report(percent int) {
	if o.Progress != nil {
		o.Progress(percent)
	}
}

// Artifact is a file produced by an adapter.
type Artifact struct {
	FilePath string
	Filename string
	Title    string
	Author   string
	Duration time.Duration
}

// Adapter resolves references for one platform.
//
// FetchMetadata is short and bounded. FetchArtifact may run for minutes and
// must honour ctx cancellation; errors should be *Error values.
type Adapter interface {
	Name() string
	FetchMetadata(ctx context.Context, reference string) (*Metadata, error)
	FetchArtifact(ctx context.Context, reference string, opts Options) (*Artifact, error)
}
