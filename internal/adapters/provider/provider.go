// Package provider talks to the external video and speech analysis
// services that produce raw annotations.
package provider

import (
	"context"
	"time"

	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/pkg/metrics"
)

// Annotator produces detector and speech annotations for a video.
type Annotator interface {
	Annotate(ctx context.Context, videoURL string) (*annotations.RawAnnotations, error)
}

// Transcriber produces speech annotations for a media file.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaURL string) (*annotations.RawAnnotations, error)
}

// AnnotatorFunc adapts a function to Annotator.
type AnnotatorFunc func(ctx context.Context, videoURL string) (*annotations.RawAnnotations, error)

// Annotate implements Annotator.
func (f AnnotatorFunc) Annotate(ctx context.Context, videoURL string) (*annotations.RawAnnotations, error) {
	return f(ctx, videoURL)
}

// TranscriberFunc adapts a function to Transcriber.
type TranscriberFunc func(ctx context.Context, mediaURL string) (*annotations.RawAnnotations, error)

// Transcribe implements Transcriber.
func (f TranscriberFunc) Transcribe(ctx context.Context, mediaURL string) (*annotations.RawAnnotations, error) {
	return f(ctx, mediaURL)
}

// Static returns an Annotator that always yields raw. Used in local mode.
func Static(raw *annotations.RawAnnotations) Annotator {
	return AnnotatorFunc(func(context.Context, string) (*annotations.RawAnnotations, error) {
		return raw, nil
	})
}

// observe records latency and failure of one upstream call.
func observe(name string, start time.Time, err error) {
	metrics.RecordProviderLatency(name, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordProviderError(name)
	}
}
