package provider

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/commskill/internal/domain/annotations"
)

// Composite annotates video with one provider and transcribes speech with
// another, concurrently. Either failure fails the whole call.
type Composite struct {
	video  Annotator
	speech Transcriber
}

// NewComposite combines video and speech providers. A nil speech
// transcriber makes Composite a pass-through to video.
func NewComposite(video Annotator, speech Transcriber) *Composite {
	return &Composite{video: video, speech: speech}
}

// Annotate implements Annotator. The first failure cancels the other call
// and is the one reported.
func (c *Composite) Annotate(ctx context.Context, videoURL string) (*annotations.RawAnnotations, error) {
	if c.speech == nil {
		return c.video.Annotate(ctx, videoURL)
	}

	var videoRaw, speechRaw *annotations.RawAnnotations
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := c.video.Annotate(gctx, videoURL)
		if err != nil {
			return upstream("video", err)
		}
		videoRaw = raw
		return nil
	})
	g.Go(func() error {
		raw, err := c.speech.Transcribe(gctx, videoURL)
		if err != nil {
			return upstream("speech", err)
		}
		speechRaw = raw
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return annotations.Merge(videoRaw, speechRaw), nil
}

func upstream(stage string, err error) error {
	if errors.Is(err, ErrUpstream) {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return fmt.Errorf("%s: %w: %w", stage, ErrUpstream, err)
}
