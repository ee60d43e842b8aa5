package provider

import (
	"context"
	"fmt"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/okian/commskill/internal/domain/annotations"
)

const (
	assemblyAIProviderName = "assemblyai"
	msPerSecond            = 1000
)

// transcripts is the part of the AssemblyAI SDK the transcriber uses.
type transcripts interface {
	TranscribeFromURL(ctx context.Context, audioURL string, params *aai.TranscriptOptionalParams) (aai.Transcript, error)
}

// AssemblyAITranscriber transcribes media with AssemblyAI.
type AssemblyAITranscriber struct {
	transcripts transcripts
	language    string
}

// NewAssemblyAITranscriber creates a transcriber. An empty baseURL uses the
// public AssemblyAI API.
func NewAssemblyAITranscriber(apiKey, baseURL, language string) *AssemblyAITranscriber {
	opts := []aai.ClientOption{aai.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, aai.WithBaseURL(baseURL))
	}
	client := aai.NewClientWithOptions(opts...)
	return &AssemblyAITranscriber{transcripts: client.Transcripts, language: language}
}

// Transcribe implements Transcriber. It blocks until the transcript is
// completed or failed.
func (t *AssemblyAITranscriber) Transcribe(ctx context.Context, mediaURL string) (raw *annotations.RawAnnotations, err error) {
	start := time.Now()
	defer func() { observe(assemblyAIProviderName, start, err) }()

	params := &aai.TranscriptOptionalParams{Punctuate: aai.Bool(true)}
	if t.language != "" {
		params.LanguageCode = aai.TranscriptLanguageCode(t.language)
	} else {
		params.LanguageDetection = aai.Bool(true)
	}

	tr, err := t.transcripts.TranscribeFromURL(ctx, mediaURL, params)
	if err != nil {
		return nil, fmt.Errorf("%w: assemblyai: %w", ErrUpstream, err)
	}
	if tr.Status == aai.TranscriptStatusError {
		msg := "transcription failed"
		if tr.Error != nil {
			msg = *tr.Error
		}
		return nil, fmt.Errorf("%w: assemblyai: %s", ErrUpstream, msg)
	}
	return transcriptToAnnotations(tr), nil
}

// transcriptToAnnotations maps a transcript to a single speech alternative.
// AssemblyAI reports word times in milliseconds.
func transcriptToAnnotations(tr aai.Transcript) *annotations.RawAnnotations {
	alt := annotations.RawAlternative{
		Transcript: deref(tr.Text),
		Confidence: deref(tr.Confidence),
		Words:      make([]annotations.RawWord, 0, len(tr.Words)),
	}
	for _, w := range tr.Words {
		word := annotations.RawWord{
			Word:       deref(w.Text),
			Confidence: deref(w.Confidence),
		}
		if w.Start != nil {
			word.StartTime = annotations.At(float64(*w.Start) / msPerSecond)
		}
		if w.End != nil {
			word.EndTime = annotations.At(float64(*w.End) / msPerSecond)
		}
		alt.Words = append(alt.Words, word)
	}
	return &annotations.RawAnnotations{
		SpeechTranscriptions: []annotations.RawTranscription{{
			Alternatives: []annotations.RawAlternative{alt},
			LanguageCode: string(tr.LanguageCode),
		}},
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
