package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/pkg/logger"
)

const httpProviderName = "http"

// HTTPAnnotator calls a video-intelligence style HTTP endpoint.
type HTTPAnnotator struct {
	endpoint        string
	apiKey          string
	language        string
	features        []string
	client          *http.Client
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsed      time.Duration
	log             logger.Logger
}

// NewHTTPAnnotator creates an annotator posting to endpoint.
func NewHTTPAnnotator(endpoint string, opts ...HTTPOption) *HTTPAnnotator {
	a := &HTTPAnnotator{
		endpoint:        endpoint,
		language:        defaultLanguage,
		features:        DefaultFeatures,
		client:          &http.Client{Timeout: defaultHTTPTimeout},
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		maxElapsed:      defaultMaxElapsed,
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type speechConfig struct {
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
}

type videoContext struct {
	SpeechTranscriptionConfig speechConfig `json:"speechTranscriptionConfig"`
}

type annotateRequest struct {
	InputURI     string       `json:"inputUri"`
	Features     []string     `json:"features"`
	LanguageCode string       `json:"languageCode"`
	VideoContext videoContext `json:"videoContext"`
}

// annotateEnvelope is the {"annotationResults": [...]} wrapper. A response
// without it is a bare annotation document.
type annotateEnvelope struct {
	AnnotationResults []json.RawMessage `json:"annotationResults"`
}

// Annotate implements Annotator. Network errors, 429 and 5xx are retried
// with exponential backoff; other 4xx responses fail immediately.
func (a *HTTPAnnotator) Annotate(ctx context.Context, videoURL string) (raw *annotations.RawAnnotations, err error) {
	start := time.Now()
	defer func() { observe(httpProviderName, start, err) }()

	body, err := json.Marshal(annotateRequest{
		InputURI:     videoURL,
		Features:     a.features,
		LanguageCode: a.language,
		VideoContext: videoContext{SpeechTranscriptionConfig: speechConfig{
			LanguageCode:               a.language,
			EnableAutomaticPunctuation: true,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrUpstream, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = a.initialInterval
	bo.MaxInterval = a.maxInterval
	bo.MaxElapsedTime = a.maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		var callErr error
		raw, callErr = a.call(ctx, body)
		return callErr
	}
	notify := func(err error, wait time.Duration) {
		a.log.Warn(ctx, "annotation request failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("wait", wait),
			logger.Error(err))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return raw, nil
}

func (a *HTTPAnnotator) call(ctx context.Context, body []byte) (*annotations.RawAnnotations, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("annotator returned status %d", resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(msg)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	raw, err := decodeResponse(data)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if len(raw.Dropped) > 0 {
		a.log.Warn(ctx, "annotation response partly malformed", logger.Any("dropped", raw.Dropped))
	}
	return raw, nil
}

func decodeResponse(data []byte) (*annotations.RawAnnotations, error) {
	var env annotateEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", annotations.ErrMalformed, err)
	}
	if len(env.AnnotationResults) > 0 {
		data = env.AnnotationResults[0]
	}
	return annotations.Decode(bytes.NewReader(data))
}
