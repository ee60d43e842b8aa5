package provider

import (
	"net/http"
	"time"

	"github.com/okian/commskill/pkg/logger"
)

const (
	defaultLanguage        = "en-US"
	defaultHTTPTimeout     = 10 * time.Minute
	defaultInitialInterval = 2 * time.Second
	defaultMaxInterval     = 10 * time.Second
	defaultMaxElapsed      = 30 * time.Second
	maxResponseBytes       = 64 << 20
)

// DefaultFeatures are the detectors requested from the video annotator.
var DefaultFeatures = []string{"PERSON_DETECTION", "POSE_DETECTION", "FACE_DETECTION", "SPEECH_TRANSCRIPTION"} //nolint:gochecknoglobals // request constant

// HTTPOption applies a configuration option to the HTTPAnnotator.
type HTTPOption func(*HTTPAnnotator)

// WithAPIKey sets the bearer token sent to the annotator.
func WithAPIKey(key string) HTTPOption {
	return func(a *HTTPAnnotator) {
		a.apiKey = key
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(a *HTTPAnnotator) {
		if c != nil {
			a.client = c
		}
	}
}

// WithLanguage sets the speech transcription language code.
func WithLanguage(code string) HTTPOption {
	return func(a *HTTPAnnotator) {
		if code != "" {
			a.language = code
		}
	}
}

// WithFeatures sets the requested detector features.
func WithFeatures(features ...string) HTTPOption {
	return func(a *HTTPAnnotator) {
		if len(features) > 0 {
			a.features = features
		}
	}
}

// WithRetry sets the exponential backoff schedule.
func WithRetry(initial, maxInterval, maxElapsed time.Duration) HTTPOption {
	return func(a *HTTPAnnotator) {
		if initial > 0 {
			a.initialInterval = initial
		}
		if maxInterval > 0 {
			a.maxInterval = maxInterval
		}
		if maxElapsed > 0 {
			a.maxElapsed = maxElapsed
		}
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l logger.Logger) HTTPOption {
	return func(a *HTTPAnnotator) {
		if l != nil {
			a.log = l
		}
	}
}
