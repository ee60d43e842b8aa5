// Package loadtest drives a running service with synthetic annotation
// payloads and checks the scores it returns against a local scorer.
package loadtest

import (
	"time"

	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/pkg/logger"
)

// TokenIssuer signs bearer tokens for synthetic users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Payloads   int           // Number of payloads to generate
	Users      int           // Number of distinct synthetic users
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Save       bool          // Also store each result and check history
	OutputFile string        // Where generated payloads are written; empty skips
	Verbose    bool

	Tokens TokenIssuer
	// Scorer computes the expected results; nil uses the default scorer.
	Scorer *scoring.Scorer
	Logger logger.Logger
}

// Payload is one request body and the user it is submitted as.
type Payload struct {
	Index       int                         `json:"index"`
	UserID      string                      `json:"userId"`
	Profile     string                      `json:"profile"`
	Annotations *annotations.RawAnnotations `json:"annotations"`
}

// ScoreResponse mirrors the body of POST /api/video/score.
type ScoreResponse struct {
	Results        scoring.Scores      `json:"results"`
	Fallbacks      []scoring.Dimension `json:"fallbacks"`
	WordsPerMinute float64             `json:"wordsPerMinute"`
	WordCount      int                 `json:"wordCount"`
}

// Outcome is the result of submitting one payload.
type Outcome struct {
	Payload  Payload
	Response ScoreResponse
	Status   int
	Err      error
}

// Stats holds run statistics.
type Stats struct {
	PayloadsGenerated int           `json:"payloadsGenerated"`
	Submitted         int           `json:"submitted"`
	Successful        int           `json:"successful"`
	Failed            int           `json:"failed"`
	Mismatched        int           `json:"mismatched"`
	Saved             int           `json:"saved"`
	HistoryChecked    int           `json:"historyChecked"`
	StartTime         time.Time     `json:"startTime"`
	EndTime           time.Time     `json:"endTime"`
	Duration          time.Duration `json:"duration"`
}
