// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/commskill/internal/domain/scoring"
)

// Insights is coaching feedback derived from a set of scores.
type Insights struct {
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	Recommendations []string `json:"recommendations"`
}

// Empty reports whether no feedback was produced.
func (i *Insights) Empty() bool {
	return i == nil || len(i.Strengths)+len(i.Improvements)+len(i.Recommendations) == 0
}

// AnalysisRecord is the persisted result of one analysis.
// Records are immutable once saved.
type AnalysisRecord struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"userId"`
	VideoURL  string         `json:"videoUrl"`
	Scores    scoring.Scores `json:"results"`
	Feedback  *Insights      `json:"aiInsights,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	// Digest is the duplicate-detection key of the upload the record was
	// computed from. It is empty for records saved by clients.
	Digest string `json:"-"`
}

// NewAnalysisRecord creates a record with a fresh ID.
func NewAnalysisRecord(owner, videoURL string, scores scoring.Scores, feedback *Insights, now time.Time) AnalysisRecord {
	if feedback.Empty() {
		feedback = nil
	}
	return AnalysisRecord{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		VideoURL:  videoURL,
		Scores:    scores,
		Feedback:  feedback,
		CreatedAt: now.UTC(),
	}
}
