package loadtest

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"

	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/pkg/logger"
)

// Mismatch describes a remote score that disagrees with the local one.
type Mismatch struct {
	Index     int
	Dimension scoring.Dimension
	Remote    float64
	Local     float64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("payload %d %s: remote %.4f, local %.4f", m.Index, m.Dimension, m.Remote, m.Local)
}

// verifyScores rescores every successful outcome locally and reports each
// dimension that differs by more than ScoreTolerance.
func verifyScores(ctx context.Context, cfg *Config, outcomes []Outcome, stats *Stats) ([]Mismatch, error) {
	var mismatches []Mismatch
	for _, o := range outcomes {
		if o.Err != nil || o.Status == 0 {
			continue
		}
		local, err := cfg.Scorer.Score(ctx, o.Payload.Annotations)
		if err != nil {
			return nil, fmt.Errorf("local scoring: %w", err)
		}
		mismatches = append(mismatches, compareScores(o.Payload.Index, o.Response.Results, local.Scores)...)
	}

	bad := make(map[int]struct{})
	for _, m := range mismatches {
		bad[m.Index] = struct{}{}
	}
	stats.Mismatched = len(bad)

	for i, m := range mismatches {
		if i >= 10 && !cfg.Verbose {
			break
		}
		cfg.Logger.Warn(ctx, "score mismatch", logger.String("detail", m.String()))
	}
	return mismatches, nil
}

// compareScores lists the dimensions of local that remote is missing or
// disagrees on, in dimension order.
func compareScores(index int, remote, local scoring.Scores) []Mismatch {
	dims := make([]scoring.Dimension, 0, len(local))
	for d := range local {
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })

	var out []Mismatch
	for _, d := range dims {
		r, ok := remote[d]
		if !ok || math.Abs(r-local[d]) > ScoreTolerance {
			out = append(out, Mismatch{Index: index, Dimension: d, Remote: r, Local: local[d]})
		}
	}
	return out
}

type historyResponse struct {
	Analyses []struct {
		ID string `json:"id"`
	} `json:"analyses"`
	Count int `json:"count"`
}

// saveAndCheckHistory stores the first successful result of every user and
// checks that it is the newest entry of that user's history.
func saveAndCheckHistory(ctx context.Context, cfg *Config, client *HTTPClient, outcomes []Outcome, stats *Stats) error {
	seen := make(map[string]bool)
	for _, o := range outcomes {
		if o.Err != nil || seen[o.Payload.UserID] {
			continue
		}
		seen[o.Payload.UserID] = true

		body := map[string]any{
			"videoUrl": fmt.Sprintf("loadtest://%s/%d", o.Payload.Profile, o.Payload.Index),
			"results":  o.Response.Results,
		}
		var saved struct {
			ID string `json:"id"`
		}
		if _, err := client.Do(ctx, http.MethodPost, "/api/user/analysis/save", o.Payload.UserID, body, &saved); err != nil {
			return fmt.Errorf("save for %s: %w", o.Payload.UserID, err)
		}
		stats.Saved++

		var hist historyResponse
		if _, err := client.Do(ctx, http.MethodGet, "/api/video/history?limit=1", o.Payload.UserID, nil, &hist); err != nil {
			return fmt.Errorf("history for %s: %w", o.Payload.UserID, err)
		}
		if hist.Count < 1 || len(hist.Analyses) == 0 || hist.Analyses[0].ID != saved.ID {
			return fmt.Errorf("history for %s does not start with saved analysis %s", o.Payload.UserID, saved.ID)
		}
		stats.HistoryChecked++
	}
	cfg.Logger.Info(ctx, "history verified", logger.Int("users", stats.HistoryChecked))
	return nil
}
