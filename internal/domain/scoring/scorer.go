// Package scoring turns normalized annotations into communication-skill
// scores and combines them into an engagement score.
package scoring

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/pkg/logger"
)

// Result is the outcome of scoring one set of annotations.
type Result struct {
	Scores Scores
	// Fallbacks lists the components that used their fallback value.
	Fallbacks []Dimension
	WPM       float64
	Words     int
}

// Scorer runs the component scorers and the aggregator. It holds no
// per-call state and is safe for concurrent use.
type Scorer struct {
	cfg Config
	log logger.Logger
}

// NewScorer creates a scorer with the default configuration modified by opts.
func NewScorer(opts ...Option) (*Scorer, error) {
	s := &Scorer{
		cfg: DefaultConfig(),
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Gaze == nil {
		s.cfg.Gaze = AlwaysLooking{}
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	return s, nil
}

// Config returns a copy of the scorer configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

type componentResult struct {
	value   float64
	outcome Outcome
}

// Score normalizes raw, computes the five components concurrently and
// aggregates them. It only fails when ctx is already done.
func (s *Scorer) Score(ctx context.Context, raw *annotations.RawAnnotations) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	n := annotations.Normalize(raw)
	results := make([]componentResult, len(Components))

	var wg sync.WaitGroup
	for i, d := range Components {
		wg.Add(1)
		go func(i int, d Dimension) {
			defer wg.Done()
			v, out := evaluate(s.cfg, d, n)
			results[i] = componentResult{value: v, outcome: out}
		}(i, d)
	}
	wg.Wait()

	res := Result{Scores: make(Scores, len(Dimensions))}
	for i, d := range Components {
		r := results[i]
		res.Scores[d] = r.value
		switch r.outcome {
		case NoInput:
			res.Fallbacks = append(res.Fallbacks, d)
		case Recovered:
			res.Fallbacks = append(res.Fallbacks, d)
			s.log.Warn(ctx, "scorer recovered with fallback",
				logger.String("dimension", string(d)),
				logger.Float64("fallback", r.value))
		case Computed:
		}
	}
	res.Scores[DimEngagement] = Engagement(res.Scores, s.cfg.Policy, s.cfg.Weights)
	res.WPM, res.Words = WordsPerMinute(n)

	return res, nil
}
