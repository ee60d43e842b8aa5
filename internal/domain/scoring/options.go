package scoring

import "github.com/okian/commskill/pkg/logger"

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(s *Scorer) {
		s.cfg = cfg
	}
}

// WithPolicy sets the engagement policy.
func WithPolicy(p Policy) Option {
	return func(s *Scorer) {
		s.cfg.Policy = p
	}
}

// WithWeights sets the weighted-policy weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if len(w) > 0 {
			s.cfg.Weights = w
		}
	}
}

// WithFallback overrides the fallback score of one component.
func WithFallback(d Dimension, v float64) Option {
	return func(s *Scorer) {
		fb := make(map[Dimension]float64, len(s.cfg.Fallbacks)+1)
		for k, x := range s.cfg.Fallbacks {
			fb[k] = x
		}
		fb[d] = v
		s.cfg.Fallbacks = fb
	}
}

// WithIdealPace sets the ideal speaking band in words per minute.
func WithIdealPace(minWPM, maxWPM float64) Option {
	return func(s *Scorer) {
		s.cfg.IdealMinWPM = minWPM
		s.cfg.IdealMaxWPM = maxWPM
	}
}

// WithGazeEstimator sets the eye-contact gaze heuristic.
func WithGazeEstimator(g GazeEstimator) Option {
	return func(s *Scorer) {
		if g != nil {
			s.cfg.Gaze = g
		}
	}
}

// WithLogger sets the logger used to report recovered scorers.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.log = l
		}
	}
}
