package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Policy selects how engagement is derived from the component scores.
type Policy string

// Engagement policies.
const (
	// PolicySimple is the unweighted mean of eye contact, gestures and posture.
	PolicySimple Policy = "simple"
	// PolicyWeighted is a weighted sum of all five components.
	PolicyWeighted Policy = "weighted"
)

// ParsePolicy converts s into a Policy. Matching is case-insensitive.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicySimple, PolicyWeighted:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Weights are the per-dimension weights of the weighted policy.
type Weights map[Dimension]float64

// DefaultWeights returns the stock weighted-policy weights.
func DefaultWeights() Weights {
	return Weights{
		DimEyeContact:   0.25,
		DimPosture:      0.15,
		DimGestures:     0.20,
		DimVoiceClarity: 0.25,
		DimPace:         0.15,
	}
}

const weightTolerance = 1e-6

// Validate checks weights are non-negative component weights summing to 1.
func (w Weights) Validate() error {
	total := 0.0
	for d, v := range w {
		if d == DimEngagement || !d.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, d)
		}
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeights, d, v)
		}
		total += v
	}
	if math.Abs(total-1) > weightTolerance {
		return fmt.Errorf("%w: got %v", ErrInvalidWeights, total)
	}
	return nil
}

// DefaultFallbacks returns the score used for each component when its
// input is missing or malformed.
func DefaultFallbacks() map[Dimension]float64 {
	return map[Dimension]float64{
		DimEyeContact:   85,
		DimPosture:      80,
		DimGestures:     75,
		DimVoiceClarity: 90,
		DimPace:         85,
	}
}

// Default ideal speaking band in words per minute.
const (
	DefaultIdealMinWPM = 120
	DefaultIdealMaxWPM = 160
)

// Config holds the tunables of the scoring core.
type Config struct {
	Fallbacks   map[Dimension]float64
	IdealMinWPM float64
	IdealMaxWPM float64
	Policy      Policy
	Weights     Weights
	Gaze        GazeEstimator
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Fallbacks:   DefaultFallbacks(),
		IdealMinWPM: DefaultIdealMinWPM,
		IdealMaxWPM: DefaultIdealMaxWPM,
		Policy:      PolicyWeighted,
		Weights:     DefaultWeights(),
		Gaze:        AlwaysLooking{},
	}
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	if c.Policy == PolicyWeighted {
		if err := c.Weights.Validate(); err != nil {
			return err
		}
	}
	if c.IdealMinWPM <= 0 || c.IdealMaxWPM < c.IdealMinWPM {
		return fmt.Errorf("%w: [%v,%v]", ErrInvalidPaceBand, c.IdealMinWPM, c.IdealMaxWPM)
	}
	for _, d := range Components {
		v, ok := c.Fallbacks[d]
		if !ok || v < minScore || v > maxScore || math.IsNaN(v) {
			return fmt.Errorf("%w: %s", ErrInvalidFallback, d)
		}
	}
	return nil
}

func (c Config) fallback(d Dimension) float64 {
	if v, ok := c.Fallbacks[d]; ok {
		return v
	}
	return DefaultFallbacks()[d]
}

// PaceScore maps wpm onto [0,100] using the configured ideal band.
func (c Config) PaceScore(wpm float64) float64 {
	return paceScore(wpm, c.IdealMinWPM, c.IdealMaxWPM)
}
