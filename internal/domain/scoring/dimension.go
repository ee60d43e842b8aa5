package scoring

import (
	"fmt"
	"math"
)

// Dimension names one communication-skill score.
type Dimension string

// Scored dimensions.
const (
	DimEyeContact   Dimension = "eyeContact"
	DimPosture      Dimension = "posture"
	DimGestures     Dimension = "gestures"
	DimVoiceClarity Dimension = "voiceClarity"
	DimPace         Dimension = "pace"
	DimEngagement   Dimension = "engagement"
)

// Components are the dimensions computed directly from annotations.
var Components = []Dimension{DimEyeContact, DimPosture, DimGestures, DimVoiceClarity, DimPace} //nolint:gochecknoglobals // fixed enumeration

// Dimensions lists every dimension, engagement last.
var Dimensions = append(append([]Dimension{}, Components...), DimEngagement) //nolint:gochecknoglobals // fixed enumeration

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	for _, k := range Dimensions {
		if k == d {
			return true
		}
	}
	return false
}

// ParseDimension converts s into a Dimension.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
	}
	return d, nil
}

// SkillScore pairs a dimension with its value.
type SkillScore struct {
	Dimension Dimension `json:"dimension"`
	Value     float64   `json:"value"`
}

// Scores maps each dimension to a value in [0,100].
type Scores map[Dimension]float64

// List returns the scores in Dimensions order, skipping absent ones.
func (s Scores) List() []SkillScore {
	out := make([]SkillScore, 0, len(s))
	for _, d := range Dimensions {
		if v, ok := s[d]; ok {
			out = append(out, SkillScore{Dimension: d, Value: v})
		}
	}
	return out
}

// Validate checks that every key is a known dimension and every value is
// a finite number within [0,100].
func (s Scores) Validate() error {
	for d, v := range s {
		if !d.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, d)
		}
		if math.IsNaN(v) || v < minScore || v > maxScore {
			return fmt.Errorf("score %s=%v out of range [0,100]", d, v)
		}
	}
	return nil
}

const (
	minScore = 0
	maxScore = 100
)

// clamp bounds v to [0,100]. NaN maps to 0.
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return minScore
	}
	return math.Max(minScore, math.Min(maxScore, v))
}
