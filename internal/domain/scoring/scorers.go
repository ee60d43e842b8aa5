package scoring

import (
	"math"

	"github.com/okian/commskill/internal/domain/annotations"
)

const (
	percent       = 100
	secondsPerMin = 60
	simpleDivisor = 3
)

// Outcome tells how a component score was produced.
type Outcome int

// Component outcomes.
const (
	// Computed means the score came from the annotations.
	Computed Outcome = iota
	// NoInput means the annotations held nothing for the dimension.
	NoInput
	// Recovered means the computation failed and the fallback was used.
	Recovered
)

// component computes one dimension; ok=false means there was nothing to
// compute from.
type component func(cfg Config, n annotations.Normalized) (value float64, ok bool)

var components = map[Dimension]component{ //nolint:gochecknoglobals // dispatch table
	DimEyeContact:   eyeContact,
	DimPosture:      presence(annotations.KindPose),
	DimGestures:     presence(annotations.KindPerson),
	DimVoiceClarity: voiceClarity,
	DimPace:         pace,
}

// sources names the annotation collection each component reads.
var sources = map[Dimension]annotations.Kind{ //nolint:gochecknoglobals // dispatch table
	DimEyeContact:   annotations.KindFace,
	DimPosture:      annotations.KindPose,
	DimGestures:     annotations.KindPerson,
	DimVoiceClarity: annotations.KindSpeech,
	DimPace:         annotations.KindSpeech,
}

// evaluate runs the component for d, converting panics, non-finite values,
// empty input and partially decoded input into the configured fallback.
// The result is in [0,100].
func evaluate(cfg Config, d Dimension, n annotations.Normalized) (value float64, out Outcome) {
	fb := cfg.fallback(d)
	defer func() {
		if r := recover(); r != nil {
			value, out = fb, Recovered
		}
	}()

	fn, ok := components[d]
	if !ok || n.Partial(sources[d]) {
		return fb, Recovered
	}
	v, ok := fn(cfg, n)
	switch {
	case !ok:
		return fb, NoInput
	case math.IsNaN(v) || math.IsInf(v, 0):
		return fb, Recovered
	default:
		return clamp(v), Computed
	}
}

func meanConfidence(ds []annotations.Detection, accept func(annotations.Detection) bool) (float64, bool) {
	if len(ds) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, d := range ds {
		if accept == nil || accept(d) {
			sum += d.Confidence
		}
	}
	return sum / float64(len(ds)) * percent, true
}

func eyeContact(cfg Config, n annotations.Normalized) (float64, bool) {
	gaze := cfg.Gaze
	if gaze == nil {
		gaze = AlwaysLooking{}
	}
	return meanConfidence(n.Face, gaze.LookingAtCamera)
}

func presence(k annotations.Kind) component {
	return func(_ Config, n annotations.Normalized) (float64, bool) {
		return meanConfidence(n.Detections(k), nil)
	}
}

func voiceClarity(_ Config, n annotations.Normalized) (float64, bool) {
	words := n.Words()
	if len(words) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words)) * percent, true
}

func pace(cfg Config, n annotations.Normalized) (float64, bool) {
	if len(n.Words()) == 0 {
		return 0, false
	}
	wpm, _ := WordsPerMinute(n)
	return paceScore(wpm, cfg.IdealMinWPM, cfg.IdealMaxWPM), true
}

// WordsPerMinute returns the speaking rate and the number of words it was
// computed from. Alternatives without a positive span are left out of both.
func WordsPerMinute(n annotations.Normalized) (wpm float64, words int) {
	var seconds float64
	for _, alt := range n.Speech {
		span, ok := alt.Span()
		if !ok || span <= 0 || math.IsNaN(span) {
			continue
		}
		seconds += span
		words += len(alt.Words)
	}
	if seconds <= 0 {
		return 0, words
	}
	return secondsPerMin * float64(words) / seconds, words
}

// PaceScore maps a speaking rate onto [0,100] using the default ideal band.
// The score is 100 inside the band, falls linearly to 0 at 0 wpm below it
// and to 0 at twice the upper bound above it.
func PaceScore(wpm float64) float64 {
	return paceScore(wpm, DefaultIdealMinWPM, DefaultIdealMaxWPM)
}

func paceScore(wpm, lo, hi float64) float64 {
	switch {
	case math.IsNaN(wpm):
		return minScore
	case wpm < lo:
		return clamp(wpm / lo * percent)
	case wpm > hi:
		return clamp((1 - (wpm-hi)/hi) * percent)
	default:
		return maxScore
	}
}

// EyeContact scores face detections with the default configuration.
func EyeContact(n annotations.Normalized) float64 {
	v, _ := evaluate(DefaultConfig(), DimEyeContact, n)
	return v
}

// Posture scores pose detections with the default configuration.
func Posture(n annotations.Normalized) float64 {
	v, _ := evaluate(DefaultConfig(), DimPosture, n)
	return v
}

// Gestures scores person detections with the default configuration.
func Gestures(n annotations.Normalized) float64 {
	v, _ := evaluate(DefaultConfig(), DimGestures, n)
	return v
}

// VoiceClarity scores word confidences with the default configuration.
func VoiceClarity(n annotations.Normalized) float64 {
	v, _ := evaluate(DefaultConfig(), DimVoiceClarity, n)
	return v
}

// Pace scores the speaking rate with the default configuration.
func Pace(n annotations.Normalized) float64 {
	v, _ := evaluate(DefaultConfig(), DimPace, n)
	return v
}

// Engagement combines component scores under the given policy. Missing
// components count as 0. Weights of the weighted policy are normalized by
// their sum; nil weights select DefaultWeights.
func Engagement(scores Scores, policy Policy, weights Weights) float64 {
	switch policy {
	case PolicySimple:
		return clamp((scores[DimEyeContact] + scores[DimGestures] + scores[DimPosture]) / simpleDivisor)
	case PolicyWeighted:
		if weights == nil {
			weights = DefaultWeights()
		}
		var sum, total float64
		for _, d := range Components {
			w := weights[d]
			sum += w * scores[d]
			total += w
		}
		if total <= 0 {
			return minScore
		}
		return clamp(sum / total)
	default:
		return minScore
	}
}
