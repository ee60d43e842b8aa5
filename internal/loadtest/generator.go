package loadtest

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/pkg/logger"
)

const randomFloatDivisor = 1000000

// Speaker profiles. Each one exercises a different mix of detectors.
const (
	ProfileConfident = "confident"
	ProfileNervous   = "nervous"
	ProfileSilent    = "silent"
	ProfileAudioOnly = "audio-only"
	ProfileEmpty     = "empty"
	ProfileFlaky     = "flaky"
)

// Profiles lists every generated profile.
var Profiles = []string{
	ProfileConfident,
	ProfileNervous,
	ProfileSilent,
	ProfileAudioOnly,
	ProfileEmpty,
	ProfileFlaky,
}

type band struct{ min, span float64 }

type profileShape struct {
	face, pose, person band
	frames             int
	words              int
	seconds            float64
	speech             bool
	video              bool
	skipEvery          int
}

var profileShapes = map[string]profileShape{
	ProfileConfident: {
		face: band{0.85, 0.14}, pose: band{0.80, 0.15}, person: band{0.70, 0.20},
		frames: 30, words: 140, seconds: 60, speech: true, video: true,
	},
	ProfileNervous: {
		face: band{0.30, 0.30}, pose: band{0.40, 0.20}, person: band{0.20, 0.30},
		frames: 20, words: 95, seconds: 30, speech: true, video: true,
	},
	ProfileSilent: {
		face: band{0.50, 0.40}, pose: band{0.50, 0.40}, person: band{0.50, 0.40},
		frames: 15, video: true,
	},
	ProfileAudioOnly: {
		words: 60, seconds: 40, speech: true,
	},
	ProfileEmpty: {},
	ProfileFlaky: {
		face: band{0.10, 0.89}, pose: band{0.10, 0.89}, person: band{0.10, 0.89},
		frames: 25, words: 30, seconds: 10, speech: true, video: true, skipEvery: 3,
	},
}

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generatePayloads creates cfg.Payloads payloads spread over cfg.Users users.
func generatePayloads(ctx context.Context, cfg *Config, stats *Stats) ([]Payload, error) {
	cfg.Logger.Info(ctx, "generating payloads",
		logger.Int("payloads", cfg.Payloads), logger.Int("users", cfg.Users))

	users := make([]string, cfg.Users)
	for i := range users {
		users[i] = "load-" + uuid.New().String()
	}

	payloads := make([]Payload, cfg.Payloads)
	for i := range payloads {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during payload generation: %w", err)
		}
		profile := Profiles[randomIndex(len(Profiles))]
		payloads[i] = Payload{
			Index:       i,
			UserID:      users[i%len(users)],
			Profile:     profile,
			Annotations: GenerateAnnotations(profile),
		}
	}

	stats.PayloadsGenerated = len(payloads)
	cfg.Logger.Info(ctx, "generated payloads", logger.Int("count", len(payloads)))
	return payloads, nil
}

// GenerateAnnotations builds a random annotation payload for profile. An
// unknown profile yields an empty payload.
func GenerateAnnotations(profile string) *annotations.RawAnnotations {
	shape := profileShapes[profile]
	raw := &annotations.RawAnnotations{}
	if shape.video {
		raw.FaceDetection = generateTracks(shape.face, shape.frames, shape.skipEvery)
		raw.Pose = generateTracks(shape.pose, shape.frames, shape.skipEvery)
		raw.PersonDetection = generateTracks(shape.person, shape.frames, shape.skipEvery)
	}
	if shape.speech {
		raw.SpeechTranscriptions = []annotations.RawTranscription{{
			LanguageCode: "en-US",
			Alternatives: []annotations.RawAlternative{generateAlternative(shape.words, shape.seconds)},
		}}
	}
	return raw
}

// generateTracks splits frames over two tracks. Every skipEvery-th frame
// reports detected=false when skipEvery is positive.
func generateTracks(b band, frames, skipEvery int) []annotations.RawTrack {
	tracks := make([]annotations.RawTrack, 2)
	for i := 0; i < frames; i++ {
		f := annotations.RawFrame{
			TimeOffset: annotations.At(float64(i) * 0.5),
			Confidence: b.min + getRandomFloat()*b.span,
		}
		if skipEvery > 0 && i%skipEvery == 0 {
			detected := false
			f.Detected = &detected
		}
		t := &tracks[i%len(tracks)]
		t.Frames = append(t.Frames, f)
	}
	return tracks
}

func generateAlternative(words int, seconds float64) annotations.RawAlternative {
	alt := annotations.RawAlternative{Confidence: 0.7 + getRandomFloat()*0.29}
	step := seconds / float64(words)
	for i := 0; i < words; i++ {
		start := float64(i) * step
		alt.Words = append(alt.Words, annotations.RawWord{
			Word:       "word" + strconv.Itoa(i),
			StartTime:  annotations.At(start),
			EndTime:    annotations.At(start + step*0.8),
			Confidence: 0.6 + getRandomFloat()*0.39,
		})
	}
	return alt
}
