package scoring_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/okian/commskill/internal/domain/annotations"
	scoring "github.com/okian/commskill/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func track(confs ...float64) []annotations.RawTrack {
	frames := make([]annotations.RawFrame, len(confs))
	for i, c := range confs {
		frames[i] = annotations.RawFrame{TimeOffset: annotations.At(float64(i)), Confidence: c}
	}
	return []annotations.RawTrack{{Frames: frames}}
}

// speech builds one alternative with n words evenly spread over seconds.
func speech(n int, seconds, conf float64) []annotations.RawTranscription {
	words := make([]annotations.RawWord, n)
	step := seconds / float64(n)
	for i := range words {
		words[i] = annotations.RawWord{
			Word:       fmt.Sprintf("w%d", i),
			StartTime:  annotations.At(float64(i) * step),
			EndTime:    annotations.At(float64(i+1) * step),
			Confidence: conf,
		}
	}
	return []annotations.RawTranscription{{Alternatives: []annotations.RawAlternative{{Words: words}}}}
}

func TestEmptyAnnotationsFallbacks(t *testing.T) {
	Convey("Given empty annotations", t, func() {
		n := annotations.Normalize(&annotations.RawAnnotations{})

		Convey("Then each scorer returns its fallback", func() {
			So(scoring.EyeContact(n), ShouldEqual, 85.0)
			So(scoring.Posture(n), ShouldEqual, 80.0)
			So(scoring.Gestures(n), ShouldEqual, 75.0)
			So(scoring.VoiceClarity(n), ShouldEqual, 90.0)
			So(scoring.Pace(n), ShouldEqual, 85.0)
		})

		Convey("When scoring through the Scorer", func() {
			s, err := scoring.NewScorer()
			So(err, ShouldBeNil)
			res, err := s.Score(context.Background(), nil)
			So(err, ShouldBeNil)

			Convey("Then every component is reported as a fallback", func() {
				So(res.Fallbacks, ShouldResemble, scoring.Components)
				So(res.Words, ShouldEqual, 0)
				So(res.WPM, ShouldEqual, 0.0)
			})
		})
	})
}

func TestPaceScore(t *testing.T) {
	Convey("Given speaking rates", t, func() {
		cases := map[float64]float64{
			0:    0,
			60:   50,
			120:  100,
			140:  100,
			160:  100,
			240:  50,
			320:  0,
			1000: 0,
			-5:   0,
		}
		for wpm, want := range cases {
			So(scoring.PaceScore(wpm), ShouldAlmostEqual, want)
		}
		So(scoring.PaceScore(math.NaN()), ShouldEqual, 0.0)
	})

	Convey("Given a custom ideal band", t, func() {
		cfg := scoring.DefaultConfig()
		cfg.IdealMinWPM, cfg.IdealMaxWPM = 100, 200
		So(cfg.PaceScore(50), ShouldAlmostEqual, 50)
		So(cfg.PaceScore(150), ShouldEqual, 100.0)
		So(cfg.PaceScore(300), ShouldAlmostEqual, 50)
	})

	Convey("Given words with no usable duration", t, func() {
		raw := &annotations.RawAnnotations{SpeechTranscriptions: []annotations.RawTranscription{{
			Alternatives: []annotations.RawAlternative{{Words: []annotations.RawWord{
				{Word: "a", StartTime: annotations.At(1), EndTime: annotations.At(1)},
			}}},
		}}}
		n := annotations.Normalize(raw)

		Convey("Then wpm is zero and the score is zero, not the fallback", func() {
			wpm, words := scoring.WordsPerMinute(n)
			So(wpm, ShouldEqual, 0.0)
			So(words, ShouldEqual, 0)
			So(scoring.Pace(n), ShouldEqual, 0.0)
		})
	})

	Convey("Given a mix of valid and degenerate alternatives", t, func() {
		raw := &annotations.RawAnnotations{SpeechTranscriptions: speech(10, 5, 0.9)}
		raw.SpeechTranscriptions = append(raw.SpeechTranscriptions, annotations.RawTranscription{
			Alternatives: []annotations.RawAlternative{{Words: []annotations.RawWord{
				{Word: "late", StartTime: annotations.At(9), EndTime: annotations.At(8)},
				{Word: "open"},
			}}},
		})
		n := annotations.Normalize(raw)

		Convey("Then the degenerate alternative adds neither words nor time", func() {
			wpm, words := scoring.WordsPerMinute(n)
			So(words, ShouldEqual, 10)
			So(wpm, ShouldAlmostEqual, 120)
		})
	})
}

func TestScoresStayInRange(t *testing.T) {
	Convey("Given out-of-range and non-finite input", t, func() {
		raw := &annotations.RawAnnotations{
			FaceDetection:        track(7, 3),
			Pose:                 track(-4),
			PersonDetection:      track(math.NaN()),
			SpeechTranscriptions: speech(400, 30, math.Inf(1)),
		}
		s, err := scoring.NewScorer()
		So(err, ShouldBeNil)
		res, err := s.Score(context.Background(), raw)
		So(err, ShouldBeNil)

		Convey("Then every score lies in [0,100]", func() {
			for _, d := range scoring.Dimensions {
				So(res.Scores[d], ShouldBeBetweenOrEqual, 0, 100)
			}
		})

		Convey("Then non-finite results fall back", func() {
			So(res.Scores[scoring.DimGestures], ShouldEqual, 75.0)
			So(res.Scores[scoring.DimVoiceClarity], ShouldEqual, 90.0)
			So(res.Fallbacks, ShouldContain, scoring.DimGestures)
			So(res.Fallbacks, ShouldContain, scoring.DimVoiceClarity)
		})

		Convey("Then finite extremes are clamped", func() {
			So(res.Scores[scoring.DimEyeContact], ShouldEqual, 100.0)
			So(res.Scores[scoring.DimPosture], ShouldEqual, 0.0)
			So(res.Scores[scoring.DimPace], ShouldEqual, 0.0)
		})
	})
}

func TestMonotonicConfidence(t *testing.T) {
	Convey("Given frame confidences doubled within [0,1]", t, func() {
		base := []float64{0.1, 0.2, 0.35, 0.5}
		doubled := make([]float64, len(base))
		for i, c := range base {
			doubled[i] = c * 2
		}
		lo := annotations.Normalize(&annotations.RawAnnotations{FaceDetection: track(base...), Pose: track(base...), PersonDetection: track(base...)})
		hi := annotations.Normalize(&annotations.RawAnnotations{FaceDetection: track(doubled...), Pose: track(doubled...), PersonDetection: track(doubled...)})

		Convey("Then no confidence-based score decreases", func() {
			So(scoring.EyeContact(hi), ShouldBeGreaterThanOrEqualTo, scoring.EyeContact(lo))
			So(scoring.Posture(hi), ShouldBeGreaterThanOrEqualTo, scoring.Posture(lo))
			So(scoring.Gestures(hi), ShouldBeGreaterThanOrEqualTo, scoring.Gestures(lo))
		})
	})
}

func TestEngagement(t *testing.T) {
	all := func(v float64) scoring.Scores {
		s := scoring.Scores{}
		for _, d := range scoring.Components {
			s[d] = v
		}
		return s
	}

	Convey("Given the weighted policy", t, func() {
		So(scoring.Engagement(all(100), scoring.PolicyWeighted, scoring.DefaultWeights()), ShouldAlmostEqual, 100)
		So(scoring.Engagement(all(0), scoring.PolicyWeighted, nil), ShouldEqual, 0.0)

		Convey("Then components contribute by weight", func() {
			in := scoring.Scores{
				scoring.DimEyeContact: 90, scoring.DimPosture: 80, scoring.DimGestures: 75,
				scoring.DimVoiceClarity: 95, scoring.DimPace: 100,
			}
			// .25*90 + .15*80 + .20*75 + .25*95 + .15*100
			So(scoring.Engagement(in, scoring.PolicyWeighted, nil), ShouldAlmostEqual, 88.25)
		})
	})

	Convey("Given the simple policy", t, func() {
		in := scoring.Scores{scoring.DimEyeContact: 90, scoring.DimGestures: 75, scoring.DimPosture: 80, scoring.DimPace: 0}
		So(scoring.Engagement(in, scoring.PolicySimple, nil), ShouldAlmostEqual, 245.0/3)
		So(scoring.Engagement(all(100), scoring.PolicySimple, nil), ShouldAlmostEqual, 100)
	})

	Convey("Given an unknown policy", t, func() {
		_, err := scoring.ParsePolicy("median")
		So(errors.Is(err, scoring.ErrUnknownPolicy), ShouldBeTrue)

		p, err := scoring.ParsePolicy(" Simple ")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, scoring.PolicySimple)

		_, err = scoring.NewScorer(scoring.WithPolicy("median"))
		So(errors.Is(err, scoring.ErrUnknownPolicy), ShouldBeTrue)
	})
}

func TestEndToEnd(t *testing.T) {
	Convey("Given one face frame, one pose frame and ten words over five seconds", t, func() {
		raw := &annotations.RawAnnotations{
			FaceDetection:        track(0.9),
			Pose:                 track(0.8),
			SpeechTranscriptions: speech(10, 5, 0.95),
		}
		s, err := scoring.NewScorer()
		So(err, ShouldBeNil)

		res, err := s.Score(context.Background(), raw)
		So(err, ShouldBeNil)

		Convey("Then the scores match the documented scenario", func() {
			So(res.Scores[scoring.DimEyeContact], ShouldAlmostEqual, 90)
			So(res.Scores[scoring.DimPosture], ShouldAlmostEqual, 80)
			So(res.WPM, ShouldAlmostEqual, 120)
			So(res.Words, ShouldEqual, 10)
			So(res.Scores[scoring.DimPace], ShouldAlmostEqual, 100)
			So(res.Scores[scoring.DimVoiceClarity], ShouldAlmostEqual, 95)
			So(res.Scores[scoring.DimGestures], ShouldEqual, 75.0)
			So(res.Fallbacks, ShouldResemble, []scoring.Dimension{scoring.DimGestures})
			So(res.Scores[scoring.DimEngagement], ShouldAlmostEqual, 88.25)
		})

		Convey("Then scoring twice yields identical output", func() {
			again, err := s.Score(context.Background(), raw)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, res)
		})

		Convey("Then the simple policy averages the presence scores", func() {
			simple, err := scoring.NewScorer(scoring.WithPolicy(scoring.PolicySimple))
			So(err, ShouldBeNil)
			r, err := simple.Score(context.Background(), raw)
			So(err, ShouldBeNil)
			So(r.Scores[scoring.DimEngagement], ShouldAlmostEqual, 245.0/3)
		})
	})
}

func TestScorerOptions(t *testing.T) {
	Convey("Given a gaze estimator that rejects weak faces", t, func() {
		raw := &annotations.RawAnnotations{FaceDetection: track(0.9, 0.3)}
		s, err := scoring.NewScorer(scoring.WithGazeEstimator(scoring.MinConfidenceGaze(0.5)))
		So(err, ShouldBeNil)
		res, err := s.Score(context.Background(), raw)
		So(err, ShouldBeNil)

		Convey("Then rejected frames still count in the denominator", func() {
			So(res.Scores[scoring.DimEyeContact], ShouldAlmostEqual, 45)
		})
	})

	Convey("Given a gaze estimator that panics", t, func() {
		boom := scoring.GazeFunc(func(annotations.Detection) bool { panic("boom") })
		s, err := scoring.NewScorer(scoring.WithGazeEstimator(boom))
		So(err, ShouldBeNil)
		res, err := s.Score(context.Background(), &annotations.RawAnnotations{FaceDetection: track(0.9)})

		Convey("Then eye contact recovers with its fallback", func() {
			So(err, ShouldBeNil)
			So(res.Scores[scoring.DimEyeContact], ShouldEqual, 85.0)
			So(res.Fallbacks, ShouldContain, scoring.DimEyeContact)
		})
	})

	Convey("Given annotations with a face block that failed to decode", t, func() {
		doc := `{"faceDetectionAnnotations":[{"frames":[{"confidence":"0.9"}]}],
		  "speechTranscriptions":[{"alternatives":[{"words":[
		    {"word":"a","startTime":0,"endTime":0.5,"confidence":0.8},
		    {"word":"b","startTime":0.5,"endTime":1,"confidence":0.6}]}]}]}`
		raw, err := annotations.Decode(strings.NewReader(doc))
		So(err, ShouldBeNil)

		s, err := scoring.NewScorer()
		So(err, ShouldBeNil)
		res, err := s.Score(context.Background(), raw)
		So(err, ShouldBeNil)

		Convey("Then eye contact falls back", func() {
			So(res.Scores[scoring.DimEyeContact], ShouldEqual, 85.0)
			So(res.Fallbacks, ShouldContain, scoring.DimEyeContact)
		})

		Convey("Then speech dimensions are still computed", func() {
			So(res.Scores[scoring.DimVoiceClarity], ShouldAlmostEqual, 70)
			So(res.Scores[scoring.DimPace], ShouldEqual, 100.0)
			So(res.Fallbacks, ShouldNotContain, scoring.DimVoiceClarity)
			So(res.Fallbacks, ShouldNotContain, scoring.DimPace)
			So(res.Words, ShouldEqual, 2)
		})
	})

	Convey("Given speech that was only partly decoded", t, func() {
		raw := &annotations.RawAnnotations{
			SpeechTranscriptions: speech(10, 5, 1),
			Dropped:              []annotations.Kind{annotations.KindSpeech},
		}
		s, err := scoring.NewScorer()
		So(err, ShouldBeNil)
		res, err := s.Score(context.Background(), raw)
		So(err, ShouldBeNil)

		Convey("Then both speech dimensions use their fallbacks", func() {
			So(res.Scores[scoring.DimVoiceClarity], ShouldEqual, 90.0)
			So(res.Scores[scoring.DimPace], ShouldEqual, 85.0)
		})
	})

	Convey("Given custom fallbacks and pace band", t, func() {
		s, err := scoring.NewScorer(
			scoring.WithFallback(scoring.DimPace, 50),
			scoring.WithIdealPace(100, 110),
		)
		So(err, ShouldBeNil)

		res, err := s.Score(context.Background(), nil)
		So(err, ShouldBeNil)
		So(res.Scores[scoring.DimPace], ShouldEqual, 50.0)

		res, err = s.Score(context.Background(), &annotations.RawAnnotations{SpeechTranscriptions: speech(10, 5, 1)})
		So(err, ShouldBeNil)
		So(res.Scores[scoring.DimPace], ShouldAlmostEqual, (1-10.0/110)*100)
	})

	Convey("Given invalid configuration", t, func() {
		_, err := scoring.NewScorer(scoring.WithWeights(scoring.Weights{scoring.DimPace: 0.5}))
		So(errors.Is(err, scoring.ErrInvalidWeights), ShouldBeTrue)

		_, err = scoring.NewScorer(scoring.WithIdealPace(160, 120))
		So(errors.Is(err, scoring.ErrInvalidPaceBand), ShouldBeTrue)

		_, err = scoring.NewScorer(scoring.WithFallback(scoring.DimPosture, 101))
		So(errors.Is(err, scoring.ErrInvalidFallback), ShouldBeTrue)
	})

	Convey("Given a cancelled context", t, func() {
		s, err := scoring.NewScorer()
		So(err, ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = s.Score(ctx, nil)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestScoresValidate(t *testing.T) {
	Convey("Given client-supplied scores", t, func() {
		So(scoring.Scores{scoring.DimPace: 50}.Validate(), ShouldBeNil)
		So(scoring.Scores{scoring.DimPace: 101}.Validate(), ShouldNotBeNil)
		So(scoring.Scores{"charisma": 50}.Validate(), ShouldNotBeNil)

		d, err := scoring.ParseDimension("voiceClarity")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, scoring.DimVoiceClarity)

		list := scoring.Scores{scoring.DimEngagement: 1, scoring.DimEyeContact: 2}.List()
		So(list, ShouldResemble, []scoring.SkillScore{
			{Dimension: scoring.DimEyeContact, Value: 2},
			{Dimension: scoring.DimEngagement, Value: 1},
		})
	})
}
