// Package annotations models the raw output of a video/speech analysis
// provider and flattens it into the view the scorers consume.
package annotations

import "slices"

// Kind identifies a detector.
type Kind string

// Detector kinds.
const (
	KindFace   Kind = "face"
	KindPose   Kind = "pose"
	KindPerson Kind = "person"
	KindSpeech Kind = "speech"
)

// RawFrame is one detector observation.
// A nil Detected means the detector fired.
type RawFrame struct {
	TimeOffset Seconds `json:"timeOffset"`
	Confidence float64 `json:"confidence"`
	Detected   *bool   `json:"detected,omitempty"`
}

// RawTrack is a run of frames for one detected subject.
type RawTrack struct {
	Frames []RawFrame `json:"frames"`
}

// RawWord is one transcribed word.
type RawWord struct {
	Word       string  `json:"word"`
	StartTime  Seconds `json:"startTime"`
	EndTime    Seconds `json:"endTime"`
	Confidence float64 `json:"confidence"`
}

// RawAlternative is one transcription hypothesis.
type RawAlternative struct {
	Transcript string    `json:"transcript,omitempty"`
	Confidence float64   `json:"confidence"`
	Words      []RawWord `json:"words"`
}

// RawTranscription groups the alternatives for one speech segment.
type RawTranscription struct {
	Alternatives []RawAlternative `json:"alternatives"`
	LanguageCode string           `json:"languageCode,omitempty"`
}

// RawAnnotations is the provider payload. Any collection may be absent.
type RawAnnotations struct {
	FaceDetection        []RawTrack         `json:"faceDetectionAnnotations,omitempty"`
	Pose                 []RawTrack         `json:"poseAnnotations,omitempty"`
	PersonDetection      []RawTrack         `json:"personDetectionAnnotations,omitempty"`
	SpeechTranscriptions []RawTranscription `json:"speechTranscriptions,omitempty"`
	// Dropped lists the collections that held entries which failed to
	// decode. Those entries are not in the slices above.
	Dropped []Kind `json:"-"`
}

// Partial reports whether entries of collection k were dropped.
func (r *RawAnnotations) Partial(k Kind) bool {
	return r != nil && slices.Contains(r.Dropped, k)
}

func (r *RawAnnotations) drop(k Kind) {
	if !slices.Contains(r.Dropped, k) {
		r.Dropped = append(r.Dropped, k)
	}
}

// WordCount returns the number of transcribed words across all alternatives.
func (r *RawAnnotations) WordCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, t := range r.SpeechTranscriptions {
		for _, a := range t.Alternatives {
			n += len(a.Words)
		}
	}
	return n
}

// Detection is a fired detector frame.
type Detection struct {
	Confidence float64
	// Frame is the zero-based position of the source frame across all
	// tracks of its detector, skipped frames included.
	Frame      int
	TimeOffset Seconds
}

// Word is a transcribed word in normalized form.
type Word struct {
	Text       string
	Start      float64
	End        float64
	HasStart   bool
	HasEnd     bool
	Confidence float64
}

// Alternative is an ordered list of words.
type Alternative struct {
	Words []Word
}

// Span returns lastWord.End - firstWord.Start and whether both ends are known.
func (a Alternative) Span() (float64, bool) {
	if len(a.Words) == 0 {
		return 0, false
	}
	first, last := a.Words[0], a.Words[len(a.Words)-1]
	if !first.HasStart || !last.HasEnd {
		return 0, false
	}
	return last.End - first.Start, true
}

// Normalized is the flattened view of RawAnnotations.
type Normalized struct {
	Face   []Detection
	Pose   []Detection
	Person []Detection
	Speech []Alternative
	// Dropped is copied from RawAnnotations.Dropped.
	Dropped []Kind
}

// Partial reports whether the source of collection k lost entries while
// decoding.
func (n Normalized) Partial(k Kind) bool {
	return slices.Contains(n.Dropped, k)
}

// Detections returns the detections of the given kind.
func (n Normalized) Detections(k Kind) []Detection {
	switch k {
	case KindFace:
		return n.Face
	case KindPose:
		return n.Pose
	case KindPerson:
		return n.Person
	default:
		return nil
	}
}

// Words returns every word of every alternative, in order.
func (n Normalized) Words() []Word {
	var out []Word
	for _, a := range n.Speech {
		out = append(out, a.Words...)
	}
	return out
}

// Normalize flattens raw into a Normalized view. It never fails; a nil
// input yields empty slices.
func Normalize(raw *RawAnnotations) Normalized {
	n := Normalized{
		Face:   []Detection{},
		Pose:   []Detection{},
		Person: []Detection{},
		Speech: []Alternative{},
	}
	if raw == nil {
		return n
	}

	n.Dropped = slices.Clone(raw.Dropped)
	n.Face = flatten(raw.FaceDetection)
	n.Pose = flatten(raw.Pose)
	n.Person = flatten(raw.PersonDetection)

	for _, t := range raw.SpeechTranscriptions {
		for _, a := range t.Alternatives {
			alt := Alternative{Words: make([]Word, 0, len(a.Words))}
			for _, w := range a.Words {
				alt.Words = append(alt.Words, Word{
					Text:       w.Word,
					Start:      w.StartTime.Value,
					End:        w.EndTime.Value,
					HasStart:   w.StartTime.Valid,
					HasEnd:     w.EndTime.Valid,
					Confidence: w.Confidence,
				})
			}
			n.Speech = append(n.Speech, alt)
		}
	}
	return n
}

func flatten(tracks []RawTrack) []Detection {
	out := []Detection{}
	idx := 0
	for _, t := range tracks {
		for _, f := range t.Frames {
			if f.Detected == nil || *f.Detected {
				out = append(out, Detection{
					Confidence: f.Confidence,
					Frame:      idx,
					TimeOffset: f.TimeOffset,
				})
			}
			idx++
		}
	}
	return out
}

// Merge combines the detector output of video with the speech output of
// speech. Speech replaces the video's transcriptions only when it carries
// at least one word. Neither input is modified.
func Merge(video, speech *RawAnnotations) *RawAnnotations {
	out := &RawAnnotations{}
	if video != nil {
		*out = *video
		out.Dropped = slices.Clone(video.Dropped)
	}
	if speech.WordCount() > 0 || speech.Partial(KindSpeech) {
		out.SpeechTranscriptions = speech.SpeechTranscriptions
		out.Dropped = slices.DeleteFunc(out.Dropped, func(k Kind) bool { return k == KindSpeech })
		if speech.Partial(KindSpeech) {
			out.drop(KindSpeech)
		}
	}
	return out
}
