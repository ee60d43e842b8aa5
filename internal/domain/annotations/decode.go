package annotations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Decode reads a JSON RawAnnotations document from r. Only a document that
// is not valid JSON, or not an object, fails; entries of the wrong shape
// are dropped and recorded in RawAnnotations.Dropped.
func Decode(r io.Reader) (*RawAnnotations, error) {
	var raw RawAnnotations
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return &raw, nil
}

type rawDocument struct {
	Face   json.RawMessage `json:"faceDetectionAnnotations"`
	Pose   json.RawMessage `json:"poseAnnotations"`
	Person json.RawMessage `json:"personDetectionAnnotations"`
	Speech json.RawMessage `json:"speechTranscriptions"`
}

// UnmarshalJSON implements json.Unmarshaler. Each collection is decoded
// entry by entry so one bad track or transcription does not cost the
// others.
func (r *RawAnnotations) UnmarshalJSON(data []byte) error {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*r = RawAnnotations{}
	var clean bool
	if r.FaceDetection, clean = decodeEach[RawTrack](doc.Face); !clean {
		r.drop(KindFace)
	}
	if r.Pose, clean = decodeEach[RawTrack](doc.Pose); !clean {
		r.drop(KindPose)
	}
	if r.PersonDetection, clean = decodeEach[RawTrack](doc.Person); !clean {
		r.drop(KindPerson)
	}
	if r.SpeechTranscriptions, clean = decodeEach[RawTranscription](doc.Speech); !clean {
		r.drop(KindSpeech)
	}
	return nil
}

// decodeEach decodes a JSON array element by element. clean is false when
// the value is not an array or any element failed to decode.
func decodeEach[T any](data json.RawMessage) (out []T, clean bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, true
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}

	clean = true
	out = make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			clean = false
			continue
		}
		out = append(out, v)
	}
	return out, clean
}
