package annotations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const nanosPerSecond = 1e9

// Seconds is an optional timestamp measured in fractional seconds.
//
// It decodes from a JSON number (1.5), a duration string ("1.5s" or "1.5"),
// or the protobuf duration object {"seconds": 1, "nanos": 500000000}.
// null or an absent field leaves Valid false.
type Seconds struct {
	Value float64
	Valid bool
}

// At returns a valid Seconds for v.
func At(v float64) Seconds { return Seconds{Value: v, Valid: true} }

type protoDuration struct {
	Seconds json.Number `json:"seconds"`
	Nanos   json.Number `json:"nanos"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = Seconds{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("%w: %w", ErrBadSeconds, err)
		}
		return s.parseString(str)
	case '{':
		var d protoDuration
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("%w: %w", ErrBadSeconds, err)
		}
		return s.fromProto(d)
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrBadSeconds, data)
		}
		*s = At(v)
		return nil
	}
}

func (s *Seconds) parseString(str string) error {
	str = strings.TrimSuffix(strings.TrimSpace(str), "s")
	if str == "" {
		return nil
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Errorf("%w: %q", ErrBadSeconds, str)
	}
	*s = At(v)
	return nil
}

// protobuf JSON encodes int64 seconds as a string, so both forms are accepted.
func (s *Seconds) fromProto(d protoDuration) error {
	var secs, nanos float64
	var err error
	if d.Seconds != "" {
		if secs, err = d.Seconds.Float64(); err != nil {
			return fmt.Errorf("%w: seconds %q", ErrBadSeconds, d.Seconds)
		}
	}
	if d.Nanos != "" {
		if nanos, err = d.Nanos.Float64(); err != nil {
			return fmt.Errorf("%w: nanos %q", ErrBadSeconds, d.Nanos)
		}
	}
	*s = At(secs + nanos/nanosPerSecond)
	return nil
}

// MarshalJSON implements json.Marshaler. Invalid values encode as null.
func (s Seconds) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(s.Value, 'f', -1, 64)), nil
}
