package annotations

import "errors"

// Sentinel errors for annotation decoding.
var (
	ErrMalformed  = errors.New("malformed annotations")
	ErrBadSeconds = errors.New("invalid timestamp")
)
