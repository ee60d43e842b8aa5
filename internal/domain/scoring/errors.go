package scoring

import "errors"

// Sentinel errors for scoring configuration.
var (
	ErrUnknownPolicy    = errors.New("unknown engagement policy")
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrInvalidWeights   = errors.New("engagement weights must sum to 1")
	ErrInvalidPaceBand  = errors.New("ideal pace band must satisfy 0 < min <= max")
	ErrInvalidFallback  = errors.New("fallback scores must be within [0,100]")
)
