package scoring

import "github.com/okian/commskill/internal/domain/annotations"

// GazeEstimator decides whether a face detection is looking at the camera.
type GazeEstimator interface {
	LookingAtCamera(d annotations.Detection) bool
}

// GazeFunc adapts a function to GazeEstimator.
type GazeFunc func(d annotations.Detection) bool

// LookingAtCamera implements GazeEstimator.
func (f GazeFunc) LookingAtCamera(d annotations.Detection) bool { return f(d) }

// AlwaysLooking treats every detected face as looking at the camera.
type AlwaysLooking struct{}

// LookingAtCamera implements GazeEstimator.
func (AlwaysLooking) LookingAtCamera(annotations.Detection) bool { return true }

// MinConfidenceGaze accepts faces detected with at least the given confidence.
type MinConfidenceGaze float64

// LookingAtCamera implements GazeEstimator.
func (m MinConfidenceGaze) LookingAtCamera(d annotations.Detection) bool {
	return d.Confidence >= float64(m)
}
