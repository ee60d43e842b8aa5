package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrBackpressure     = errors.New("analysis queue is full")
	ErrEmptyVideo       = errors.New("video is empty")
	ErrMissingVideoURL  = errors.New("video url is required")
	ErrNoAnnotator      = errors.New("no annotation provider configured")
	ErrCoachUnavailable = errors.New("coach is not configured")
	ErrInvalidScores    = errors.New("invalid scores")
)
