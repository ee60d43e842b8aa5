package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when a session cannot move to a status.
var ErrInvalidTransition = errors.New("invalid session transition")

// Status is the lifecycle state of an asynchronous analysis.
type Status string

// Session statuses.
const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var transitions = map[Status][]Status{ //nolint:gochecknoglobals // state table
	StatusQueued:     {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// Session tracks an analysis from upload to completion.
type Session struct {
	ID         string    `json:"sessionId"`
	OwnerID    string    `json:"userId"`
	VideoURL   string    `json:"videoUrl"`
	Status     Status    `json:"status"`
	AnalysisID string    `json:"analysisId,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewSession creates a queued session.
func NewSession(owner, videoURL string, now time.Time) Session {
	now = now.UTC()
	return Session{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		VideoURL:  videoURL,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the session to status to.
func (s *Session) Transition(to Status, now time.Time) error {
	for _, allowed := range transitions[s.Status] {
		if allowed == to {
			s.Status = to
			s.UpdatedAt = now.UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
}

// Complete marks the session completed with the given analysis.
func (s *Session) Complete(analysisID string, now time.Time) error {
	if err := s.Transition(StatusCompleted, now); err != nil {
		return err
	}
	s.AnalysisID = analysisID
	return nil
}

// Fail marks the session failed with cause.
func (s *Session) Fail(cause error, now time.Time) error {
	if err := s.Transition(StatusFailed, now); err != nil {
		return err
	}
	if cause != nil {
		s.Error = cause.Error()
	}
	return nil
}
