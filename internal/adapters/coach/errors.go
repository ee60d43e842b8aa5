package coach

import "errors"

// Sentinel errors for coach conversations.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrNoCompletion         = errors.New("model returned no completion")
	ErrBadInsights          = errors.New("model returned malformed insights")

	// ErrUpstream marks a failed call to the language model.
	ErrUpstream = errors.New("coach model failed")
)
