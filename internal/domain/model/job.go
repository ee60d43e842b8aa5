package model

// Job is the queue payload for an asynchronous analysis.
type Job struct {
	SessionID string
	OwnerID   string
	VideoURL  string
	// Digest is the content digest used for duplicate detection.
	Digest string
}
