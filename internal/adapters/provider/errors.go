package provider

import "errors"

// Sentinel errors for upstream annotation calls.
var (
	// ErrUpstream marks any failure of an external annotation service.
	ErrUpstream = errors.New("annotation provider failed")
	// ErrRejected marks a request the provider refused (4xx); it is not retried.
	ErrRejected = errors.New("annotation request rejected")
)
