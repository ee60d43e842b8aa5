package storage

import "errors"

// Sentinel errors for media storage.
var (
	ErrBadLocator = errors.New("invalid media locator")
	ErrNotFound   = errors.New("media not found")
)
