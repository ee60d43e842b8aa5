package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidLimit      = errors.New("invalid history limit")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
	ErrInvalidRecord     = errors.New("invalid record")
)
