// Package types contains shapes shared by the service and the HTTP layer.
package types

import (
	"io"

	"github.com/okian/commskill/internal/domain/model"
)

// Upload describes a video submitted by a user.
type Upload struct {
	Filename string
	Body     io.Reader
	// Size is the byte length, or -1 when unknown.
	Size int64
}

// Empty reports whether there is nothing to upload.
func (u Upload) Empty() bool {
	return u.Body == nil || u.Size == 0
}

// StartResult is the outcome of queuing an analysis.
type StartResult struct {
	Session model.Session `json:"session"`
	// Duplicate is set when the owner already submitted the same video;
	// Session is then the earlier session.
	Duplicate bool `json:"duplicate"`
}

// ConnectionReport describes the reachable backing services.
type ConnectionReport struct {
	Bucket  string `json:"bucket"`
	Storage string `json:"storage"`
	Store   string `json:"store"`
}
