// Package repository persists analysis records and session state.
package repository

import (
	"context"

	"github.com/okian/commskill/internal/domain/model"
)

// Store provides read/write access to analysis records. Every read is
// scoped to an owner; records of other owners behave as missing.
type Store interface {
	// Save persists a new record.
	Save(ctx context.Context, rec model.AnalysisRecord) error

	// Get returns the owner's record with the given id.
	// Returns ErrNotFound if it does not exist or belongs to someone else.
	Get(ctx context.Context, owner, id string) (model.AnalysisRecord, error)

	// List returns up to limit of the owner's records, newest first.
	List(ctx context.Context, owner string, limit int) ([]model.AnalysisRecord, error)

	// Delete removes the owner's record and returns it.
	Delete(ctx context.Context, owner, id string) (model.AnalysisRecord, error)

	// Count returns the number of stored records across all owners.
	Count(ctx context.Context) int
}

// SessionStore tracks asynchronous analysis sessions.
type SessionStore interface {
	Create(ctx context.Context, s model.Session) error
	// Get returns ErrNotFound if the session is missing or not the owner's.
	Get(ctx context.Context, owner, id string) (model.Session, error)
	// Update applies fn to the stored session atomically.
	Update(ctx context.Context, id string, fn func(*model.Session) error) (model.Session, error)
}

func validate(rec model.AnalysisRecord) error {
	switch {
	case rec.ID == "":
		return ErrInvalidRecord
	case rec.OwnerID == "":
		return ErrInvalidRecord
	default:
		return nil
	}
}
