package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/commskill/internal/domain/model"
)

// MemorySessionStore is an in-memory SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

// NewMemorySessionStore creates an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]model.Session)}
}

// Create implements SessionStore.
func (s *MemorySessionStore) Create(_ context.Context, sess model.Session) error {
	if sess.ID == "" || sess.OwnerID == "" {
		return fmt.Errorf("%w: session id and owner required", ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("%w: duplicate session %s", ErrInvalidRecord, sess.ID)
	}
	s.sessions[sess.ID] = sess
	return nil
}

// Get implements SessionStore.
func (s *MemorySessionStore) Get(_ context.Context, owner, id string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.OwnerID != owner {
		return model.Session{}, ErrNotFound
	}
	return sess, nil
}

// Update implements SessionStore. The session is left unchanged if fn fails.
func (s *MemorySessionStore) Update(_ context.Context, id string, fn func(*model.Session) error) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	if err := fn(&sess); err != nil {
		return s.sessions[id], err
	}
	s.sessions[id] = sess
	return sess, nil
}
