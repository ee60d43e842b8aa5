package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryMediaStore keeps media in memory. Used for local mode and tests.
type MemoryMediaStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string][]byte
}

// NewMemoryMediaStore creates an empty store for bucket.
func NewMemoryMediaStore(bucket string) *MemoryMediaStore {
	return &MemoryMediaStore{bucket: bucket, objects: make(map[string][]byte)}
}

// Upload implements MediaStore.
func (m *MemoryMediaStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()
	return Locator(SchemeMemory, m.bucket, key), nil
}

// Delete implements MediaStore.
func (m *MemoryMediaStore) Delete(_ context.Context, locator string) error {
	key, err := m.key(locator)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	delete(m.objects, key)
	return nil
}

// AccessURL implements MediaStore; the locator itself is returned.
func (m *MemoryMediaStore) AccessURL(_ context.Context, locator string, _ time.Duration) (string, error) {
	if _, err := m.key(locator); err != nil {
		return "", err
	}
	return locator, nil
}

// Ping implements MediaStore.
func (m *MemoryMediaStore) Ping(context.Context) (string, error) {
	return m.bucket, nil
}

// Object returns the stored bytes for key.
func (m *MemoryMediaStore) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	return b, ok
}

// Len returns the number of stored objects.
func (m *MemoryMediaStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryMediaStore) key(locator string) (string, error) {
	scheme, bucket, key, err := ParseLocator(locator)
	if err != nil {
		return "", err
	}
	if scheme != SchemeMemory || bucket != m.bucket {
		return "", fmt.Errorf("%w: %q not in %s", ErrBadLocator, locator, m.bucket)
	}
	return key, nil
}
