// Package dedupe detects repeated analysis requests.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper maps a request key to the session that first claimed it.
type Deduper interface {
	// Claim records key -> value unless key is already held. When it is,
	// Claim returns the existing value and dup=true.
	Claim(ctx context.Context, key, value string) (existing string, dup bool, err error)

	// Release forgets key so the request can be retried, for example after
	// the claiming session failed.
	Release(ctx context.Context, key string) error

	// Replace moves key from old to value. It succeeds when key holds old
	// or nothing, and reports false when another value has taken it.
	Replace(ctx context.Context, key, old, value string) (bool, error)
}

type entry struct {
	key   string
	value string
}

// InMemoryDeduper is a bounded Deduper that evicts the oldest claim when full.
type InMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is newest
	maxSize int        // 0 or negative means unbounded
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) *InMemoryDeduper {
	d := &InMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*list.Element)
	d.order = list.New()

	return d
}

// Claim implements Deduper.
func (d *InMemoryDeduper) Claim(_ context.Context, key, value string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(*entry).value, true, nil
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushFront(&entry{key: key, value: value})
	return value, false, nil
}

// Release implements Deduper.
func (d *InMemoryDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
	return nil
}

// Replace implements Deduper.
func (d *InMemoryDeduper) Replace(_ context.Context, key, old, value string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		e := el.Value.(*entry)
		if e.value != old {
			return false, nil
		}
		e.value = value
		d.order.MoveToFront(el)
		return true, nil
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushFront(&entry{key: key, value: value})
	return true, nil
}

// evictOldest must be called with d.mu held.
func (d *InMemoryDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(*entry).key)
}

// Size returns the current number of claims held.
func (d *InMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
