// Package quota provides an in-memory bucket store.
package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// InMemoryBucketStore implements BucketStore in memory. It is the default
// store for single-process deployments and the substrate for tests; the
// SetHealthy knob simulates outages.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*BucketState
	healthy atomic.Bool
	now     func() time.Time
}

// NewInMemoryBucketStore constructs an in-memory store. A nil now defaults
// to time.Now.
func NewInMemoryBucketStore(now func() time.Time) *InMemoryBucketStore {
	if now == nil {
		now = time.Now
	}
	store := &InMemoryBucketStore{
		buckets: make(map[string]*BucketState),
		now:     now,
	}
	store.healthy.Store(true)
	return store
}

// SetHealthy updates the health flag.
func (s *InMemoryBucketStore) SetHealthy(v bool) {
	if s == nil {
		return
	}
	s.healthy.Store(v)
}

// Healthy reports store health.
func (s *InMemoryBucketStore) Healthy(ctx context.Context) bool {
	if s == nil {
		return false
	}
	return s.healthy.Load()
}

// Get returns a copy of the stored state.
func (s *InMemoryBucketStore) Get(ctx context.Context, key string) (*BucketState, bool, error) {
	if !s.healthy.Load() {
		return nil, false, Wrap(CodeStoreUnavailable, "in-memory store unhealthy", ErrStoreUnavailable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.buckets[key]
	if !ok {
		return nil, false, nil
	}
	if !state.ExpiresAt.IsZero() && !s.now().Before(state.ExpiresAt) {
		delete(s.buckets, key)
		return nil, false, nil
	}
	cloned := *state
	return &cloned, true, nil
}

// CreateIfAbsent persists a fresh bucket row.
func (s *InMemoryBucketStore) CreateIfAbsent(ctx context.Context, state *BucketState) error {
	if state == nil || state.Key == "" {
		return ErrInvalidInput
	}
	if !s.healthy.Load() {
		return Wrap(CodeStoreUnavailable, "in-memory store unhealthy", ErrStoreUnavailable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[state.Key]; ok {
		return ErrBucketExists
	}
	cloned := *state
	s.buckets[state.Key] = &cloned
	return nil
}

// ConditionalUpdate applies the update under a version check.
func (s *InMemoryBucketStore) ConditionalUpdate(ctx context.Context, key string, update BucketUpdate, expectedVersion int64) error {
	if !s.healthy.Load() {
		return Wrap(CodeStoreUnavailable, "in-memory store unhealthy", ErrStoreUnavailable)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.buckets[key]
	if !ok {
		return ErrBucketNotFound
	}
	if state.Version != expectedVersion {
		return ErrVersionConflict
	}
	state.Tokens = update.Tokens
	state.LastRefillAt = update.LastRefillAt
	state.WindowStartAt = update.WindowStartAt
	state.ExpiresAt = update.ExpiresAt
	state.Version++
	return nil
}

// Len returns the number of live bucket rows.
func (s *InMemoryBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
