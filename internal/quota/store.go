// Package quota defines the shared bucket store contract.
package quota

import (
	"context"
	"time"
)

// BucketState is the persisted rate-limit counter for one resource and
// limit class. Version increases by exactly one per accepted write and is
// the optimistic-concurrency token for ConditionalUpdate.
type BucketState struct {
	Key           string
	Tokens        int64
	Capacity      int64
	RefillRate    float64
	LastRefillAt  time.Time
	WindowStartAt time.Time
	Version       int64
	ExpiresAt     time.Time
}

// BucketUpdate carries the fields a successful acquisition rewrites. The
// store bumps Version itself; callers never write it directly.
type BucketUpdate struct {
	Tokens        int64
	LastRefillAt  time.Time
	WindowStartAt time.Time
	ExpiresAt     time.Time
}

// BucketStore is the coordination primitive between workers. Any backend
// offering read-after-write consistency and compare-and-swap writes can
// implement it.
type BucketStore interface {
	// Get returns the current state for a key with a strongly
	// consistent read. The bool reports whether the key exists.
	Get(ctx context.Context, key string) (*BucketState, bool, error)

	// CreateIfAbsent persists a fresh bucket row. It fails with
	// CodeAlreadyExists when another writer created the row first;
	// the loser re-reads the winner's row instead of erroring.
	CreateIfAbsent(ctx context.Context, state *BucketState) error

	// ConditionalUpdate applies the update only while the stored
	// version still equals expectedVersion, incrementing the version
	// atomically. A stale version fails with CodeConflict.
	ConditionalUpdate(ctx context.Context, key string, update BucketUpdate, expectedVersion int64) error

	// Healthy reports whether the store is reachable.
	Healthy(ctx context.Context) bool
}
