// Package quota provides local fallback limiting.
package quota

import (
	"sync"
	"time"
)

// FallbackLimiter enforces limits in-process when the shared store is
// unreachable. Each process independently enforces the full nominal limit:
// conservative on the assumption that outages are short, and it avoids
// starving a lone active worker. State is lost on restart, which the
// minute/day window granularity bounds.
type FallbackLimiter struct {
	mu      sync.Mutex
	buckets map[string]*localBucket
	now     func() time.Time
}

type localBucket struct {
	tokens        int64
	lastRefillAt  time.Time
	windowStartAt time.Time
}

// NewFallbackLimiter constructs a fallback limiter. A nil now defaults to
// time.Now.
func NewFallbackLimiter(now func() time.Time) *FallbackLimiter {
	if now == nil {
		now = time.Now
	}
	return &FallbackLimiter{
		buckets: make(map[string]*localBucket),
		now:     now,
	}
}

// Acquire runs the same refill and window math as the shared buckets
// against process-local state. Denials leave the bucket untouched so
// elapsed-time credit is never discarded.
func (f *FallbackLimiter) Acquire(policy BucketPolicy, units int64) *AcquireOutcome {
	if f == nil || units <= 0 {
		return &AcquireOutcome{Degraded: true}
	}
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.buckets[policy.Key]
	if !ok {
		bucket = &localBucket{
			tokens:        policy.Capacity,
			lastRefillAt:  now,
			windowStartAt: now,
		}
		f.buckets[policy.Key] = bucket
	}

	refill := refillAmount(now, bucket.lastRefillAt, policy.RefillRate)
	available, windowReset := applyWindow(bucket.tokens, refill, policy.Capacity, bucket.windowStartAt, policy.Window, now)
	if available < units {
		return &AcquireOutcome{
			UnitsRemaining: available,
			RetryAfter:     retryAfter(units-available, policy.RefillRate),
			Degraded:       true,
		}
	}

	bucket.tokens = available - units
	bucket.lastRefillAt = now
	if windowReset {
		bucket.windowStartAt = now
	}
	return &AcquireOutcome{
		Admitted:       true,
		UnitsGranted:   units,
		UnitsRemaining: bucket.tokens,
		Degraded:       true,
	}
}

// Len returns the number of tracked local buckets.
func (f *FallbackLimiter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buckets)
}
