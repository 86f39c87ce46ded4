// Package quota provides the acquisition engine.
package quota

import (
	"context"
	"time"
)

const defaultMaxRetries = 3

// AcquireOutcome reports an admission decision.
type AcquireOutcome struct {
	Admitted       bool
	UnitsGranted   int64
	UnitsRemaining int64
	RetryAfter     time.Duration
	Degraded       bool
}

// EngineOptions configures the acquisition engine.
type EngineOptions struct {
	MaxRetries      int
	FallbackEnabled bool
	Now             func() time.Time
	Logger          Logger
	Metrics         Metrics
}

// Engine admits or denies unit requests against shared buckets. Writes go
// exclusively through the store's conditional update; a lost race is
// retried from a fresh read up to the retry budget, and store trouble
// degrades to the local fallback limiter rather than stalling the caller.
type Engine struct {
	store           BucketStore
	resolver        *PolicyResolver
	fallback        *FallbackLimiter
	breaker         *CircuitBreaker
	maxRetries      int
	fallbackEnabled bool
	now             func() time.Time
	logger          Logger
	metrics         Metrics
}

// NewEngine constructs an acquisition engine.
func NewEngine(store BucketStore, resolver *PolicyResolver, fallback *FallbackLimiter, breaker *CircuitBreaker, opts EngineOptions) *Engine {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetrics{}
	}
	return &Engine{
		store:           store,
		resolver:        resolver,
		fallback:        fallback,
		breaker:         breaker,
		maxRetries:      opts.MaxRetries,
		fallbackEnabled: opts.FallbackEnabled,
		now:             opts.Now,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
	}
}

// Acquire requests units of a limit class for a resource. Configuration
// problems return an error; coordination-layer trouble is absorbed into a
// degraded outcome or an internal retry, never surfaced as a hard failure
// while the fallback is enabled.
func (e *Engine) Acquire(ctx context.Context, resourceID string, class LimitClass, units int64) (*AcquireOutcome, error) {
	if e == nil || e.store == nil || e.resolver == nil {
		return nil, ErrInvalidInput
	}
	if units <= 0 {
		return nil, Wrap(CodeInvalidUnits, "units requested must be positive", nil)
	}
	policy, err := e.resolver.Resolve(resourceID, class)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if e.breaker != nil && !e.breaker.Allow() {
		return e.degrade(policy, class, units, "breaker_open")
	}

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		outcome, err := e.attempt(ctx, policy, units)
		if err == nil {
			if e.breaker != nil {
				e.breaker.OnSuccess()
			}
			return outcome, nil
		}
		switch CodeOf(err) {
		case CodeConflict:
			// Lost the CAS race; re-read and retry.
			e.metrics.IncConflictRetry()
			continue
		case CodeAlreadyExists:
			// Another writer initialized the bucket first; its row
			// is authoritative, so re-read it.
			continue
		default:
			if e.breaker != nil {
				e.breaker.OnFailure()
			}
			e.metrics.IncStoreError("acquire")
			if e.logger != nil {
				e.logger.Error("store round-trip failed", map[string]any{
					"bucket": policy.Key,
					"error":  err.Error(),
				})
			}
			return e.degrade(policy, class, units, "store_unavailable")
		}
	}

	// High contention is handled like unavailability: degrade instead of
	// blocking the caller indefinitely.
	return e.degrade(policy, class, units, "retry_budget_exhausted")
}

// attempt runs one read, compute, conditional-write cycle.
func (e *Engine) attempt(ctx context.Context, policy BucketPolicy, units int64) (*AcquireOutcome, error) {
	state, found, err := e.store.Get(ctx, policy.Key)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if !found {
		state = &BucketState{
			Key:           policy.Key,
			Tokens:        policy.Capacity,
			Capacity:      policy.Capacity,
			RefillRate:    policy.RefillRate,
			LastRefillAt:  now,
			WindowStartAt: now,
			Version:       1,
			ExpiresAt:     now.Add(bucketTTL),
		}
		if err := e.store.CreateIfAbsent(ctx, state); err != nil {
			return nil, err
		}
	}

	refill := refillAmount(now, state.LastRefillAt, state.RefillRate)
	available, windowReset := applyWindow(state.Tokens, refill, state.Capacity, state.WindowStartAt, policy.Window, now)

	if available < units {
		// Denial is free of side effects: no write, so repeated
		// denials never perturb lastRefillAt.
		return &AcquireOutcome{
			UnitsRemaining: available,
			RetryAfter:     retryAfter(units-available, state.RefillRate),
		}, nil
	}

	remaining := available - units
	windowStartAt := state.WindowStartAt
	if windowReset {
		windowStartAt = now
	}
	update := BucketUpdate{
		Tokens:        remaining,
		LastRefillAt:  now,
		WindowStartAt: windowStartAt,
		ExpiresAt:     now.Add(bucketTTL),
	}
	if err := e.store.ConditionalUpdate(ctx, policy.Key, update, state.Version); err != nil {
		return nil, err
	}
	return &AcquireOutcome{
		Admitted:       true,
		UnitsGranted:   units,
		UnitsRemaining: remaining,
	}, nil
}

func (e *Engine) degrade(policy BucketPolicy, class LimitClass, units int64, reason string) (*AcquireOutcome, error) {
	if !e.fallbackEnabled || e.fallback == nil {
		return nil, Wrap(CodeStoreUnavailable, "store unavailable and fallback disabled", ErrStoreUnavailable)
	}
	e.metrics.IncFallback(reason)
	if e.logger != nil {
		e.logger.Info("serving from local fallback", map[string]any{
			"bucket": policy.Key,
			"reason": reason,
		})
	}
	return e.fallback.Acquire(policy, units), nil
}
