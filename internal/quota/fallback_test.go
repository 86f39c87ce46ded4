package quota

import (
	"testing"
	"time"
)

func fallbackPolicy() BucketPolicy {
	return BucketPolicy{
		Key:        "search-per-minute-requests",
		Capacity:   5,
		RefillRate: 5.0 / 60.0,
		Window:     60 * time.Second,
	}
}

func TestFallbackLimiter_EnforcesCapacity(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	limiter := NewFallbackLimiter(func() time.Time { return now })
	policy := fallbackPolicy()

	for i, wantRemaining := range []int64{4, 3, 2, 1, 0} {
		outcome := limiter.Acquire(policy, 1)
		if !outcome.Admitted || !outcome.Degraded {
			t.Fatalf("acquire %d: expected degraded admit, got %+v", i+1, outcome)
		}
		if outcome.UnitsRemaining != wantRemaining {
			t.Fatalf("acquire %d: expected remaining %d, got %+v", i+1, wantRemaining, outcome)
		}
	}

	outcome := limiter.Acquire(policy, 1)
	if outcome.Admitted {
		t.Fatalf("expected denial, got %+v", outcome)
	}
	if outcome.RetryAfter != 12*time.Second {
		t.Fatalf("expected retryAfter 12s, got %v", outcome.RetryAfter)
	}
}

func TestFallbackLimiter_RefillsOverTime(t *testing.T) {
	t.Parallel()

	start := time.Unix(1_700_000_000, 0)
	current := start
	limiter := NewFallbackLimiter(func() time.Time { return current })
	policy := fallbackPolicy()

	for i := 0; i < 5; i++ {
		limiter.Acquire(policy, 1)
	}

	current = start.Add(12 * time.Second)
	outcome := limiter.Acquire(policy, 1)
	if !outcome.Admitted || outcome.UnitsRemaining != 0 {
		t.Fatalf("expected one refilled token, got %+v", outcome)
	}
}

func TestFallbackLimiter_WindowResetRestoresCapacity(t *testing.T) {
	t.Parallel()

	start := time.Unix(1_700_000_000, 0)
	current := start
	limiter := NewFallbackLimiter(func() time.Time { return current })
	policy := fallbackPolicy()

	for i := 0; i < 5; i++ {
		limiter.Acquire(policy, 1)
	}

	current = start.Add(policy.Window)
	outcome := limiter.Acquire(policy, 1)
	if !outcome.Admitted || outcome.UnitsRemaining != 4 {
		t.Fatalf("expected full-capacity reset, got %+v", outcome)
	}
}

func TestFallbackLimiter_DenialLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	start := time.Unix(1_700_000_000, 0)
	current := start
	limiter := NewFallbackLimiter(func() time.Time { return current })
	policy := fallbackPolicy()

	for i := 0; i < 5; i++ {
		limiter.Acquire(policy, 1)
	}

	// Repeated denials at 11s must not reset lastRefillAt, or the bucket
	// would never accrue a full second of credit.
	current = start.Add(11 * time.Second)
	for i := 0; i < 3; i++ {
		if outcome := limiter.Acquire(policy, 1); outcome.Admitted {
			t.Fatalf("expected denial at 11s, got %+v", outcome)
		}
	}
	current = start.Add(12 * time.Second)
	if outcome := limiter.Acquire(policy, 1); !outcome.Admitted {
		t.Fatalf("expected refill credit preserved across denials, got %+v", outcome)
	}
}

func TestFallbackLimiter_TracksBucketsPerKey(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	limiter := NewFallbackLimiter(func() time.Time { return now })

	a := fallbackPolicy()
	b := fallbackPolicy()
	b.Key = "embeddings-per-minute-requests"

	limiter.Acquire(a, 1)
	limiter.Acquire(b, 1)
	if got := limiter.Len(); got != 2 {
		t.Fatalf("expected 2 local buckets, got %d", got)
	}
}
