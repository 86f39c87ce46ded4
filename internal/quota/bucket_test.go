package quota

import (
	"testing"
	"time"
)

func TestRefillAmount_WholeTokens(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0)
	if got := refillAmount(base, base, 1.0); got != 0 {
		t.Fatalf("expected zero refill at delta 0, got %d", got)
	}
	if got := refillAmount(base.Add(10*time.Second), base, 1.0); got != 10 {
		t.Fatalf("expected 10 tokens, got %d", got)
	}
	// 5 tokens per 60s: 12s earns exactly one token, 11s earns none.
	rate := 5.0 / 60.0
	if got := refillAmount(base.Add(12*time.Second), base, rate); got != 1 {
		t.Fatalf("expected 1 token after 12s, got %d", got)
	}
	if got := refillAmount(base.Add(11*time.Second), base, rate); got != 0 {
		t.Fatalf("expected 0 tokens after 11s, got %d", got)
	}
}

func TestRefillAmount_ClockSkewYieldsZero(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0)
	if got := refillAmount(base.Add(-time.Minute), base, 1.0); got != 0 {
		t.Fatalf("expected zero refill on clock skew, got %d", got)
	}
	if got := refillAmount(base, base, 0); got != 0 {
		t.Fatalf("expected zero refill at zero rate, got %d", got)
	}
}

func TestApplyWindow_RefillCappedAtCapacity(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0)
	available, reset := applyWindow(2, 100, 10, base, time.Minute, base.Add(time.Second))
	if reset {
		t.Fatalf("unexpected window reset")
	}
	if available != 10 {
		t.Fatalf("expected capacity cap 10, got %d", available)
	}
}

func TestApplyWindow_RolloverResetsToFullCapacity(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0)
	available, reset := applyWindow(0, 0, 10, base, time.Minute, base.Add(time.Minute+time.Second))
	if !reset {
		t.Fatalf("expected window reset")
	}
	if available != 10 {
		t.Fatalf("expected full capacity after rollover, got %d", available)
	}

	// Exactly at the boundary counts as rolled over.
	available, reset = applyWindow(3, 0, 10, base, time.Minute, base.Add(time.Minute))
	if !reset || available != 10 {
		t.Fatalf("expected rollover at exact boundary, got available=%d reset=%v", available, reset)
	}
}

func TestApplyWindow_WithinWindowAccumulates(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_000, 0)
	available, reset := applyWindow(3, 2, 10, base, time.Minute, base.Add(30*time.Second))
	if reset {
		t.Fatalf("unexpected window reset")
	}
	if available != 5 {
		t.Fatalf("expected 5 tokens, got %d", available)
	}
}

func TestRetryAfter_RoundsUpToWholeSeconds(t *testing.T) {
	t.Parallel()

	// 5 tokens per 60s, short one token: 1 / (5/60) = 12s.
	if got := retryAfter(1, 5.0/60.0); got != 12*time.Second {
		t.Fatalf("expected 12s, got %v", got)
	}
	if got := retryAfter(0, 1.0); got != 0 {
		t.Fatalf("expected zero wait without deficit, got %v", got)
	}
	if got := retryAfter(3, 2.0); got != 2*time.Second {
		t.Fatalf("expected ceil(3/2)=2s, got %v", got)
	}
}
