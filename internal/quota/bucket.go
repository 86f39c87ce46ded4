// Package quota coordinates shared API call budgets across workers.
package quota

import (
	"math"
	"time"
)

// bucketTTL is how long an idle bucket row survives before the store may
// purge it. A purged bucket is recreated at full capacity on next use.
const bucketTTL = 7 * 24 * time.Hour

// refillAmount returns the whole tokens earned since lastRefillAt at the
// given rate in tokens per second. Clock skew (now before lastRefillAt)
// yields zero refill, never a negative amount.
func refillAmount(now, lastRefillAt time.Time, rate float64) int64 {
	if rate <= 0 {
		return 0
	}
	elapsed := now.Sub(lastRefillAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return int64(math.Floor(elapsed * rate))
}

// applyWindow combines continuous refill with a hard fixed-window reset.
// Once the window has elapsed the bucket snaps back to full capacity and
// carried-over tokens are discarded; otherwise tokens accumulate up to
// capacity. The bool reports whether the window rolled over.
func applyWindow(tokens, refill, capacity int64, windowStartAt time.Time, window time.Duration, now time.Time) (int64, bool) {
	if window > 0 && now.Sub(windowStartAt) >= window {
		return capacity, true
	}
	available := tokens + refill
	if available > capacity {
		available = capacity
	}
	if available < 0 {
		available = 0
	}
	return available, false
}

// retryAfter estimates how long a denied caller must wait for deficit
// tokens to refill, rounded up to whole seconds.
func retryAfter(deficit int64, rate float64) time.Duration {
	if deficit <= 0 || rate <= 0 {
		return 0
	}
	seconds := math.Ceil(float64(deficit) / rate)
	return time.Duration(seconds) * time.Second
}
