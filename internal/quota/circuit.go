// Package quota provides a circuit breaker for store round-trips.
package quota

import (
	"sync/atomic"
	"time"
)

// CircuitState represents breaker state.
type CircuitState int32

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitOptions configures breaker thresholds.
type CircuitOptions struct {
	FailureThreshold int64
	OpenDuration     time.Duration
	HalfOpenMaxCalls int64
}

// CircuitBreaker counts consecutive store failures and, once open, routes
// acquisitions straight to the fallback limiter instead of stacking
// timeouts against a dead store.
type CircuitBreaker struct {
	state            atomic.Int32
	failures         atomic.Int64
	openUntil        atomic.Int64
	halfOpenInFlight atomic.Int64
	opts             CircuitOptions
}

// NewCircuitBreaker constructs a breaker with defaults.
func NewCircuitBreaker(opts CircuitOptions) *CircuitBreaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenDuration <= 0 {
		opts.OpenDuration = time.Second
	}
	if opts.HalfOpenMaxCalls <= 0 {
		opts.HalfOpenMaxCalls = 2
	}
	cb := &CircuitBreaker{opts: opts}
	cb.state.Store(int32(CircuitClosed))
	return cb
}

// Allow reports whether a store round-trip should proceed.
func (cb *CircuitBreaker) Allow() bool {
	if cb == nil {
		return true
	}
	switch CircuitState(cb.state.Load()) {
	case CircuitOpen:
		if time.Now().UnixNano() < cb.openUntil.Load() {
			return false
		}
		cb.state.Store(int32(CircuitHalfOpen))
		cb.halfOpenInFlight.Store(0)
		return true
	case CircuitHalfOpen:
		if cb.halfOpenInFlight.Add(1) <= cb.opts.HalfOpenMaxCalls {
			return true
		}
		cb.halfOpenInFlight.Add(-1)
		return false
	default:
		return true
	}
}

// OnSuccess records a successful round-trip.
func (cb *CircuitBreaker) OnSuccess() {
	if cb == nil {
		return
	}
	switch CircuitState(cb.state.Load()) {
	case CircuitHalfOpen:
		cb.halfOpenInFlight.Add(-1)
		cb.failures.Store(0)
		cb.state.Store(int32(CircuitClosed))
	case CircuitClosed:
		cb.failures.Store(0)
	}
}

// OnFailure records a failed round-trip and trips the breaker at the
// threshold.
func (cb *CircuitBreaker) OnFailure() {
	if cb == nil {
		return
	}
	if CircuitState(cb.state.Load()) == CircuitHalfOpen {
		cb.halfOpenInFlight.Add(-1)
		cb.failures.Store(cb.opts.FailureThreshold)
		cb.trip()
		return
	}
	if cb.failures.Add(1) >= cb.opts.FailureThreshold {
		cb.trip()
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	if cb == nil {
		return CircuitClosed
	}
	return CircuitState(cb.state.Load())
}

func (cb *CircuitBreaker) trip() {
	cb.openUntil.Store(time.Now().Add(cb.opts.OpenDuration).UnixNano())
	cb.state.Store(int32(CircuitOpen))
}
