package evaluate

import (
	"sync"
)

// DefaultBreakerThreshold is how many consecutive unresolved slides pause a
// run when no threshold is configured.
const DefaultBreakerThreshold = 3

// CircuitBreaker pauses a run after consecutive slides that ended without
// passing.
type CircuitBreaker struct {
	mu                  sync.Mutex
	ConsecutiveFailures int
	Threshold           int
	Paused              bool
}

// NewCircuitBreaker creates a circuit breaker with the given threshold.
func NewCircuitBreaker(threshold int) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	return &CircuitBreaker{
		Threshold: threshold,
	}
}

// RecordFailure increments the failure counter.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.ConsecutiveFailures++
	if cb.ConsecutiveFailures >= cb.Threshold {
		cb.Paused = true
	}
}

// RecordSuccess resets the failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.ConsecutiveFailures = 0
	cb.Paused = false
}

// ShouldPause reports whether the threshold was reached.
func (cb *CircuitBreaker) ShouldPause() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.Paused
}

// Reset clears the breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.ConsecutiveFailures = 0
	cb.Paused = false
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.ConsecutiveFailures
}
