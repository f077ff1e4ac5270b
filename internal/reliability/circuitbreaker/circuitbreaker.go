package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// CircuitBreaker fast-fails calls to a dependency that keeps erroring. The
// notification outbox sits behind one so a dead Redis cannot slow down the
// approval path: the breaker opens after failureThreshold consecutive
// failures, probes again after timeout, and closes after successThreshold
// consecutive probe successes.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	probeSuccesses   int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	onStateChange    func(from, to State)
}

// NewCircuitBreaker creates a closed breaker
func NewCircuitBreaker(failureThreshold, successThreshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
	}
}

// SetStateChangeCallback registers a callback for state transitions. The
// callback runs with the breaker lock held; keep it cheap.
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// AllowRequest reports whether a call may proceed. An open breaker lets a
// probe through once timeout has elapsed since it opened.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) > cb.timeout {
			cb.transition(StateHalfOpen)
			return true
		}
	}
	return false
}

// RecordSuccess notes a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.probeSuccesses++
		if cb.probeSuccesses >= cb.successThreshold {
			cb.transition(StateClosed)
		}
	}
}

// RecordFailure notes a failed call, tripping the breaker when the closed
// threshold is reached or immediately when a half-open probe fails
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition moves to a new state; caller holds the lock
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.failures = 0
	cb.probeSuccesses = 0
	if to == StateOpen {
		cb.openedAt = time.Now()
	}
	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}
