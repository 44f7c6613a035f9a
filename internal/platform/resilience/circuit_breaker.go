package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Allow while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker trips after a run of consecutive failures and rejects
// calls for a cooldown period. Once the cooldown elapses a bounded
// number of trial calls may pass; the breaker closes again when every
// trial succeeds and re-trips on the first trial failure.
//
// State is derived from the trip deadline rather than stored: a zero
// deadline means closed, a future one open, a past one letting trials through.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration
	maxTrials int

	mu        sync.Mutex
	failures  int
	openUntil time.Time
	trials    int
	trialWins int
	now       func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if openTimeout <= 0 {
		openTimeout = 15 * time.Second
	}
	if halfOpenMaxReq < 1 {
		halfOpenMaxReq = 1
	}
	return &CircuitBreaker{
		threshold: failureThreshold,
		cooldown:  openTimeout,
		maxTrials: halfOpenMaxReq,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed right now.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case CircuitStateOpen:
		return ErrCircuitOpen
	case CircuitStateHalfOpen:
		if b.trials >= b.maxTrials {
			return ErrCircuitOpen
		}
		b.trials++
	}
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		b.trialWins++
		if b.trialWins >= b.maxTrials {
			b.reset()
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.trip()
		}
	case CircuitStateHalfOpen:
		b.trip()
	case CircuitStateOpen:
		// Failures reported while already open push the deadline out.
		b.openUntil = b.now().Add(b.cooldown)
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *CircuitBreaker) stateLocked() CircuitState {
	switch {
	case b.openUntil.IsZero():
		return CircuitStateClosed
	case b.now().Before(b.openUntil):
		return CircuitStateOpen
	default:
		return CircuitStateHalfOpen
	}
}

func (b *CircuitBreaker) trip() {
	b.openUntil = b.now().Add(b.cooldown)
	b.trials = 0
	b.trialWins = 0
}

func (b *CircuitBreaker) reset() {
	b.openUntil = time.Time{}
	b.failures = 0
	b.trials = 0
	b.trialWins = 0
}
