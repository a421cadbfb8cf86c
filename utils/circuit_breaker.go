package utils

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker is rejecting calls.
var ErrBreakerOpen = errors.New("circuit breaker is open")

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// CircuitBreaker guards a best-effort downstream (notification delivery)
// so a dead collaborator cannot stall queue transitions. Counting window
// resets each interval; the breaker trips when the failure ratio over a
// minimum number of requests is exceeded, reopens half-way after timeout.
type CircuitBreaker struct {
	name         string
	minRequests  uint32
	interval     time.Duration
	timeout      time.Duration
	failureRatio float64

	mutex    sync.Mutex
	state    BreakerState
	requests uint32
	failures uint32
	expiry   time.Time
}

func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		minRequests:  10,
		interval:     60 * time.Second,
		timeout:      60 * time.Second,
		failureRatio: 0.6,
		state:        BreakerClosed,
	}
}

// Execute runs fn unless the breaker is open, and feeds the result back
// into the trip accounting.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn()
	cb.afterRequest(err == nil)
	return err
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.refresh(time.Now())
	return cb.state
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.refresh(time.Now())
	if cb.state == BreakerOpen {
		return ErrBreakerOpen
	}

	cb.requests++
	return nil
}

func (cb *CircuitBreaker) afterRequest(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := time.Now()
	cb.refresh(now)

	if success {
		if cb.state == BreakerHalfOpen {
			cb.reset(now)
		}
		return
	}

	cb.failures++
	if cb.state == BreakerHalfOpen || cb.readyToTrip() {
		cb.state = BreakerOpen
		cb.expiry = now.Add(cb.timeout)
	}
}

func (cb *CircuitBreaker) readyToTrip() bool {
	return cb.requests >= cb.minRequests &&
		float64(cb.failures)/float64(cb.requests) >= cb.failureRatio
}

// refresh advances the state machine on the clock: open breakers half-open
// after the timeout, closed windows restart each interval.
func (cb *CircuitBreaker) refresh(now time.Time) {
	switch cb.state {
	case BreakerOpen:
		if cb.expiry.Before(now) {
			cb.state = BreakerHalfOpen
			cb.requests = 0
			cb.failures = 0
		}
	case BreakerClosed:
		if !cb.expiry.IsZero() && cb.expiry.Before(now) {
			cb.reset(now)
		}
	}
}

func (cb *CircuitBreaker) reset(now time.Time) {
	cb.state = BreakerClosed
	cb.requests = 0
	cb.failures = 0
	cb.expiry = now.Add(cb.interval)
}
