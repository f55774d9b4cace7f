package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreaker guards the agents' calls to the broker. It trips after a
// run of consecutive failures, stays open for the cooldown, then lets a
// single probe through; the probe's outcome closes or re-opens it. State is
// process-local: each agent decides for itself when the broker looks down.
type CircuitBreaker struct {
	failureThreshold int
	cooldown         time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func New(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
}

// Execute runs action unless the circuit is open. Only one half-open probe
// runs at a time; concurrent callers see ErrCircuitOpen until it settles.
func (cb *CircuitBreaker) Execute(action func() error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := action()
	cb.after(err)
	return err
}

// State reports the current state, transitioning open -> half-open when the
// cooldown has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refreshLocked()
	return cb.state
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refreshLocked()

	switch cb.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.probing = false
		if err != nil {
			cb.tripLocked()
		} else {
			cb.state = StateClosed
			cb.failures = 0
		}
		return
	}

	if err != nil {
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.tripLocked()
		}
		return
	}
	cb.failures = 0
}

func (cb *CircuitBreaker) refreshLocked() {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.cooldown {
		cb.state = StateHalfOpen
	}
}

func (cb *CircuitBreaker) tripLocked() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.failures = 0
}
