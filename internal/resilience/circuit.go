package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCircuitOpen is returned when a call is rejected because the circuit is
// open. It is synthetic: the remote platform was never contacted.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive breaker-worthy failures
	// before the circuit opens. Default: 3.
	FailureThreshold int

	// Cooldown is how long the circuit stays open before it auto-resets on
	// the next call attempt. Default: 60s.
	Cooldown time.Duration

	// OnStateChange is called when the circuit opens or resets.
	OnStateChange func(open bool)
}

// DefaultCircuitBreakerConfig returns the production defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		Cooldown:         60 * time.Second,
	}
}

// CircuitBreaker guards the remote automation platform against hammering an
// exhausted account. It counts consecutive memory/billing failures and, once
// the threshold is reached, rejects all calls for a cooldown window. The
// breaker is shared process-wide by every task runner using the same
// platform client, so all mutation happens under the mutex.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu              sync.Mutex
	failures        int
	open            bool
	lastFailureTime time.Time

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	return &CircuitBreaker{
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// Allow decides whether a call may proceed. An open circuit whose cooldown
// has elapsed auto-resets and admits the call; otherwise ErrCircuitOpen is
// returned without contacting the remote platform.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return nil
	}
	if cb.nowFunc().Sub(cb.lastFailureTime) >= cb.cfg.Cooldown {
		cb.reset()
		return nil
	}
	return ErrCircuitOpen
}

// RecordFailure registers a breaker-worthy failure. Non-breaker-worthy
// failures must not be recorded here; they neither open nor reset the
// circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.nowFunc()
	if !cb.open && cb.failures >= cb.cfg.FailureThreshold {
		cb.open = true
		if cb.cfg.OnStateChange != nil {
			cb.cfg.OnStateChange(true)
		}
	}
}

// RecordSuccess clears the consecutive-failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

// IsOpen reports whether calls are currently being rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.open {
		return false
	}
	return cb.nowFunc().Sub(cb.lastFailureTime) < cb.cfg.Cooldown
}

// Failures returns the current consecutive breaker-worthy failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// TimeToReset returns how long until an open circuit admits calls again.
// Zero when the circuit is closed or the cooldown has already elapsed.
func (cb *CircuitBreaker) TimeToReset() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.open {
		return 0
	}
	remaining := cb.cfg.Cooldown - cb.nowFunc().Sub(cb.lastFailureTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset forces the circuit closed and clears the failure counter.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reset()
}

// reset must be called with the mutex held.
func (cb *CircuitBreaker) reset() {
	wasOpen := cb.open
	cb.open = false
	cb.failures = 0
	if wasOpen && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(false)
	}
}
