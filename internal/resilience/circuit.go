package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState is the breaker's position.
type CircuitState int

const (
	// CircuitClosed passes calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the reset timeout elapses.
	CircuitOpen
	// CircuitHalfOpen lets probe calls test whether the provider recovered.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned for calls rejected while the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig tunes one breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold opens the circuit after this many consecutive
	// failures. Default 5.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before allowing a
	// probe. Default 30s.
	ResetTimeout time.Duration

	// HalfOpenMaxProbes is how many probes must succeed before the
	// circuit closes again. Default 1.
	HalfOpenMaxProbes int

	// ShouldTrip decides which errors count toward the threshold. Nil
	// counts every error.
	ShouldTrip func(err error) bool

	// OnStateChange observes transitions, for logging.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the defaults used for search
// providers.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:  5,
		ResetTimeout:      30 * time.Second,
		HalfOpenMaxProbes: 1,
	}
}

// CircuitBreaker guards one external provider. A burst of consecutive
// failures opens the circuit so the pipeline stops burning its budget on
// a provider that is down.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu                sync.Mutex
	state             CircuitState
	failures          int
	lastFailure       time.Time
	halfOpenSuccesses int

	nowFunc func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxProbes <= 0 {
		cfg.HalfOpenMaxProbes = 1
	}
	return &CircuitBreaker{cfg: cfg, state: CircuitClosed, nowFunc: time.Now}
}

// Execute runs fn unless the circuit is open. The call's outcome feeds
// the failure counter.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.observe(err)
	return err
}

// ExecuteVal is Execute with a return value.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	cb.observe(err)
	return val, err
}

// State returns the effective state; an open circuit past its reset
// timeout reads as half-open.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.nowFunc().Sub(cb.lastFailure) >= cb.cfg.ResetTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return nil
	}
	if cb.nowFunc().Sub(cb.lastFailure) >= cb.cfg.ResetTimeout {
		cb.transition(CircuitHalfOpen)
		return nil
	}
	return ErrCircuitOpen
}

func (cb *CircuitBreaker) observe(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	trips := err != nil
	if trips && cb.cfg.ShouldTrip != nil {
		trips = cb.cfg.ShouldTrip(err)
	}

	if !trips {
		switch cb.state {
		case CircuitHalfOpen:
			cb.halfOpenSuccesses++
			if cb.halfOpenSuccesses >= cb.cfg.HalfOpenMaxProbes {
				cb.transition(CircuitClosed)
				cb.failures = 0
				cb.halfOpenSuccesses = 0
			}
		case CircuitClosed:
			cb.failures = 0
		}
		return
	}

	cb.failures++
	cb.lastFailure = cb.nowFunc()

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		// A failed probe reopens immediately.
		cb.transition(CircuitOpen)
		cb.halfOpenSuccesses = 0
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}
