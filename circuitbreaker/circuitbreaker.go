package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"lyrics-finder-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls rejected until cooldown passes
	StateHalfOpen              // one probe call in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// TransitionFunc is called after every state change, outside the breaker lock.
type TransitionFunc func(name string, from, to State)

// WarningFunc is called once per failure streak when a closed circuit reaches
// warnAt failures, outside the breaker lock.
type WarningFunc func(name string, failures, threshold int)

// Config holds circuit breaker configuration
type Config struct {
	Name            string        // provider name, used for logs and metrics
	Threshold       int           // consecutive failures before opening
	Cooldown        time.Duration // time spent open before a probe is allowed
	HalfOpenTimeout time.Duration // a probe older than this re-opens the circuit
	OnTransition    TransitionFunc
	OnHighFailures  WarningFunc
}

// CircuitBreaker guards a single upstream provider.
type CircuitBreaker struct {
	mu sync.Mutex

	name            string
	threshold       int
	cooldown        time.Duration
	halfOpenTimeout time.Duration
	onTransition    TransitionFunc
	onHighFailures  WarningFunc
	warnAt          int

	state         State
	failures      int
	openedAt      time.Time
	halfOpenStart time.Time
	lastFailure   time.Time
}

// Snapshot is a point-in-time view used by the admin endpoint.
type Snapshot struct {
	Name           string        `json:"name"`
	State          string        `json:"state"`
	Failures       int           `json:"failures"`
	Threshold      int           `json:"threshold"`
	LastFailure    time.Time     `json:"lastFailure,omitempty"`
	TimeUntilRetry time.Duration `json:"timeUntilRetryNs"`
}

func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.HalfOpenTimeout <= 0 {
		cfg.HalfOpenTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	// warn at 60% of the threshold
	warnAt := cfg.Threshold * 3 / 5
	if warnAt < 2 {
		warnAt = 2
	}

	return &CircuitBreaker{
		name:            cfg.Name,
		threshold:       cfg.Threshold,
		cooldown:        cfg.Cooldown,
		halfOpenTimeout: cfg.HalfOpenTimeout,
		onTransition:    cfg.OnTransition,
		onHighFailures:  cfg.OnHighFailures,
		warnAt:          warnAt,
		state:           StateClosed,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether a call may proceed. An open circuit whose cooldown has
// elapsed lets exactly one probe through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	var (
		allowed bool
		from    = cb.state
	)
	switch cb.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.cooldown {
			cb.state = StateHalfOpen
			cb.halfOpenStart = time.Now()
			allowed = true
		}
	case StateHalfOpen:
		if time.Since(cb.halfOpenStart) >= cb.halfOpenTimeout {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
	}
	to := cb.state
	cb.mu.Unlock()

	cb.transitioned(from, to)
	return allowed
}

// RecordSuccess closes a half-open circuit and clears the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	from := cb.state
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.state = StateClosed
	}
	to := cb.state
	cb.mu.Unlock()

	cb.transitioned(from, to)
}

// RecordFailure counts a failed call, opening the circuit at the threshold or
// immediately when a half-open probe fails.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	from := cb.state
	cb.failures++
	cb.lastFailure = time.Now()

	var warn bool
	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = cb.lastFailure
	case StateClosed:
		warn = cb.failures == cb.warnAt && cb.warnAt < cb.threshold
		if cb.failures >= cb.threshold {
			cb.state = StateOpen
			cb.openedAt = cb.lastFailure
		}
	}
	to := cb.state
	failures := cb.failures
	cb.mu.Unlock()

	if warn && cb.onHighFailures != nil {
		log.Warnf("%s %d/%d failures, circuit may open soon", logcolors.CircuitBreakerPrefix(cb.name), failures, cb.threshold)
		cb.onHighFailures(cb.name, failures, cb.threshold)
	}
	cb.transitioned(from, to)
}

// Reset forces the circuit closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.openedAt = time.Time{}
	cb.halfOpenStart = time.Time{}
	cb.mu.Unlock()

	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
	cb.transitioned(from, StateClosed)
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// TimeUntilRetry returns the remaining cooldown while open, the remaining probe
// window while half-open, and zero while closed.
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.timeUntilRetryLocked()
}

func (cb *CircuitBreaker) timeUntilRetryLocked() time.Duration {
	var remaining time.Duration
	switch cb.state {
	case StateOpen:
		remaining = cb.cooldown - time.Since(cb.openedAt)
	case StateHalfOpen:
		remaining = cb.halfOpenTimeout - time.Since(cb.halfOpenStart)
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		Name:           cb.name,
		State:          cb.state.String(),
		Failures:       cb.failures,
		Threshold:      cb.threshold,
		LastFailure:    cb.lastFailure,
		TimeUntilRetry: cb.timeUntilRetryLocked(),
	}
}

func (cb *CircuitBreaker) transitioned(from, to State) {
	if from == to {
		return
	}

	prefix := logcolors.CircuitBreakerPrefix(cb.name)
	switch to {
	case StateOpen:
		log.Warnf("%s %s -> OPEN after %d failures (cooldown: %v)", prefix, from, cb.Failures(), cb.cooldown)
	case StateHalfOpen:
		log.Infof("%s Cooldown passed, probing upstream", prefix)
	case StateClosed:
		log.Infof("%s %s -> CLOSED", prefix, from)
	}

	if cb.onTransition != nil {
		cb.onTransition(cb.name, from, to)
	}
}
