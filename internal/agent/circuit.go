package agent

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("model circuit breaker is open; the LLM provider failed repeatedly")

type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

type CircuitConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxCalls int
}

func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

type CircuitBreaker struct {
	config        CircuitConfig
	state         CircuitState
	failures      int
	successes     int
	lastFailure   time.Time
	halfOpenCalls int
	now           func() time.Time
	mu            sync.Mutex
}

func NewCircuitBreaker(config CircuitConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		state:  CircuitClosed,
		now:    time.Now,
	}
}

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true

	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.config.OpenTimeout {
			cb.state = CircuitHalfOpen
			cb.halfOpenCalls = 0
			cb.successes = 0
			return cb.allowHalfOpen()
		}
		return false

	case CircuitHalfOpen:
		return cb.allowHalfOpen()
	}

	return false
}

func (cb *CircuitBreaker) allowHalfOpen() bool {
	if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
		cb.halfOpenCalls++
		return true
	}
	return false
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0

	case CircuitHalfOpen:
		cb.successes++
		cb.halfOpenCalls--
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = CircuitClosed
			cb.failures = 0
			cb.successes = 0
		}
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
			log.Warn("Model circuit breaker opened", "failures", cb.failures)
		}

	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.halfOpenCalls = 0
		cb.successes = 0
	}
}

// release frees a half-open slot without judging the provider.
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen && cb.halfOpenCalls > 0 {
		cb.halfOpenCalls--
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GuardedModel fails fast with ErrCircuitOpen while the breaker is open.
// Cancelled requests do not count as failures.
type GuardedModel struct {
	model   Model
	breaker *CircuitBreaker
}

func NewGuardedModel(model Model, breaker *CircuitBreaker) *GuardedModel {
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultCircuitConfig())
	}
	return &GuardedModel{model: model, breaker: breaker}
}

func (g *GuardedModel) Breaker() *CircuitBreaker {
	return g.breaker
}

func (g *GuardedModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if !g.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	resp, err := g.model.Generate(ctx, req)
	switch {
	case err == nil:
		g.breaker.RecordSuccess()
	case ctx.Err() != nil:
		g.breaker.release()
	default:
		g.breaker.RecordFailure()
	}
	return resp, err
}
