package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/konuslabs/recall/core"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls after
// repeated upstream failures.
var ErrCircuitOpen = errors.New("llm: circuit breaker is open")

// BreakerConfig tunes the circuit breaker around a completer.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that trips the
	// circuit. Default: 3.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before probing.
	// Default: 30 seconds.
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the probe count needed to close again.
	// Default: 2.
	HalfOpenMaxSuccesses uint32
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxFailures == 0 {
		c.MaxFailures = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenMaxSuccesses == 0 {
		c.HalfOpenMaxSuccesses = 2
	}
	return c
}

// Breaker wraps a core.Completer with a circuit breaker so a degraded
// upstream fails fast instead of stacking up timed-out requests.
type Breaker struct {
	inner   core.Completer
	breaker *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner with default breaker settings.
func NewBreaker(inner core.Completer) *Breaker {
	return NewBreakerWithConfig(inner, BreakerConfig{})
}

// NewBreakerWithConfig wraps inner with the given settings.
func NewBreakerWithConfig(inner core.Completer, cfg BreakerConfig) *Breaker {
	cfg = cfg.withDefaults()
	return &Breaker{
		inner: inner,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm",
			MaxRequests: cfg.HalfOpenMaxSuccesses,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.MaxFailures
			},
		}),
	}
}

// Complete runs the wrapped completer through the breaker. Context
// cancellation counts as a failure like any other error.
func (b *Breaker) Complete(ctx context.Context, req *core.CompletionRequest) (*core.CompletionResponse, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result.(*core.CompletionResponse), nil
}

// State reports the breaker state as "closed", "open", or "half-open".
func (b *Breaker) State() string {
	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
