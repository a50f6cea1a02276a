// Package resilience wraps outbound payment-provider calls with a
// circuit breaker and jittered retry, and tax-provider calls with a
// circuit breaker.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when a call is rejected because the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// CircuitBreaker wraps a named outbound dependency call.
type CircuitBreaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewCircuitBreaker builds a breaker that trips after 5 consecutive
// failures or a 60% failure ratio over at least 10 requests, then stays
// open for 30s before allowing a half-open probe.
func NewCircuitBreaker(name string, logger zerolog.Logger) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests >= 10 {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return failureRatio >= 0.6
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &CircuitBreaker{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger.With().Str("component", "circuit_breaker").Str("breaker", name).Logger(),
	}
}

// Execute runs fn through the breaker, translating gobreaker.ErrOpenState
// into ErrCircuitOpen so callers can match on a package-local sentinel.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// State returns the breaker's current state as a metrics-friendly int
// (0=closed, 1=half-open, 2=open), matching commerce_circuit_breaker_state.
func (c *CircuitBreaker) State() float64 {
	switch c.breaker.State() {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
