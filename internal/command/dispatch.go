// Package command implements the Command Dispatcher: a command exposes
// Execute(ctx) (Result, error); Dispatch wraps that call with timing,
// structured logging, and failure metrics shared across every
// aggregate's commands. Built as a generic function over a typed
// interface rather than a reflection-based registry, keeping the same
// one-struct-per-operation request/response style used throughout
// (CreateOrderRequest, CancelOrderRequest, and so on).
package command

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/models"
	"github.com/stateset/commerce-engine/internal/observability"
)

// Command is anything that can run to completion and produce a Result,
// given the context carrying its deadline.
type Command[Result any] interface {
	Execute(ctx context.Context) (Result, error)
}

// Dispatch runs cmd, recording its duration and failure class under
// name for the commerce_command_duration_seconds /
// commerce_command_failures_total metrics, and logging the outcome.
func Dispatch[Result any](ctx context.Context, name string, cmd Command[Result], metrics *observability.Metrics, logger zerolog.Logger) (Result, error) {
	start := time.Now()
	result, err := cmd.Execute(ctx)
	duration := time.Since(start).Seconds()

	status := "ok"
	if err != nil {
		status = "error"
		errType := string(models.AsServiceError(err).Kind)
		metrics.CommandFailures.WithLabelValues(name, errType).Inc()
		logger.Error().Err(err).Str("command", name).Dur("duration", time.Since(start)).Msg("command failed")
	} else {
		logger.Debug().Str("command", name).Dur("duration", time.Since(start)).Msg("command succeeded")
	}
	metrics.CommandDuration.WithLabelValues(name, status).Observe(duration)
	return result, err
}

// Func adapts a plain function into a Command, for commands simple
// enough not to warrant their own named struct.
type Func[Result any] func(ctx context.Context) (Result, error)

// Execute implements Command.
func (f Func[Result]) Execute(ctx context.Context) (Result, error) {
	return f(ctx)
}
