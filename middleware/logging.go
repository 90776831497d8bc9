// Package middleware provides stock pipeline middleware: invocation logging,
// Prometheus metrics, panic recovery, and a predicate gate.
package middleware

import (
	"context"
	"time"

	"github.com/loomwork/loom"
	"github.com/rs/zerolog"
)

// Logging returns a middleware that logs one entry per invocation with its
// identity, duration, and outcome. Successful invocations log at debug
// level, failures at error level.
func Logging(logger zerolog.Logger) loom.Middleware {
	return func(ctx context.Context, env loom.Env, next loom.Next) (any, error) {
		start := time.Now()
		out, err := next(ctx, nil)

		event := logger.Debug()
		if err != nil {
			event = logger.Error().Err(err)
		}
		if invocation, ok := loom.FromInvocationContext(ctx); ok {
			event = event.
				Str("invocation_id", invocation.ID).
				Str("kind", string(invocation.Kind))
			if invocation.Name != "" {
				event = event.Str("function", invocation.Name)
			}
		}
		event.Dur("duration", time.Since(start)).Msg("invocation completed")
		return out, err
	}
}
