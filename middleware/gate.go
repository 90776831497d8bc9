package middleware

import (
	"context"

	"github.com/loomwork/loom"
)

// GateFunc decides whether an invocation may proceed. It returns nil to
// allow execution; any error short-circuits the pipeline with that error.
type GateFunc func(ctx context.Context, env loom.Env) error

// Gate returns a middleware that invokes check before delegating to the rest
// of the pipeline. Denial is an application convention expressed through the
// returned error; the pipeline core attaches no meaning to it.
func Gate(check GateFunc) loom.Middleware {
	return func(ctx context.Context, env loom.Env, next loom.Next) (any, error) {
		if err := check(ctx, env); err != nil {
			return nil, err
		}
		return next(ctx, nil)
	}
}
