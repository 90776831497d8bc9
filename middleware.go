package loom

import "context"

// Handler is the terminal unit of work at the center of a pipeline. It
// receives the fully merged Env and the validated Args.
type Handler func(ctx context.Context, env Env, args Args) (any, error)

// Next advances an invocation to the remainder of the pipeline. The patch is
// merged over the incumbent Env (shallow union into a fresh map) before the
// next layer runs; pass nil to contribute nothing. A middleware may call its
// Next zero, one, or many times.
type Next func(ctx context.Context, patch Env) (any, error)

// Middleware wraps the remainder of a pipeline with additional behavior.
// It is applied in a chain (outermost first) using chainMiddleware.
type Middleware func(ctx context.Context, env Env, next Next) (any, error)

// Call is a pipeline bound to an Env, ready for direct invocation.
type Call func(ctx context.Context, args Args) (any, error)

// chainMiddleware composes middleware around a terminal handler, applying
// them in order. The first middleware becomes the outermost layer.
func chainMiddleware(mws []Middleware, terminal Handler) Handler {
	h := terminal
	for i := len(mws) - 1; i >= 0; i-- { // apply in reverse to make mws[0] outermost
		h = wrapMiddleware(mws[i], h)
	}
	return h
}

// wrapMiddleware binds one middleware layer around inner. The Next handed to
// the middleware merges its patch over this layer's Env, so contributions
// union inward and inner layers win on key conflicts.
func wrapMiddleware(mw Middleware, inner Handler) Handler {
	return func(ctx context.Context, env Env, args Args) (any, error) {
		next := func(ctx context.Context, patch Env) (any, error) {
			return inner(ctx, Merge(env, patch), args)
		}
		return mw(ctx, env, next)
	}
}
