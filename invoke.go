package loom

import (
	"context"
	"fmt"

	"github.com/loomwork/loom/schema"
)

// Caller binds env and returns a directly invocable Call. The env is cloned
// at bind time; every Call runs the full pipeline composition. An error is
// returned if the definition has no handler yet.
func (d Definition) Caller(env Env) (Call, error) {
	if d.handler == nil {
		return nil, fmt.Errorf("loom: Caller: definition has no handler")
	}
	bound := env.Clone()
	return func(ctx context.Context, args Args) (any, error) {
		return d.run(ctx, bound, args)
	}, nil
}

// run executes one invocation: args validation, the middleware onion around
// the handler, then returns validation on the final result.
func (d Definition) run(ctx context.Context, env Env, raw Args) (any, error) {
	_, ctx = EnsureInvocationContext(ctx, d.kind)
	args, err := d.validateArgs(raw)
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = Env{}
	}
	result, err := chainMiddleware(d.middleware, d.handler)(ctx, env, args)
	if err != nil {
		return nil, err
	}
	return d.validateReturns(result)
}

// validateArgs gates the raw arguments exactly once, before any middleware
// runs. Without a validator the raw map passes through; nil stands for an
// empty record.
func (d Definition) validateArgs(raw Args) (Args, error) {
	if raw == nil {
		raw = Args{}
	}
	if d.args == nil {
		return raw, nil
	}
	validated, err := d.args.Validate(map[string]any(raw))
	if err != nil {
		return nil, err
	}
	m, ok := validated.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("loom: args validator returned %T, want map", validated)
	}
	return Args(m), nil
}

// validateReturns gates the final result after the middleware unwind. The
// validated value replaces the raw result, so callers never observe an
// unvalidated one. Short-circuited results pass through here as well.
func (d Definition) validateReturns(result any) (any, error) {
	if d.returns == nil {
		return result, nil
	}
	return d.returns.Validate(result)
}

// Registered is the frozen descriptor produced by Public or Internal. It
// exposes what a host platform needs to route invocations: the kind,
// visibility, coarse argument and result shapes, and the invocation entry
// points. It has no chain methods; a registered pipeline cannot be extended.
type Registered struct {
	def          Definition
	argsShape    schema.Shape
	returnsShape schema.Shape
}

func newRegistered(def Definition) *Registered {
	return &Registered{
		def:          def,
		argsShape:    shapeOf(def.args),
		returnsShape: shapeOf(def.returns),
	}
}

// Kind reports the pipeline kind.
func (r *Registered) Kind() Kind { return r.def.kind }

// Visibility reports whether the pipeline is public or internal.
func (r *Registered) Visibility() Visibility { return r.def.visibility }

// Definition returns the frozen definition.
func (r *Registered) Definition() Definition { return r.def }

// ArgsShape reports the declared argument fields, nil when unvalidated.
func (r *Registered) ArgsShape() schema.Shape { return r.argsShape }

// ReturnsShape reports the declared result fields, nil when unvalidated.
func (r *Registered) ReturnsShape() schema.Shape { return r.returnsShape }

// Invoke runs one invocation with the host-built env. It executes the same
// composition as a Call; dispatching through a registry is behaviorally
// indistinguishable from calling directly with an equivalent env.
func (r *Registered) Invoke(ctx context.Context, env Env, raw Args) (any, error) {
	return r.def.run(ctx, env, raw)
}

// Caller binds env and returns a directly invocable Call.
func (r *Registered) Caller(env Env) Call {
	bound := env.Clone()
	return func(ctx context.Context, args Args) (any, error) {
		return r.def.run(ctx, bound, args)
	}
}
