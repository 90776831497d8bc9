package loom

import (
	"context"

	"github.com/google/uuid"
)

// Invocation identifies one pipeline invocation.
type Invocation struct {
	// ID is unique per invocation.
	ID string
	// Kind is the pipeline kind the invocation entered through.
	Kind Kind
	// Name is the registry name the invocation was dispatched under; empty
	// for anonymous callables.
	Name string
}

// ctxInvocationKey is an unexported type for keys defined in this package.
type ctxInvocationKey struct{}

// NewInvocationContext returns a new Context that carries invocation.
func NewInvocationContext(ctx context.Context, invocation *Invocation) context.Context {
	return context.WithValue(ctx, ctxInvocationKey{}, invocation)
}

// FromInvocationContext retrieves the Invocation from the context.
func FromInvocationContext(ctx context.Context) (*Invocation, bool) {
	invocation, ok := ctx.Value(ctxInvocationKey{}).(*Invocation)
	return invocation, ok
}

// EnsureInvocationContext retrieves the Invocation from the context, or
// creates a new one with a fresh ID if it doesn't exist.
func EnsureInvocationContext(ctx context.Context, kind Kind) (*Invocation, context.Context) {
	invocation, ok := FromInvocationContext(ctx)
	if !ok {
		invocation = &Invocation{ID: uuid.NewString(), Kind: kind}
		ctx = NewInvocationContext(ctx, invocation)
	}
	return invocation, ctx
}
