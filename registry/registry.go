// Package registry keeps the host-side table of registered pipelines and
// dispatches invocations to them. It enforces visibility at the external
// boundary and seeds the invocation identity with the registered name.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/loomwork/loom"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when dispatching to a name that was never
	// registered.
	ErrNotFound = errors.New("function not found")
	// ErrForbidden is returned when an external dispatch targets a function
	// that is not public.
	ErrForbidden = errors.New("function is not public")
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration and dispatch events.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// Registry is a named table of registered pipelines.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*loom.Registered
	logger    zerolog.Logger
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		functions: make(map[string]*loom.Registered),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds fn under name. Names are unique; registering a taken name
// returns an error.
func (r *Registry) Register(name string, fn *loom.Registered) error {
	if name == "" {
		return errors.New("registry: empty function name")
	}
	if fn == nil {
		return fmt.Errorf("registry: nil function %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("function %q already registered", name)
	}
	r.functions[name] = fn

	r.logger.Debug().
		Str("function", name).
		Str("kind", string(fn.Kind())).
		Str("visibility", string(fn.Visibility())).
		Msg("function registered")
	return nil
}

// Get returns the registered function by name.
func (r *Registry) Get(name string) (*loom.Registered, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.functions[name]
	return fn, ok
}

// Names returns all registered names, sorted for consistent ordering.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch invokes the named function with the host-built env. This is the
// trusted path: internal functions are reachable.
func (r *Registry) Dispatch(ctx context.Context, name string, env loom.Env, args loom.Args) (any, error) {
	fn, ok := r.Get(name)
	if !ok {
		r.logger.Error().Str("function", name).Msg("dispatch to unknown function")
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return r.invoke(ctx, name, fn, env, args)
}

// DispatchExternal invokes the named function on behalf of an external
// caller. Functions that are not public are rejected with ErrForbidden.
func (r *Registry) DispatchExternal(ctx context.Context, name string, env loom.Env, args loom.Args) (any, error) {
	fn, ok := r.Get(name)
	if !ok {
		r.logger.Error().Str("function", name).Msg("external dispatch to unknown function")
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if fn.Visibility() != loom.VisibilityPublic {
		r.logger.Error().Str("function", name).Msg("external dispatch to non-public function")
		return nil, fmt.Errorf("%q: %w", name, ErrForbidden)
	}
	return r.invoke(ctx, name, fn, env, args)
}

// invoke seeds the invocation identity with the registered name, then runs
// the pipeline. Pipeline errors pass through unmodified.
func (r *Registry) invoke(ctx context.Context, name string, fn *loom.Registered, env loom.Env, args loom.Args) (any, error) {
	invocation := &loom.Invocation{ID: uuid.NewString(), Kind: fn.Kind(), Name: name}
	ctx = loom.NewInvocationContext(ctx, invocation)

	r.logger.Debug().
		Str("function", name).
		Str("invocation_id", invocation.ID).
		Msg("dispatching")

	out, err := fn.Invoke(ctx, env, args)
	if err != nil {
		r.logger.Debug().
			Str("function", name).
			Str("invocation_id", invocation.ID).
			Err(err).
			Msg("dispatch failed")
		return nil, err
	}
	return out, nil
}
