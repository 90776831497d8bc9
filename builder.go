package loom

import "github.com/loomwork/loom/schema"

// Builder is the fluent chain shared by Func and custom builder types. Every
// chain method derives a new Definition and hands it to the clone factory, so
// chains branch without interfering and the concrete builder type survives
// every call.
//
// Misuse of the chain (duplicate Handler, Input after Handler, any call after
// Public/Internal) panics with *ConfigurationError: these are construction
// bugs, not runtime conditions.
type Builder[B any] struct {
	def     Definition
	factory func(Definition) B
}

// NewBuilder wraps def in a chain whose methods construct new builders via
// factory. Custom builder types embed Builder and pass their own constructor
// as the factory.
func NewBuilder[B any](def Definition, factory func(Definition) B) Builder[B] {
	if factory == nil {
		configPanic("NewBuilder", "nil clone factory")
	}
	return Builder[B]{def: def, factory: factory}
}

// Definition returns the builder's current definition.
func (b Builder[B]) Definition() Definition { return b.def }

// Use appends mw to the middleware stack. The first middleware added becomes
// the outermost layer at invocation time. Permitted both before and after
// Handler; position relative to Handler does not affect execution order.
func (b Builder[B]) Use(mw Middleware) B {
	return b.factory(b.def.withMiddleware(mw))
}

// Input attaches the args validator. At most one, and only before Handler.
func (b Builder[B]) Input(v schema.Validator) B {
	return b.factory(b.def.withArgs(v))
}

// Returns attaches the returns validator. At most one, and only before
// Handler.
func (b Builder[B]) Returns(v schema.Validator) B {
	return b.factory(b.def.withReturns(v))
}

// Handler attaches the terminal handler. Exactly one per pipeline.
func (b Builder[B]) Handler(fn Handler) B {
	return b.factory(b.def.withHandler(fn))
}

// Public freezes the definition as externally reachable and returns its
// registration descriptor. The chain is terminal afterwards.
func (b Builder[B]) Public() *Registered {
	return newRegistered(b.def.withVisibility("Public", VisibilityPublic))
}

// Internal freezes the definition as host-only and returns its registration
// descriptor. The chain is terminal afterwards.
func (b Builder[B]) Internal() *Registered {
	return newRegistered(b.def.withVisibility("Internal", VisibilityInternal))
}

// Caller binds env and returns a directly invocable Call. This is the
// in-process side of the callable/registered duality; no registry is
// involved.
func (b Builder[B]) Caller(env Env) (Call, error) {
	return b.def.Caller(env)
}

// Func is the stock pipeline builder.
type Func struct {
	Builder[*Func]
}

// NewFunc wraps an existing definition in a stock builder. It is the clone
// factory every Func chain method uses.
func NewFunc(def Definition) *Func {
	f := &Func{}
	f.Builder = NewBuilder(def, NewFunc)
	return f
}

// New starts an empty pipeline of the given kind.
func New(kind Kind) *Func { return NewFunc(NewDefinition(kind)) }

// Query starts a read pipeline.
func Query() *Func { return New(KindQuery) }

// Mutation starts a write pipeline.
func Mutation() *Func { return New(KindMutation) }

// Action starts a side-effecting pipeline.
func Action() *Func { return New(KindAction) }

// Extend rewraps def in a custom builder type. Every subsequent chain call,
// including the inherited Use/Input/Returns/Handler, returns a value built
// by factory, so the custom type and its methods persist through the chain.
// Builder-local extension state should ride in the factory closure or be
// expressed as definition contents (middleware, validators).
func Extend[B any](def Definition, factory func(Definition) B) B {
	if factory == nil {
		configPanic("Extend", "nil clone factory")
	}
	return factory(def)
}
