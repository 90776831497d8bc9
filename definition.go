package loom

import "github.com/loomwork/loom/schema"

// Kind classifies a pipeline for its host: queries read, mutations write,
// actions reach outside the data layer. The core carries the kind through to
// the descriptor and the invocation identity without interpreting it.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
	KindAction   Kind = "action"
)

// Visibility controls whether a registered pipeline may be invoked from
// outside the host platform.
type Visibility string

const (
	VisibilityUnset    Visibility = ""
	VisibilityPublic   Visibility = "public"
	VisibilityInternal Visibility = "internal"
)

// Definition is the immutable description of one pipeline: its kind, the
// ordered middleware stack, optional args and returns validators, the
// terminal handler, and the registered visibility. Chain methods derive new
// Definitions; an existing Definition is never modified in place, so values
// are safe for unsynchronized sharing across goroutines.
type Definition struct {
	kind       Kind
	middleware []Middleware
	args       schema.Validator
	returns    schema.Validator
	handler    Handler
	visibility Visibility
}

// NewDefinition returns an empty Definition of the given kind.
func NewDefinition(kind Kind) Definition {
	return Definition{kind: kind}
}

// Kind reports the pipeline kind.
func (d Definition) Kind() Kind { return d.kind }

// Visibility reports the registered visibility, VisibilityUnset until the
// definition is registered.
func (d Definition) Visibility() Visibility { return d.visibility }

// Handled reports whether a terminal handler has been attached.
func (d Definition) Handled() bool { return d.handler != nil }

// checkOpen rejects chain calls on a registered definition. Registration is
// terminal; later calls are construction bugs.
func (d Definition) checkOpen(op string) {
	if d.visibility != VisibilityUnset {
		configPanic(op, "definition is registered and terminal")
	}
}

// withMiddleware appends one middleware. The stack is reallocated so
// definitions sharing a prefix never alias each other's layers.
func (d Definition) withMiddleware(mw Middleware) Definition {
	if mw == nil {
		configPanic("Use", "nil middleware")
	}
	d.checkOpen("Use")
	mws := make([]Middleware, len(d.middleware), len(d.middleware)+1)
	copy(mws, d.middleware)
	d.middleware = append(mws, mw)
	return d
}

func (d Definition) withArgs(v schema.Validator) Definition {
	if v == nil {
		configPanic("Input", "nil validator")
	}
	d.checkOpen("Input")
	if d.handler != nil {
		configPanic("Input", "handler already attached")
	}
	if d.args != nil {
		configPanic("Input", "args validator already attached")
	}
	d.args = v
	return d
}

func (d Definition) withReturns(v schema.Validator) Definition {
	if v == nil {
		configPanic("Returns", "nil validator")
	}
	d.checkOpen("Returns")
	if d.handler != nil {
		configPanic("Returns", "handler already attached")
	}
	if d.returns != nil {
		configPanic("Returns", "returns validator already attached")
	}
	d.returns = v
	return d
}

func (d Definition) withHandler(fn Handler) Definition {
	if fn == nil {
		configPanic("Handler", "nil handler")
	}
	d.checkOpen("Handler")
	if d.handler != nil {
		configPanic("Handler", "handler already attached")
	}
	d.handler = fn
	return d
}

// withVisibility freezes the definition. Requires a handler; op names the
// public chain method for diagnostics.
func (d Definition) withVisibility(op string, vis Visibility) Definition {
	d.checkOpen(op)
	if d.handler == nil {
		configPanic(op, "registration requires a handler")
	}
	d.visibility = vis
	return d
}

func shapeOf(v schema.Validator) schema.Shape {
	if v == nil {
		return nil
	}
	return v.Shape()
}
