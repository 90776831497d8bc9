// Package schema normalizes heterogeneous validator descriptors into a single
// runtime contract used by pipeline definitions.
//
// Three descriptor shapes are supported: a plain field-name-to-kind mapping
// ([Fields]), a single composite structural schema ([Object]), and an external
// refinement schema ([Refined], [For]) that enforces value-level constraints
// beyond structural typing. All of them produce a [Validator]; anything else
// that implements [Validator] participates directly.
package schema

// Kind identifies the primitive kind of a field in a structural descriptor.
type Kind string

const (
	// KindString matches string values.
	KindString Kind = "string"
	// KindInt matches integer values. Integral floats are accepted because
	// JSON transports decode every number as float64; validated values are
	// canonicalized to int64.
	KindInt Kind = "int"
	// KindFloat matches any numeric value; canonicalized to float64.
	KindFloat Kind = "float"
	// KindBool matches boolean values.
	KindBool Kind = "bool"
	// KindList matches any slice or array; canonicalized to []any.
	// Element values are not inspected.
	KindList Kind = "list"
	// KindMap matches map[string]any values. Entry values are not inspected.
	KindMap Kind = "map"
	// KindAny matches every value. An empty Kind behaves the same.
	KindAny Kind = "any"
)

// Shape is a structural descriptor: field name to primitive kind. Hosts use
// it for their own coarse structural gate; the refinement pass happens only
// through a Validator.
type Shape map[string]Kind

// Validator is the normalized runtime contract every descriptor variant
// reduces to. Validate returns a fresh validated value with defaults applied,
// or a *ValidationError carrying per-field diagnostics; the input value is
// never mutated. Implementations must be safe for concurrent use.
type Validator interface {
	Validate(value any) (any, error)
	Shape() Shape
}
