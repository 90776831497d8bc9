package schema

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Refined builds a validator enforcing the full schema: the structural gate
// of Object plus declarative refinements (ranges, string formats, enums,
// patterns) via schema resolution. Defaults are applied before refinement
// checks, so a default value that violates its own constraints fails
// validation. Unknown fields are rejected regardless of the schema's
// additionalProperties.
func Refined(s *jsonschema.Schema) (Validator, error) {
	fields, err := fieldsFromSchema(s)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	resolved, err := s.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
	if err != nil {
		return nil, fmt.Errorf("schema: resolve: %w", err)
	}
	return &refined{fields: fields, resolved: resolved}, nil
}

// For derives a refined validator from a Go struct type, using the type's
// fields and jsonschema struct tags.
func For[T any]() (Validator, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return Refined(s)
}

type refined struct {
	fields   Fields
	resolved *jsonschema.Resolved
}

func (r *refined) Shape() Shape { return r.fields.Shape() }

func (r *refined) Validate(value any) (any, error) {
	structural, err := r.fields.Validate(value)
	if err != nil {
		return nil, err
	}
	out := structural.(map[string]any)
	if err := r.resolved.ApplyDefaults(&out); err != nil {
		return nil, &ValidationError{Issues: []Issue{
			issuef("", CodeRefinement, "applying defaults: %v", err),
		}}
	}
	if err := r.resolved.Validate(out); err != nil {
		return nil, &ValidationError{Issues: []Issue{
			issuef("", CodeRefinement, "%v", err),
		}}
	}
	return out, nil
}

// Refine layers a named custom predicate over v. The check runs on the
// validated value, after v has applied defaults. A non-nil error from check
// is reported as a CodeCustom issue; a *ValidationError from check passes
// through unchanged.
func Refine(v Validator, name string, check func(value any) error) Validator {
	if v == nil {
		panic("schema: nil validator passed to Refine")
	}
	if check == nil {
		panic("schema: nil check passed to Refine")
	}
	return &refineValidator{base: v, name: name, check: check}
}

type refineValidator struct {
	base  Validator
	name  string
	check func(value any) error
}

func (r *refineValidator) Shape() Shape { return r.base.Shape() }

func (r *refineValidator) Validate(value any) (any, error) {
	out, err := r.base.Validate(value)
	if err != nil {
		return nil, err
	}
	if err := r.check(out); err != nil {
		if ve, ok := AsValidationError(err); ok {
			return nil, ve
		}
		return nil, &ValidationError{Issues: []Issue{
			issuef("", CodeCustom, "%s: %v", r.name, err),
		}}
	}
	return out, nil
}
