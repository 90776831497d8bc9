package schema

import (
	"errors"
	"fmt"
)

// Code classifies a validation issue.
type Code string

const (
	// CodeMissing indicates a required field is absent.
	CodeMissing Code = "missing"
	// CodeUnknown indicates a field not declared by the schema.
	CodeUnknown Code = "unknown"
	// CodeType indicates a value of the wrong kind.
	CodeType Code = "type"
	// CodeRefinement indicates a value that is structurally valid but
	// violates a declarative refinement (range, format, enum, pattern).
	CodeRefinement Code = "refinement"
	// CodeCustom indicates a custom predicate rejected the value.
	CodeCustom Code = "custom"
)

// Issue is a single field-level validation diagnostic.
type Issue struct {
	// Path names the offending field; empty for whole-value issues.
	Path    string
	Code    Code
	Message string
}

// Error formats the issue for display.
func (i Issue) Error() string {
	if i.Path == "" {
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Code, i.Path, i.Message)
}

// ValidationError reports that a value failed structural or refinement
// checks. It carries one issue per offending field, in a stable order.
type ValidationError struct {
	Issues []Issue
}

// Error returns a compact summary of the validation issues.
func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "validation failed"
	case 1:
		return e.Issues[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", e.Issues[0].Error(), len(e.Issues)-1)
	}
}

// AsValidationError extracts a *ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func issuef(path string, code Code, format string, args ...any) Issue {
	return Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)}
}
