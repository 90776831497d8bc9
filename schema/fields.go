package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Field declares a single named argument or result field.
type Field struct {
	// Kind constrains the field's value. KindAny (or empty) accepts anything.
	Kind Kind
	// Optional marks the field as omissible. Required fields with no
	// Default produce a CodeMissing issue when absent.
	Optional bool
	// Default is substituted when the field is absent. A field with a
	// Default is never reported missing. Composite defaults are copied
	// before substitution so callers cannot alias validator state.
	Default any
}

// Fields is a field-map validator. It checks an input map against the
// declared fields, rejects undeclared keys, fills defaults, and returns
// a fresh canonicalized map.
type Fields map[string]Field

var _ Validator = Fields{}

// Shape reports the declared field kinds.
func (f Fields) Shape() Shape {
	shape := make(Shape, len(f))
	for name, field := range f {
		kind := field.Kind
		if kind == "" {
			kind = KindAny
		}
		shape[name] = kind
	}
	return shape
}

// Validate checks value against the declared fields. The input must be a
// map[string]any (nil is treated as empty). The input is never mutated;
// the returned map is freshly allocated.
func (f Fields) Validate(value any) (any, error) {
	in, err := asMap(value)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	out := make(map[string]any, len(f))

	for name := range in {
		if _, ok := f[name]; !ok {
			issues = append(issues, issuef(name, CodeUnknown, "field is not declared"))
		}
	}

	for name, field := range f {
		raw, present := in[name]
		if !present {
			if field.Default != nil {
				out[name] = deepCopy(field.Default)
				continue
			}
			if field.Optional {
				continue
			}
			issues = append(issues, issuef(name, CodeMissing, "required field is missing"))
			continue
		}
		canon, issue := canonicalize(name, field.Kind, raw)
		if issue != nil {
			issues = append(issues, *issue)
			continue
		}
		out[name] = canon
	}

	if len(issues) > 0 {
		sortIssues(issues)
		return nil, &ValidationError{Issues: issues}
	}
	return out, nil
}

func asMap(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, &ValidationError{Issues: []Issue{
			issuef("", CodeType, "expected map, got %s", kindOf(value)),
		}}
	}
}

func sortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Path != issues[j].Path {
			return issues[i].Path < issues[j].Path
		}
		return issues[i].Code < issues[j].Code
	})
}

// canonicalize coerces raw to the canonical representation of kind, or
// returns a type issue. JSON decoding yields float64 for all numbers, so
// integral floats are accepted for KindInt.
func canonicalize(path string, kind Kind, raw any) (any, *Issue) {
	switch kind {
	case KindAny, "":
		return raw, nil

	case KindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}

	case KindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}

	case KindInt:
		if n, ok := asInt64(raw); ok {
			return n, nil
		}

	case KindFloat:
		if n, ok := asFloat64(raw); ok {
			return n, nil
		}

	case KindList:
		if list, ok := asList(raw); ok {
			return list, nil
		}

	case KindMap:
		if m, ok := raw.(map[string]any); ok {
			out := make(map[string]any, len(m))
			for k, v := range m {
				out[k] = v
			}
			return out, nil
		}

	default:
		issue := issuef(path, CodeType, "unsupported kind %q", kind)
		return nil, &issue
	}

	issue := issuef(path, CodeType, "expected %s, got %s", kind, kindOf(raw))
	return nil, &issue
}

func asInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return integralFloat(float64(n))
	case float64:
		return integralFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if fl, err := n.Float64(); err == nil {
			return integralFloat(fl)
		}
	}
	return 0, false
}

func integralFloat(fl float64) (int64, bool) {
	if math.Trunc(fl) != fl || math.IsInf(fl, 0) || math.IsNaN(fl) {
		return 0, false
	}
	return int64(fl), true
}

func asFloat64(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		if fl, err := n.Float64(); err == nil {
			return fl, true
		}
	}
	return 0, false
}

func asList(raw any) ([]any, bool) {
	if list, ok := raw.([]any); ok {
		out := make([]any, len(list))
		copy(out, list)
		return out, true
	}
	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// deepCopy clones JSON-shaped values (maps, slices, scalars). Values of
// other types are returned as-is; defaults should be JSON-shaped.
func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return value
	}
}

// kindOf names the runtime kind of a canonical value, for diagnostics.
func kindOf(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case string:
		return string(KindString)
	case bool:
		return string(KindBool)
	case int64:
		return string(KindInt)
	case float64:
		return string(KindFloat)
	case []any:
		return string(KindList)
	case map[string]any:
		return string(KindMap)
	default:
		return fmt.Sprintf("%T", raw)
	}
}
