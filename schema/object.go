package schema

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Object builds a structural validator from a composite JSON schema. Field
// kinds come from the property types, the required set from Required, and
// defaults from per-property "default" values. Refinement keywords (ranges,
// formats, enums, patterns) are not enforced; use Refined for those.
//
// Object panics if s is nil or does not describe an object. Schema shape is
// build-time configuration, not runtime input.
func Object(s *jsonschema.Schema) Validator {
	fields, err := fieldsFromSchema(s)
	if err != nil {
		panic("schema: " + err.Error())
	}
	return fields
}

func fieldsFromSchema(s *jsonschema.Schema) (Fields, error) {
	if s == nil {
		return nil, fmt.Errorf("nil schema")
	}
	if t := schemaType(s); t != "object" {
		return nil, fmt.Errorf("expected object schema, got %q", t)
	}
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}
	fields := make(Fields, len(s.Properties))
	for name, prop := range s.Properties {
		field := Field{Kind: kindFromSchema(prop), Optional: !required[name]}
		if prop != nil && len(prop.Default) > 0 {
			var def any
			if err := json.Unmarshal(prop.Default, &def); err != nil {
				return nil, fmt.Errorf("default for %q: %w", name, err)
			}
			field.Default = def
		}
		fields[name] = field
	}
	return fields, nil
}

func schemaType(s *jsonschema.Schema) string {
	if s.Type != "" {
		return s.Type
	}
	if len(s.Types) == 1 {
		return s.Types[0]
	}
	return ""
}

func kindFromSchema(s *jsonschema.Schema) Kind {
	if s == nil {
		return KindAny
	}
	switch schemaType(s) {
	case "string":
		return KindString
	case "integer":
		return KindInt
	case "number":
		return KindFloat
	case "boolean":
		return KindBool
	case "array":
		return KindList
	case "object":
		return KindMap
	default:
		return KindAny
	}
}
