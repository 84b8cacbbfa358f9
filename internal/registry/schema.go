package registry

import (
	"fmt"
	"math"
	"strings"
)

// Schema is the JSON-schema-shaped contract a manifest declares for its
// input and output. Only the subset the corpus actually uses is modeled:
// type, properties, required, items, enum.
type Schema struct {
	Type        string             `json:"type" yaml:"type"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	Enum        []interface{}      `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// ObjectSchema is a convenience constructor for the common case.
func ObjectSchema(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: "object", Properties: properties, Required: required}
}

// Validate checks value against the schema and returns a descriptive error
// naming the offending path on mismatch.
func (s *Schema) Validate(value interface{}) error {
	return s.validate("$", value)
}

func (s *Schema) validate(path string, value interface{}) error {
	if s == nil {
		return nil
	}

	switch s.Type {
	case "", "any":
		// Untyped schema constrains nothing beyond enum below.
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", path, value)
		}
		for _, req := range s.Required {
			if _, present := obj[req]; !present {
				return fmt.Errorf("%s: missing required property %q", path, req)
			}
		}
		for name, propSchema := range s.Properties {
			if v, present := obj[name]; present {
				if err := propSchema.validate(path+"."+name, v); err != nil {
					return err
				}
			}
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("%s: expected array, got %T", path, value)
		}
		for i, item := range arr {
			if err := s.Items.validate(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string, got %T", path, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", path, value)
		}
	case "number":
		if !isNumber(value) {
			return fmt.Errorf("%s: expected number, got %T", path, value)
		}
	case "integer":
		if !isInteger(value) {
			return fmt.Errorf("%s: expected integer, got %T", path, value)
		}
	default:
		return fmt.Errorf("%s: unsupported schema type %q", path, s.Type)
	}

	if len(s.Enum) > 0 {
		for _, allowed := range s.Enum {
			if fmt.Sprintf("%v", allowed) == fmt.Sprintf("%v", value) {
				return nil
			}
		}
		allowed := make([]string, len(s.Enum))
		for i, v := range s.Enum {
			allowed[i] = fmt.Sprintf("%v", v)
		}
		return fmt.Errorf("%s: value %v not in enum [%s]", path, value, strings.Join(allowed, ", "))
	}
	return nil
}

func isNumber(value interface{}) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}

func isInteger(value interface{}) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		// JSON decoding yields float64 for every number.
		return v == math.Trunc(v)
	default:
		return false
	}
}
