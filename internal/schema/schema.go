// Package schema describes the shape of structured model output. A Schema is
// sent to the provider to constrain generation and is reused locally to check
// the decoded payload.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind is the closed set of node types.
type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindInteger
	KindBoolean
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "STRING"
	case KindNumber:
		return "NUMBER"
	case KindInteger:
		return "INTEGER"
	case KindBoolean:
		return "BOOLEAN"
	case KindArray:
		return "ARRAY"
	case KindObject:
		return "OBJECT"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Property is a named field of an object node. Properties keep declaration
// order, which is also sent to the provider as propertyOrdering.
type Property struct {
	Name   string
	Schema *Schema
}

// Schema is one node of a response shape.
type Schema struct {
	Kind       Kind
	Enum       []string
	Items      *Schema
	Properties []Property
	Required   []string
}

// String returns a string node, optionally restricted to values.
func String(values ...string) *Schema {
	return &Schema{Kind: KindString, Enum: values}
}

// Number returns a floating point node.
func Number() *Schema { return &Schema{Kind: KindNumber} }

// Integer returns an integer node.
func Integer() *Schema { return &Schema{Kind: KindInteger} }

// Boolean returns a boolean node.
func Boolean() *Schema { return &Schema{Kind: KindBoolean} }

// Array returns an array node of items.
func Array(items *Schema) *Schema {
	return &Schema{Kind: KindArray, Items: items}
}

// Object returns an object node with the given properties and required names.
func Object(props []Property, required ...string) *Schema {
	return &Schema{Kind: KindObject, Properties: props, Required: required}
}

// Prop is shorthand for building a Property.
func Prop(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

// IsArray reports whether the top-level node is an array.
func (s *Schema) IsArray() bool {
	return s != nil && s.Kind == KindArray
}

// Validate checks that the descriptor itself is well formed.
func (s *Schema) Validate() error {
	return s.validate("$")
}

func (s *Schema) validate(path string) error {
	if s == nil {
		return fmt.Errorf("schema: %s: nil node", path)
	}
	if len(s.Enum) > 0 && s.Kind != KindString {
		return fmt.Errorf("schema: %s: enum is only allowed on strings", path)
	}
	switch s.Kind {
	case KindString, KindNumber, KindInteger, KindBoolean:
		if s.Items != nil || len(s.Properties) > 0 || len(s.Required) > 0 {
			return fmt.Errorf("schema: %s: primitive %s cannot declare items or properties", path, s.Kind)
		}
		return nil
	case KindArray:
		if s.Items == nil {
			return fmt.Errorf("schema: %s: array without items", path)
		}
		if len(s.Properties) > 0 || len(s.Required) > 0 {
			return fmt.Errorf("schema: %s: array cannot declare properties", path)
		}
		return s.Items.validate(path + "[]")
	case KindObject:
		if s.Items != nil {
			return fmt.Errorf("schema: %s: object cannot declare items", path)
		}
		declared := make(map[string]struct{}, len(s.Properties))
		for _, p := range s.Properties {
			name := strings.TrimSpace(p.Name)
			if name == "" {
				return fmt.Errorf("schema: %s: empty property name", path)
			}
			if _, dup := declared[name]; dup {
				return fmt.Errorf("schema: %s: duplicate property %q", path, name)
			}
			declared[name] = struct{}{}
			if err := p.Schema.validate(path + "." + name); err != nil {
				return err
			}
		}
		for _, req := range s.Required {
			if _, ok := declared[req]; !ok {
				return fmt.Errorf("schema: %s: required field %q is not a declared property", path, req)
			}
		}
		return nil
	default:
		return fmt.Errorf("schema: %s: unknown kind %d", path, int(s.Kind))
	}
}

// ErrMismatch is wrapped by every Check failure.
var ErrMismatch = errors.New("schema mismatch")

// Check verifies that value, as produced by encoding/json into an any,
// matches the schema. Unknown object fields are tolerated.
func (s *Schema) Check(value any) error {
	return s.check("$", value)
}

func (s *Schema) check(path string, value any) error {
	switch s.Kind {
	case KindString:
		str, ok := value.(string)
		if !ok {
			return mismatch(path, "string", value)
		}
		if len(s.Enum) > 0 && !contains(s.Enum, str) {
			return fmt.Errorf("%w: %s: %q is not one of %v", ErrMismatch, path, str, s.Enum)
		}
		return nil
	case KindNumber:
		if _, ok := asFloat(value); !ok {
			return mismatch(path, "number", value)
		}
		return nil
	case KindInteger:
		f, ok := asFloat(value)
		if !ok || f != math.Trunc(f) {
			return mismatch(path, "integer", value)
		}
		return nil
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return mismatch(path, "boolean", value)
		}
		return nil
	case KindArray:
		items, ok := value.([]any)
		if !ok {
			return mismatch(path, "array", value)
		}
		for i, item := range items {
			if err := s.Items.check(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
		return nil
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return mismatch(path, "object", value)
		}
		for _, req := range s.Required {
			if v, ok := obj[req]; !ok || v == nil {
				return fmt.Errorf("%w: %s: missing required field %q", ErrMismatch, path, req)
			}
		}
		for _, p := range s.Properties {
			v, ok := obj[p.Name]
			if !ok || v == nil {
				continue
			}
			if err := p.Schema.check(path+"."+p.Name, v); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s: unknown kind %d", ErrMismatch, path, int(s.Kind))
	}
}

func mismatch(path, want string, got any) error {
	return fmt.Errorf("%w: %s: expected %s, got %s", ErrMismatch, path, want, describe(got))
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

type wireSchema struct {
	Type             string             `json:"type"`
	Enum             []string           `json:"enum,omitempty"`
	Format           string             `json:"format,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	Required         []string           `json:"required,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
}

// MarshalJSON renders the provider's OpenAPI-subset schema format.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	w := wireSchema{Type: s.Kind.String(), Items: s.Items, Required: s.Required}
	if len(s.Enum) > 0 {
		w.Enum = s.Enum
		w.Format = "enum"
	}
	if len(s.Properties) > 0 {
		w.Properties = make(map[string]*Schema, len(s.Properties))
		for _, p := range s.Properties {
			w.Properties[p.Name] = p.Schema
			w.PropertyOrdering = append(w.PropertyOrdering, p.Name)
		}
	}
	return json.Marshal(w)
}
