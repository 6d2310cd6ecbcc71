package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DraftURI is the "$schema" dialect emitted for compiled documents.
const DraftURI = "https://json-schema.org/draft/2020-12/schema"

var (
	// ErrUnsupportedFieldType is returned when a field carries an unknown type marker.
	ErrUnsupportedFieldType = errors.New("unsupported field type")

	// ErrInvalidDefinition is returned for structurally broken definitions
	// (missing names, duplicate fields, arrays without items, empty objects).
	ErrInvalidDefinition = errors.New("invalid schema definition")
)

// node is one JSON Schema node. Field order in the struct is the order in the output.
type node struct {
	Schema               string     `json:"$schema,omitempty"`
	Type                 string     `json:"type"`
	Description          string     `json:"description,omitempty"`
	Properties           properties `json:"properties,omitempty"`
	Required             []string   `json:"required,omitempty"`
	AdditionalProperties *bool      `json:"additionalProperties,omitempty"`
	Items                *node      `json:"items,omitempty"`
}

type property struct {
	name   string
	schema *node
}

// properties marshals as a JSON object that keeps definition order.
type properties []property

func (p properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, prop := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(prop.name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(prop.schema)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Compile converts a definition into a JSON Schema document.
// The output is deterministic: compiling the same definition twice yields identical bytes.
func Compile(def Definition) (json.RawMessage, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: definition has no name", ErrInvalidDefinition)
	}

	root, err := compileObject(def.Name, def.Fields)
	if err != nil {
		return nil, err
	}
	root.Schema = DraftURI

	out, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema %q: %w", def.Name, err)
	}
	return out, nil
}

func compileObject(path string, fields []Field) (*node, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: object %q has no fields", ErrInvalidDefinition, path)
	}

	closed := false
	n := &node{
		Type:                 string(TypeObject),
		Properties:           make(properties, 0, len(fields)),
		AdditionalProperties: &closed,
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: unnamed field in %q", ErrInvalidDefinition, path)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q in %q", ErrInvalidDefinition, f.Name, path)
		}
		seen[f.Name] = struct{}{}

		child, err := compileField(path+"."+f.Name, f)
		if err != nil {
			return nil, err
		}
		n.Properties = append(n.Properties, property{name: f.Name, schema: child})
		if !f.Optional {
			n.Required = append(n.Required, f.Name)
		}
	}
	return n, nil
}

func compileField(path string, f Field) (*node, error) {
	var n *node

	switch f.Type {
	case TypeString, TypeBoolean, TypeNumber, TypeInteger:
		n = &node{Type: string(f.Type)}
	case TypeArray:
		if f.Items == nil {
			return nil, fmt.Errorf("%w: array %q has no items", ErrInvalidDefinition, path)
		}
		items, err := compileField(path+"[]", *f.Items)
		if err != nil {
			return nil, err
		}
		n = &node{Type: string(TypeArray), Items: items}
	case TypeObject:
		obj, err := compileObject(path, f.Fields)
		if err != nil {
			return nil, err
		}
		n = obj
	default:
		return nil, fmt.Errorf("%w: %q at %s", ErrUnsupportedFieldType, f.Type, path)
	}

	n.Description = f.Description
	return n, nil
}
