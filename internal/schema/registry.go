// Package schema holds the extraction schemas a user can pick from and
// compiles them into JSON Schema documents for the model.
package schema

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrSchemaNotFound is returned by Resolve when no schema has the requested name.
var ErrSchemaNotFound = errors.New("schema not found")

// Registry is a fixed, ordered set of extraction schemas.
// It is built once at startup and never mutated, so it is safe for concurrent use.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry creates a registry from the given definitions, in order.
// Names must be non-empty and unique.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		defs:  make([]Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: definition has no name", ErrInvalidDefinition)
		}
		if _, exists := r.index[d.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate schema name %q", ErrInvalidDefinition, d.Name)
		}
		r.index[d.Name] = len(r.defs)
		r.defs = append(r.defs, d.clone())
	}
	return r, nil
}

// Names returns all schema names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Resolve returns a copy of the schema with exactly the given name.
// Changes to the copy do not reach the registry.
func (r *Registry) Resolve(name string) (*Definition, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	d := r.defs[i].clone()
	return &d, nil
}

// Check compiles every registered schema and loads it into a JSON Schema
// compiler, which validates it against the draft 2020-12 meta-schema.
func (r *Registry) Check() error {
	for i, d := range r.defs {
		raw, err := Compile(d)
		if err != nil {
			return fmt.Errorf("schema %q: %w", d.Name, err)
		}

		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("schema-%d.json", i)
		if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
			return fmt.Errorf("schema %q: failed to load: %w", d.Name, err)
		}
		if _, err := compiler.Compile(url); err != nil {
			return fmt.Errorf("schema %q: failed to compile: %w", d.Name, err)
		}
	}
	return nil
}
