package providers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateStructuredJSON validates model output against a JSON Schema document.
// Empty schema or output is treated as nothing to check.
func ValidateStructuredJSON(schemaRaw, output json.RawMessage) error {
	if len(schemaRaw) == 0 || len(output) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaRaw)); err != nil {
		return fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile structured schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(output, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

// StrictCompatible reports whether a schema document can be sent in strict mode:
// every object node must list all of its properties as required.
// Documents that do not decode are reported as not compatible.
func StrictCompatible(schemaRaw json.RawMessage) bool {
	var doc any
	if err := json.Unmarshal(schemaRaw, &doc); err != nil {
		return false
	}
	return allRequired(doc)
}

func allRequired(v any) bool {
	n, ok := v.(map[string]any)
	if !ok {
		return true
	}

	if props, ok := n["properties"].(map[string]any); ok {
		required := make(map[string]bool)
		if list, ok := n["required"].([]any); ok {
			for _, name := range list {
				if s, ok := name.(string); ok {
					required[s] = true
				}
			}
		}
		for name, sub := range props {
			if !required[name] || !allRequired(sub) {
				return false
			}
		}
	}
	if items, ok := n["items"]; ok && !allRequired(items) {
		return false
	}
	return true
}
