package providers

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"
)

const bandsSchema = `{"$schema":"https://json-schema.org/draft/2020-12/schema","type":"object","properties":{"bands":{"type":"array","items":{"type":"string"}}},"required":["bands"],"additionalProperties":false}`

func TestValidateStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr bool
	}{
		{"conforming", `{"bands":["The Testers","Nobody"]}`, false},
		{"empty list", `{"bands":[]}`, false},
		{"missing required", `{}`, true},
		{"wrong item type", `{"bands":[1]}`, true},
		{"extra property", `{"bands":[],"venue":"x"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStructuredJSON(json.RawMessage(bandsSchema), json.RawMessage(tt.output))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStructuredJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "does not match schema") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	t.Run("nothing to check", func(t *testing.T) {
		if err := ValidateStructuredJSON(nil, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if err := ValidateStructuredJSON(json.RawMessage(bandsSchema), nil); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	})

	t.Run("invalid output", func(t *testing.T) {
		err := ValidateStructuredJSON(json.RawMessage(bandsSchema), json.RawMessage(`not json`))
		if err == nil || !strings.Contains(err.Error(), "failed to decode") {
			t.Fatalf("expected decode error, got %v", err)
		}
	})
}

func TestStrictCompatible(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		want   bool
	}{
		{"all required", bandsSchema, true},
		{
			"optional top-level property",
			`{"type":"object","properties":{"headliner":{"type":"string"},"price":{"type":"number"}},"required":["headliner"]}`,
			false,
		},
		{
			"optional property inside array items",
			`{"type":"object","properties":{"events":{"type":"array","items":{"type":"object","properties":{"date":{"type":"string"},"venue":{"type":"string"}},"required":["date"]}}},"required":["events"]}`,
			false,
		},
		{
			"nested objects all required",
			`{"type":"object","properties":{"venue":{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}},"required":["venue"]}`,
			true,
		},
		{"not json", `{`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StrictCompatible(json.RawMessage(tt.schema)); got != tt.want {
				t.Errorf("StrictCompatible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatName(t *testing.T) {
	valid := regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

	tests := []struct {
		in   string
		want string
	}{
		{"Bands Only", "bands_only"},
		{"Events", "events"},
		{"tour-dates_2025", "tour-dates_2025"},
		{"Café & Bar!", "caf____bar_"},
		{"", "response"},
		{strings.Repeat("x", 100), strings.Repeat("x", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := FormatName(tt.in)
			if got != tt.want {
				t.Errorf("FormatName(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if !valid.MatchString(got) {
				t.Errorf("FormatName(%q) = %q is not a valid format name", tt.in, got)
			}
		})
	}
}

func TestJSONSchemaFormat(t *testing.T) {
	t.Run("display name and required fields", func(t *testing.T) {
		rf := JSONSchemaFormat("Bands Only", json.RawMessage(bandsSchema))
		if rf.Name != "bands_only" || !rf.Strict || rf.Type != "json_schema" {
			t.Errorf("JSONSchemaFormat() = %+v", rf)
		}
	})

	t.Run("optional field disables strict", func(t *testing.T) {
		schema := `{"type":"object","properties":{"headliner":{"type":"string"},"price":{"type":"number"}},"required":["headliner"]}`
		if rf := JSONSchemaFormat("Gig", json.RawMessage(schema)); rf.Strict {
			t.Error("strict should be off when a property is optional")
		}
	})
}
