package highlight

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// Format serializes value as 2-space indented JSON.
// A string is taken to be serialized JSON already and returned as is;
// json.RawMessage and []byte are re-indented without changing the value.
func Format(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.RawMessage:
		return indent(v)
	case []byte:
		return indent(v)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("failed to serialize value: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func indent(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return buf.String(), nil
}

// HTML formats value and wraps every classified token in
// <span class="json-KIND">. All text is HTML-escaped, so removing the spans
// and unescaping yields the formatted JSON.
func HTML(value any) (string, error) {
	text, err := Format(value)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(text) * 2)
	for _, tok := range Tokenize(text) {
		if tok.Kind == Plain {
			b.WriteString(html.EscapeString(tok.Text))
			continue
		}
		b.WriteString(`<span class="json-`)
		b.WriteString(tok.Kind.String())
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(tok.Text))
		b.WriteString(`</span>`)
	}
	return b.String(), nil
}
