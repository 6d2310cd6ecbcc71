package providers

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// LLMClient is the interface for image-capable chat completion providers.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content,omitempty"`

	// ImageURLs are sent as image_url content parts after the text.
	// Data URLs (data:image/jpeg;base64,...) are passed through untouched.
	ImageURLs []string `json:"-"`
}

// ResponseFormat constrains the model output to a JSON Schema.
type ResponseFormat struct {
	Type   string          `json:"type"` // "json_schema"
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	// Response content as returned by the model.
	Content string `json:"content"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// JSONSchemaFormat returns a json_schema response format for the given schema document.
// The name is reduced to the identifier form providers accept. Strict mode is requested
// only when every object property is required, since strict providers reject anything else.
func JSONSchemaFormat(name string, schema json.RawMessage) *ResponseFormat {
	return &ResponseFormat{
		Type:   "json_schema",
		Name:   FormatName(name),
		Strict: StrictCompatible(schema),
		Schema: schema,
	}
}

// maxFormatNameLen is the longest response format name OpenAI accepts.
const maxFormatNameLen = 64

// FormatName maps a display name onto [A-Za-z0-9_-]{1,64}.
// Other runes become underscores and the result is lowercased: "Bands Only" -> "bands_only".
func FormatName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if b.Len() >= maxFormatNameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "response"
	}
	return b.String()
}
