// Package metrics tracks usage of model calls made by the extraction pipeline.
// Records live in memory for the lifetime of the process.
package metrics

import "time"

// Metric is a single recorded model call.
type Metric struct {
	RequestID string `json:"request_id,omitempty"`
	Schema    string `json:"schema,omitempty"`

	// Provider info
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Tokens
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Timing
	ExecutionSeconds float64 `json:"execution_seconds,omitempty"`
	Attempts         int     `json:"attempts,omitempty"`

	// Status
	Success   bool   `json:"success"`
	ErrorType string `json:"error_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter selects metrics. Zero fields match everything.
type Filter struct {
	Schema   string
	Provider string
	Model    string
	After    time.Time
	Success  *bool // nil = any, true = success only, false = errors only
}

// Match reports whether m passes the filter.
func (f Filter) Match(m Metric) bool {
	if f.Schema != "" && m.Schema != f.Schema {
		return false
	}
	if f.Provider != "" && m.Provider != f.Provider {
		return false
	}
	if f.Model != "" && m.Model != f.Model {
		return false
	}
	if !f.After.IsZero() && !m.CreatedAt.After(f.After) {
		return false
	}
	if f.Success != nil && m.Success != *f.Success {
		return false
	}
	return true
}
