package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackzampolin/marquee/internal/providers"
)

// DefaultCapacity bounds the number of metrics a Recorder keeps.
const DefaultCapacity = 1000

// Recorder keeps the most recent metrics in a fixed-size ring.
type Recorder struct {
	mu    sync.RWMutex
	ring  []Metric
	next  int
	full  bool
	total int
	now   func() time.Time
}

// NewRecorder creates a recorder holding up to capacity metrics.
// A non-positive capacity uses DefaultCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		ring: make([]Metric, capacity),
		now:  time.Now,
	}
}

// RecordOpts provides context for a metric recording.
type RecordOpts struct {
	RequestID string
	Schema    string
	Provider  string
}

// Record stores a single metric, evicting the oldest when full.
func (r *Recorder) Record(m Metric) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now()
	}
	r.ring[r.next] = m
	r.next = (r.next + 1) % len(r.ring)
	if r.next == 0 {
		r.full = true
	}
	r.total++
}

// RecordLLMCall records a chat call. result may be nil when the client
// failed before producing one; callErr then supplies the error type.
func (r *Recorder) RecordLLMCall(opts RecordOpts, result *providers.ChatResult, callErr error) {
	if r == nil {
		return
	}

	m := Metric{
		RequestID: opts.RequestID,
		Schema:    opts.Schema,
		Provider:  opts.Provider,
		Success:   callErr == nil,
	}

	if result != nil {
		if result.Provider != "" {
			m.Provider = result.Provider
		}
		m.Model = result.ModelUsed
		m.PromptTokens = result.PromptTokens
		m.CompletionTokens = result.CompletionTokens
		m.TotalTokens = result.TotalTokens
		m.ExecutionSeconds = result.ExecutionTime.Seconds()
		m.Attempts = result.Attempts
		m.ErrorType = result.ErrorType
	}

	if callErr != nil && m.ErrorType == "" {
		m.ErrorType = errorType(callErr)
	}

	r.Record(m)
}

func errorType(err error) string {
	if apiErr, ok := providers.AsAPIError(err); ok {
		if apiErr.RateLimited() {
			return "rate_limited"
		}
		return "http_error"
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// List returns metrics matching the filter, newest first.
// limit <= 0 returns all matches.
func (r *Recorder) List(f Filter, limit int) []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.ring)
	}

	out := make([]Metric, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.next - 1 - i + len(r.ring)) % len(r.ring)
		m := r.ring[idx]
		if !f.Match(m) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Total returns the number of metrics ever recorded, including evicted ones.
func (r *Recorder) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
