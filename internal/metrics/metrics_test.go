package metrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/marquee/internal/providers"
)

func TestRecorder_Ring(t *testing.T) {
	r := NewRecorder(3)
	for i := 1; i <= 5; i++ {
		r.Record(Metric{RequestID: fmt.Sprintf("req-%d", i), Success: true})
	}

	got := r.List(Filter{}, 0)
	if len(got) != 3 {
		t.Fatalf("List() returned %d metrics, want 3", len(got))
	}
	for i, want := range []string{"req-5", "req-4", "req-3"} {
		if got[i].RequestID != want {
			t.Errorf("List()[%d] = %s, want %s", i, got[i].RequestID, want)
		}
	}
	if r.Total() != 5 {
		t.Errorf("Total() = %d, want 5", r.Total())
	}

	if limited := r.List(Filter{}, 2); len(limited) != 2 || limited[0].RequestID != "req-5" {
		t.Errorf("List(limit 2) = %+v", limited)
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.Record(Metric{})
	r.RecordLLMCall(RecordOpts{}, nil, errors.New("boom"))
}

func TestRecordLLMCall(t *testing.T) {
	r := NewRecorder(10)
	r.now = func() time.Time { return time.Date(2025, 3, 14, 20, 30, 0, 0, time.UTC) }

	r.RecordLLMCall(RecordOpts{RequestID: "a", Schema: "Events", Provider: "workers-ai"}, &providers.ChatResult{
		Provider:         "workers-ai",
		ModelUsed:        "llama",
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		ExecutionTime:    2 * time.Second,
		Attempts:         1,
		Success:          true,
	}, nil)

	r.RecordLLMCall(RecordOpts{RequestID: "b", Schema: "Events", Provider: "workers-ai"}, nil,
		&providers.APIError{Provider: "workers-ai", StatusCode: 429})

	r.RecordLLMCall(RecordOpts{RequestID: "c", Schema: "Bands Only", Provider: "openai"}, nil,
		fmt.Errorf("chat: %w", context.DeadlineExceeded))

	all := r.List(Filter{}, 0)
	if len(all) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(all))
	}

	tests := []struct {
		id        string
		success   bool
		errorType string
	}{
		{"a", true, ""},
		{"b", false, "rate_limited"},
		{"c", false, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			var m *Metric
			for i := range all {
				if all[i].RequestID == tt.id {
					m = &all[i]
				}
			}
			if m == nil {
				t.Fatalf("metric %s not recorded", tt.id)
			}
			if m.Success != tt.success || m.ErrorType != tt.errorType {
				t.Errorf("metric = %+v", m)
			}
			if m.CreatedAt.IsZero() {
				t.Error("CreatedAt should be set")
			}
		})
	}

	failed := false
	if errs := r.List(Filter{Success: &failed}, 0); len(errs) != 2 {
		t.Errorf("error filter returned %d metrics", len(errs))
	}
	if events := r.List(Filter{Schema: "Events"}, 0); len(events) != 2 {
		t.Errorf("schema filter returned %d metrics", len(events))
	}
}

func TestSummarize(t *testing.T) {
	r := NewRecorder(10)
	r.Record(Metric{Schema: "Events", Provider: "a", TotalTokens: 100, ExecutionSeconds: 1, Success: true})
	r.Record(Metric{Schema: "Events", Provider: "a", TotalTokens: 200, ExecutionSeconds: 3, Success: true})
	r.Record(Metric{Schema: "Bands Only", Provider: "b", Success: false, ErrorType: "http_error"})

	s := r.Summarize(Filter{})
	if s.Overall.Count != 3 || s.Overall.SuccessCount != 2 || s.Overall.ErrorCount != 1 {
		t.Errorf("overall = %+v", s.Overall)
	}
	if s.Overall.TotalTokens != 300 || s.Overall.AvgTotalTokens != 100 {
		t.Errorf("token stats = %+v", s.Overall)
	}
	if s.Overall.LatencyAvg != 2 || s.Overall.LatencyMax != 3 || s.Overall.LatencyP50 != 2 {
		t.Errorf("latency stats = %+v", s.Overall)
	}
	if s.BySchema["Events"].Count != 2 || s.BySchema["Bands Only"].ErrorCount != 1 {
		t.Errorf("by schema = %+v", s.BySchema)
	}
	if s.ByProvider["b"].Count != 1 {
		t.Errorf("by provider = %+v", s.ByProvider)
	}
	if s.Recorded != 3 {
		t.Errorf("Recorded = %d", s.Recorded)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 3},
		{95, 4.8},
		{100, 5},
	}
	for _, tt := range tests {
		if got := percentile(values, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Error("empty slice should yield 0")
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	r := NewRecorder(50)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Record(Metric{Success: true})
				_ = r.Summarize(Filter{})
			}
		}()
	}
	wg.Wait()

	if r.Total() != 200 {
		t.Errorf("Total() = %d, want 200", r.Total())
	}
	if n := len(r.List(Filter{}, 0)); n != 50 {
		t.Errorf("retained %d, want 50", n)
	}
}
