package metrics

import (
	"sort"
)

// Stats summarizes a set of metrics.
type Stats struct {
	Count        int `json:"count"`
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`

	// Latency (seconds)
	LatencyP50 float64 `json:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95"`
	LatencyAvg float64 `json:"latency_avg"`
	LatencyMax float64 `json:"latency_max"`

	TotalPromptTokens     int     `json:"total_prompt_tokens"`
	TotalCompletionTokens int     `json:"total_completion_tokens"`
	TotalTokens           int     `json:"total_tokens"`
	AvgTotalTokens        float64 `json:"avg_total_tokens"`
}

// Summary is the full usage report.
type Summary struct {
	Overall    Stats             `json:"overall"`
	BySchema   map[string]*Stats `json:"by_schema"`
	ByProvider map[string]*Stats `json:"by_provider"`
	// Recorded counts every call since start, including ones evicted from the window.
	Recorded int `json:"recorded"`
}

// Summarize computes stats over the retained metrics matching f.
func (r *Recorder) Summarize(f Filter) *Summary {
	metrics := r.List(f, 0)

	s := &Summary{
		Overall:    computeStats(metrics),
		BySchema:   make(map[string]*Stats),
		ByProvider: make(map[string]*Stats),
		Recorded:   r.Total(),
	}

	for key, group := range groupBy(metrics, func(m Metric) string { return m.Schema }) {
		stats := computeStats(group)
		s.BySchema[key] = &stats
	}
	for key, group := range groupBy(metrics, func(m Metric) string { return m.Provider }) {
		stats := computeStats(group)
		s.ByProvider[key] = &stats
	}
	return s
}

func groupBy(metrics []Metric, key func(Metric) string) map[string][]Metric {
	groups := make(map[string][]Metric)
	for _, m := range metrics {
		k := key(m)
		if k == "" {
			k = "unknown"
		}
		groups[k] = append(groups[k], m)
	}
	return groups
}

func computeStats(metrics []Metric) Stats {
	stats := Stats{Count: len(metrics)}
	if len(metrics) == 0 {
		return stats
	}

	var latencies []float64
	for _, m := range metrics {
		if m.Success {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
		}

		stats.TotalPromptTokens += m.PromptTokens
		stats.TotalCompletionTokens += m.CompletionTokens
		stats.TotalTokens += m.TotalTokens

		if m.ExecutionSeconds > 0 {
			latencies = append(latencies, m.ExecutionSeconds)
		}
	}

	stats.AvgTotalTokens = float64(stats.TotalTokens) / float64(stats.Count)

	if len(latencies) > 0 {
		sort.Float64s(latencies)
		stats.LatencyMax = latencies[len(latencies)-1]

		var sum float64
		for _, l := range latencies {
			sum += l
		}
		stats.LatencyAvg = sum / float64(len(latencies))
		stats.LatencyP50 = percentile(latencies, 50)
		stats.LatencyP95 = percentile(latencies, 95)
	}

	return stats
}

// percentile calculates the p-th percentile from a sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	n := float64(len(sorted))
	idx := (p / 100.0) * (n - 1)

	// Interpolate between floor and ceil indices
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
