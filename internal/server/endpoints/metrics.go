package endpoints

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/marquee/internal/api"
	"github.com/jackzampolin/marquee/internal/metrics"
	"github.com/jackzampolin/marquee/internal/svcctx"
)

// MetricsSummaryEndpoint handles GET /api/metrics.
type MetricsSummaryEndpoint struct{}

var _ api.Endpoint = (*MetricsSummaryEndpoint)(nil)

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Model usage summary
//	@Description	Call counts, token totals and latency for recent extractions, overall and per schema and provider
//	@Tags			metrics
//	@Produce		json
//	@Param			schema		query		string	false	"Filter by schema name"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Success		200			{object}	metrics.Summary
//	@Failure		503			{object}	ErrorResponse
//	@Router			/api/metrics [get]
func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	recorder := svcctx.MetricsFrom(r.Context())
	if recorder == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}

	q := r.URL.Query()
	f := metrics.Filter{
		Schema:   q.Get("schema"),
		Provider: q.Get("provider"),
	}
	writeJSON(w, http.StatusOK, recorder.Summarize(f))
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var schemaName, provider string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show model usage for recent extractions",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if schemaName != "" {
				q.Set("schema", schemaName)
			}
			if provider != "" {
				q.Set("provider", provider)
			}
			path := "/api/metrics"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			client := api.NewClient(getServerURL())
			var resp metrics.Summary
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&schemaName, "schema", "", "Filter by schema name")
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	return cmd
}

// ListMetricsEndpoint handles GET /api/metrics/calls.
type ListMetricsEndpoint struct{}

var _ api.Endpoint = (*ListMetricsEndpoint)(nil)

func (e *ListMetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/calls", e.handler
}

func (e *ListMetricsEndpoint) RequiresInit() bool { return false }

// ListMetricsResponse is the response for GET /api/metrics/calls.
type ListMetricsResponse struct {
	Calls []metrics.Metric `json:"calls"`
}

// handler godoc
//
//	@Summary	Recent model calls
//	@Tags		metrics
//	@Produce	json
//	@Param		limit	query		int	false	"Maximum calls to return (default 50)"
//	@Success	200		{object}	ListMetricsResponse
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/metrics/calls [get]
func (e *ListMetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	recorder := svcctx.MetricsFrom(r.Context())
	if recorder == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not initialized")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, ListMetricsResponse{Calls: recorder.List(metrics.Filter{}, limit)})
}

func (e *ListMetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List recent model calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListMetricsResponse
			if err := client.Get(cmd.Context(), "/api/metrics/calls?limit="+strconv.Itoa(limit), &resp); err != nil {
				return err
			}
			return api.Output(resp.Calls)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum calls to return")
	return cmd
}
