package endpoints

import (
	"github.com/jackzampolin/marquee/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Schema endpoints
		&ListSchemasEndpoint{},
		&GetSchemaEndpoint{},

		// Extraction
		&ExtractEndpoint{},

		// Metrics endpoints
		&MetricsSummaryEndpoint{},
		&ListMetricsEndpoint{},

		// Web UI
		&UIIndexEndpoint{},
		&UIExtractEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},

		// Static files
		&StaticEndpoint{},
	}
}
