// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/marquee/internal/config"
	"github.com/jackzampolin/marquee/internal/extract"
	"github.com/jackzampolin/marquee/internal/metrics"
	"github.com/jackzampolin/marquee/internal/providers"
	"github.com/jackzampolin/marquee/internal/schema"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Registry      *providers.Registry
	Schemas       *schema.Registry
	Pipeline      *extract.Pipeline
	Metrics       *metrics.Recorder
	ConfigManager *config.Manager
	Logger        *slog.Logger
}

type servicesKey struct{}

type requestIDKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// SchemasFrom extracts the schema registry from context.
func SchemasFrom(ctx context.Context) *schema.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Schemas
	}
	return nil
}

// PipelineFrom extracts the extraction pipeline from context.
func PipelineFrom(ctx context.Context) *extract.Pipeline {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pipeline
	}
	return nil
}

// MetricsFrom extracts the usage recorder from context.
func MetricsFrom(ctx context.Context) *metrics.Recorder {
	if s := ServicesFrom(ctx); s != nil {
		return s.Metrics
	}
	return nil
}

// ConfigManagerFrom extracts the config manager from context.
func ConfigManagerFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigManager
	}
	return nil
}

// LoggerFrom extracts the logger from context, falling back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// WithRequestID returns a new context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID, or "" if none was set.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
