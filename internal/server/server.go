package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/marquee/internal/api"
	"github.com/jackzampolin/marquee/internal/config"
	"github.com/jackzampolin/marquee/internal/extract"
	"github.com/jackzampolin/marquee/internal/metrics"
	"github.com/jackzampolin/marquee/internal/providers"
	"github.com/jackzampolin/marquee/internal/schema"
	"github.com/jackzampolin/marquee/internal/server/endpoints"
	"github.com/jackzampolin/marquee/internal/svcctx"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Server is the main Marquee HTTP server.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	schemas    *schema.Registry
	pipeline   *extract.Pipeline
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
	// Schemas overrides the schema registry built from configuration.
	Schemas *schema.Registry
	// Registry overrides the provider registry built from configuration.
	// Config reloads are not applied to an injected registry.
	Registry *providers.Registry
	// Extraction overrides the extraction settings from configuration.
	Extraction *config.ExtractionCfg
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var appCfg *config.Config
	if cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	} else {
		appCfg = config.DefaultConfig()
	}

	schemas := cfg.Schemas
	if schemas == nil {
		var err error
		schemas, err = schema.NewRegistry(appCfg.SchemaDefinitions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to build schema registry: %w", err)
		}
	}

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(appCfg.ToProviderRegistryConfig())

		if cfg.ConfigManager != nil {
			cfg.ConfigManager.OnChange(func(c *config.Config) {
				registry.Reload(c.ToProviderRegistryConfig())
				cfg.Logger.Info("provider registry reloaded from config",
					"default", registry.DefaultName(),
					"providers", registry.ListLLM(),
				)
			})
		}
	}

	extraction := appCfg.Extraction
	if cfg.Extraction != nil {
		extraction = *cfg.Extraction
	}

	recorder := metrics.NewRecorder(metrics.DefaultCapacity)

	pipeline, err := extract.New(extract.Config{
		Schemas:        schemas,
		Providers:      registry,
		MaxTokens:      extraction.MaxTokens,
		MaxUploadBytes: extraction.MaxUploadBytes(),
		ValidateOutput: extraction.ValidateOutput,
		Metrics:        recorder,
		Logger:         cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction pipeline: %w", err)
	}

	s := &Server{
		registry:  registry,
		schemas:   schemas,
		pipeline:  pipeline,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}

	s.services = &svcctx.Services{
		Registry:      registry,
		Schemas:       schemas,
		Pipeline:      pipeline,
		Metrics:       recorder,
		ConfigManager: cfg.ConfigManager,
		Logger:        cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.withServices(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute, // model calls on large posters are slow
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if !s.registry.HasDefault() {
		s.logger.Warn("no default LLM provider available, extraction will return 503 until one is configured")
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"addr", s.httpServer.Addr,
			"schemas", s.schemas.Names(),
			"providers", s.registry.ListLLM(),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown drains in-flight requests.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	if err = s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return err
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Schemas returns the schema registry.
func (s *Server) Schemas() *schema.Registry {
	return s.schemas
}

// Endpoints returns the endpoint registry.
func (s *Server) Endpoints() *api.Registry {
	return s.endpointRegistry
}

// withServices enriches the request context with services and a request ID.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := svcctx.WithServices(r.Context(), s.services)
		ctx = svcctx.WithRequestID(ctx, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures a default LLM provider is available.
// Returns 503 Service Unavailable otherwise.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.registry.HasDefault() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"no LLM provider configured","code":"no_provider"}`))
			return
		}
		next(w, r)
	}
}
