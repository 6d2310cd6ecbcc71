package providers

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Provider types understood by the registry.
const (
	TypeOpenAI     = "openai"
	TypeOpenRouter = "openrouter"
)

// Registry holds the configured LLM clients and the name of the default one.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	configs    map[string]LLMProviderConfig
	defaultLLM string
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		configs:    make(map[string]LLMProviderConfig),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// SetDefaultLLM selects the client returned by DefaultLLM.
func (r *Registry) SetDefaultLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultLLM = name
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// DefaultLLM returns the default client. When no default is named and exactly
// one client is registered, that client is used.
func (r *Registry) DefaultLLM() (LLMClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultLLM != "" {
		client, ok := r.llmClients[r.defaultLLM]
		return client, ok
	}
	if len(r.llmClients) == 1 {
		for _, client := range r.llmClients {
			return client, true
		}
	}
	return nil, false
}

// HasDefault reports whether DefaultLLM would return a client.
func (r *Registry) HasDefault() bool {
	_, ok := r.DefaultLLM()
	return ok
}

// DefaultName returns the configured default provider name.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultLLM
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	// LLMProviders maps provider names to their config
	LLMProviders map[string]LLMProviderConfig

	// DefaultLLM names the provider used for extraction
	DefaultLLM string
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key and base URL.
type LLMProviderConfig struct {
	Type       string        // "openai", "openrouter"
	Model      string        // Model name
	APIKey     string        // Resolved API key
	BaseURL    string        // Resolved base URL (optional)
	Timeout    time.Duration // HTTP timeout
	MaxRetries int           // Total attempts
	Enabled    bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)

	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		if incompleteBaseURL(provCfg.BaseURL) {
			if r.logger != nil {
				r.logger.Warn("skipping LLM provider with incomplete base URL",
					"name", name, "base_url", provCfg.BaseURL)
			}
			continue
		}

		_, hasExisting := r.llmClients[name]
		if hasExisting && r.configs[name] == provCfg {
			want[name] = true
			continue
		}

		client := createLLMClient(name, provCfg)
		if client == nil {
			if r.logger != nil {
				r.logger.Warn("unknown LLM provider type", "name", name, "type", provCfg.Type)
			}
			continue
		}
		want[name] = true
		r.llmClients[name] = client
		r.configs[name] = provCfg
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
			}
		}
	}

	// Remove providers that are no longer configured
	for name := range r.llmClients {
		if !want[name] {
			delete(r.llmClients, name)
			delete(r.configs, name)
			if r.logger != nil {
				r.logger.Info("unregistered LLM client", "name", name)
			}
		}
	}

	r.defaultLLM = cfg.DefaultLLM
	if r.defaultLLM != "" && !want[r.defaultLLM] && r.logger != nil {
		r.logger.Warn("default LLM provider is not available", "name", r.defaultLLM)
	}
}

// incompleteBaseURL reports whether a configured base URL is unusable, typically
// because an environment variable it references was not set. Empty means the
// client default and is fine.
func incompleteBaseURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return true
	}
	return strings.Contains(u.Path, "//")
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(name string, cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case TypeOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			Name:         name,
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
		})
	case TypeOpenRouter:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			MaxRetries:   cfg.MaxRetries,
		})
	default:
		return nil
	}
}
