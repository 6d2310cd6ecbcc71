package config

import (
	"fmt"

	"github.com/jackzampolin/marquee/internal/providers"
	"github.com/jackzampolin/marquee/internal/schema"
)

// Config holds marquee configuration.
// Stored at: ~/.marquee/config.yaml
type Config struct {
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Log          LogCfg                    `mapstructure:"log" yaml:"log"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Extraction   ExtractionCfg             `mapstructure:"extraction" yaml:"extraction"`

	// Schemas are appended to the built-in extraction schemas at startup.
	// Changes take effect on restart.
	Schemas []schema.Definition `mapstructure:"schemas" yaml:"schemas,omitempty"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// LogCfg configures the slog handler.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type           string `mapstructure:"type" yaml:"type"`                     // "openai", "openrouter"
	Model          string `mapstructure:"model" yaml:"model"`                   // Model name
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`               // API key (supports ${ENV_VAR} syntax)
	BaseURL        string `mapstructure:"base_url" yaml:"base_url,omitempty"`   // Optional (supports ${ENV_VAR} syntax)
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"` // Total attempts; 1 means no retries
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Provider used for extraction
}

// ExtractionCfg tunes the extraction pipeline.
type ExtractionCfg struct {
	MaxTokens      int  `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxUploadMB    int  `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	ValidateOutput bool `mapstructure:"validate_output" yaml:"validate_output"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
		LLMProviders: map[string]LLMProviderCfg{
			"workers-ai": {
				Type:           providers.TypeOpenAI,
				Model:          "@cf/meta/llama-4-scout-17b-16e-instruct",
				APIKey:         "${CLOUDFLARE_API_TOKEN}",
				BaseURL:        fmt.Sprintf(providers.WorkersAIBaseURL, "${CLOUDFLARE_ACCOUNT_ID}"),
				TimeoutSeconds: 120,
				MaxRetries:     1,
				Enabled:        true,
			},
			"openai": {
				Type:           providers.TypeOpenAI,
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				TimeoutSeconds: 120,
				MaxRetries:     1,
				Enabled:        false,
			},
			"openrouter": {
				Type:           providers.TypeOpenRouter,
				Model:          "meta-llama/llama-4-scout",
				APIKey:         "${OPENROUTER_API_KEY}",
				TimeoutSeconds: 120,
				MaxRetries:     1,
				Enabled:        false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "workers-ai",
		},
		Extraction: ExtractionCfg{
			MaxTokens:   10000,
			MaxUploadMB: 10,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// SchemaDefinitions returns the built-in schemas followed by the configured ones.
func (c *Config) SchemaDefinitions() []schema.Definition {
	defs := schema.Builtin()
	return append(defs, c.Schemas...)
}

// MaxUploadBytes converts the upload limit to bytes.
func (e ExtractionCfg) MaxUploadBytes() int64 {
	return int64(e.MaxUploadMB) << 20
}
