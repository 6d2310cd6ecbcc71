package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/marquee/internal/providers"
	"github.com/jackzampolin/marquee/internal/schema"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Defaults.LLMProvider != "workers-ai" {
		t.Errorf("default provider = %q, want workers-ai", cfg.Defaults.LLMProvider)
	}
	wa, ok := cfg.GetLLMProvider("workers-ai")
	if !ok {
		t.Fatal("expected workers-ai provider")
	}
	if wa.Type != providers.TypeOpenAI || !wa.Enabled {
		t.Errorf("workers-ai = %+v", wa)
	}
	if wa.Model != "@cf/meta/llama-4-scout-17b-16e-instruct" {
		t.Errorf("workers-ai model = %q", wa.Model)
	}
	if cfg.Extraction.MaxTokens != 10000 {
		t.Errorf("max tokens = %d, want 10000", cfg.Extraction.MaxTokens)
	}
	if cfg.Extraction.MaxUploadBytes() != 10<<20 {
		t.Errorf("max upload bytes = %d", cfg.Extraction.MaxUploadBytes())
	}

	enabled := cfg.EnabledLLMProviders()
	if len(enabled) != 1 {
		t.Errorf("expected only workers-ai enabled, got %v", enabled)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("resolves inside a URL", func(t *testing.T) {
		t.Setenv("TEST_ACCOUNT", "abc123")

		result := ResolveEnvVars("https://api.example.com/accounts/${TEST_ACCOUNT}/ai/v1")
		if result != "https://api.example.com/accounts/abc123/ai/v1" {
			t.Errorf("unexpected result %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-123")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:           providers.TypeOpenAI,
				Model:          "gpt-4o-mini",
				APIKey:         "${TEST_OPENAI_KEY}",
				TimeoutSeconds: 30,
				MaxRetries:     2,
				Enabled:        true,
			},
			"literal": {
				Type:   providers.TypeOpenRouter,
				APIKey: "direct-key",
			},
		},
		Defaults: DefaultsCfg{LLMProvider: "openai"},
	}

	rc := cfg.ToProviderRegistryConfig()
	if rc.DefaultLLM != "openai" {
		t.Errorf("DefaultLLM = %q", rc.DefaultLLM)
	}

	oa := rc.LLMProviders["openai"]
	if oa.APIKey != "sk-123" {
		t.Errorf("expected resolved key, got %q", oa.APIKey)
	}
	if oa.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", oa.Timeout)
	}
	if oa.MaxRetries != 2 || !oa.Enabled {
		t.Errorf("unexpected provider config %+v", oa)
	}
	if rc.LLMProviders["literal"].APIKey != "direct-key" {
		t.Errorf("expected literal key passthrough")
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: "3000"
llm_providers:
  openai:
    type: openai
    model: gpt-4o
    api_key: test-key
    enabled: true
defaults:
  llm_provider: openai
extraction:
  validate_output: true
`)

		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Server.Port != "3000" {
			t.Errorf("port = %q, want 3000", cfg.Server.Port)
		}
		if cfg.Server.Host != "127.0.0.1" {
			t.Errorf("host should fall back to default, got %q", cfg.Server.Host)
		}
		if cfg.Defaults.LLMProvider != "openai" {
			t.Errorf("default provider = %q", cfg.Defaults.LLMProvider)
		}
		if p := cfg.LLMProviders["openai"]; p.Model != "gpt-4o" || p.APIKey != "test-key" {
			t.Errorf("openai provider = %+v", p)
		}
		if !cfg.Extraction.ValidateOutput {
			t.Error("validate_output should be true")
		}
		if cfg.Extraction.MaxTokens != 10000 {
			t.Errorf("max tokens should fall back to default, got %d", cfg.Extraction.MaxTokens)
		}
		if mgr.ConfigFile() != path {
			t.Errorf("ConfigFile() = %q, want %q", mgr.ConfigFile(), path)
		}
	})

	t.Run("custom schemas", func(t *testing.T) {
		path := writeConfig(t, `
schemas:
  - name: Headliner
    fields:
      - name: headliner
        type: string
        description: The biggest name on the poster
      - name: price
        type: number
        optional: true
      - name: tags
        type: array
        items:
          type: string
`)

		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		defs := mgr.Get().SchemaDefinitions()
		if len(defs) != 3 {
			t.Fatalf("expected 3 definitions, got %d", len(defs))
		}
		if defs[0].Name != schema.BandsOnlyName || defs[1].Name != schema.EventsName {
			t.Errorf("built-ins should come first, got %q, %q", defs[0].Name, defs[1].Name)
		}

		custom := defs[2]
		if custom.Name != "Headliner" || len(custom.Fields) != 3 {
			t.Fatalf("custom definition = %+v", custom)
		}
		if custom.Fields[1].Type != schema.TypeNumber || !custom.Fields[1].Optional {
			t.Errorf("price field = %+v", custom.Fields[1])
		}
		if custom.Fields[2].Items == nil || custom.Fields[2].Items.Type != schema.TypeString {
			t.Errorf("tags field = %+v", custom.Fields[2])
		}

		if _, err := schema.Compile(custom); err != nil {
			t.Errorf("custom schema should compile: %v", err)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("MARQUEE_SERVER_PORT", "9090")
		path := writeConfig(t, "log:\n  level: debug\n")

		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		cfg := mgr.Get()
		if cfg.Server.Port != "9090" {
			t.Errorf("port = %q, want 9090", cfg.Server.Port)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("log level = %q, want debug", cfg.Log.Level)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		path := writeConfig(t, "server: [unclosed\n")
		if _, err := NewManager(path); err == nil {
			t.Error("expected error for malformed config")
		}
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to load written config: %v", err)
	}

	cfg := mgr.Get()
	want := DefaultConfig()
	if cfg.Server != want.Server || cfg.Log != want.Log || cfg.Defaults != want.Defaults || cfg.Extraction != want.Extraction {
		t.Errorf("round-tripped config differs:\n got  %+v\n want %+v", cfg, want)
	}
	if len(cfg.LLMProviders) != len(want.LLMProviders) {
		t.Fatalf("providers = %v", cfg.LLMProviders)
	}
	for name, p := range want.LLMProviders {
		if cfg.LLMProviders[name] != p {
			t.Errorf("provider %s = %+v, want %+v", name, cfg.LLMProviders[name], p)
		}
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "log:\n  level: info\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Log.Level
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, `
defaults:
  llm_provider: workers-ai
`)

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	if got := mgr.Get().Defaults.LLMProvider; got != "workers-ai" {
		t.Errorf("initial value mismatch: got %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Defaults.LLMProvider)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	newContent := `
defaults:
  llm_provider: openai
`
	if err := os.WriteFile(configFile, []byte(newContent), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "openai" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if v, _ := lastValue.Load().(string); v != "openai" {
		t.Errorf("expected openai after reload, got %q", v)
	}
	if mgr.Get().Defaults.LLMProvider != "openai" {
		t.Errorf("Get() not updated after reload")
	}
}
