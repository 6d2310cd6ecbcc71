package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func writeChatResponse(w http.ResponseWriter, content string) {
	resp := map[string]any{
		"id":    "test-id",
		"model": "meta-llama/llama-4-scout",
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func TestOpenRouterClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			writeChatResponse(w, "Hello! How can I help you?")
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "user", Content: "Hello"},
			},
		})

		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Content != "Hello! How can I help you?" {
			t.Errorf("Content = %q", result.Content)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", result.Attempts)
		}
	})

	t.Run("image message with schema constraint", func(t *testing.T) {
		var received openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("decode request: %v", err)
			}
			writeChatResponse(w, `{"bands":["The Testers"]}`)
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		schema := json.RawMessage(`{"type":"object","properties":{"bands":{"type":"array","items":{"type":"string"}}},"required":["bands"],"additionalProperties":false}`)
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "You help."},
				{Role: "user", ImageURLs: []string{"data:image/jpeg;base64,AAAA"}},
			},
			MaxTokens:      10000,
			ResponseFormat: JSONSchemaFormat("Bands Only", schema),
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != `{"bands":["The Testers"]}` {
			t.Errorf("Content = %q", result.Content)
		}

		if received.MaxTokens != 10000 {
			t.Errorf("max_tokens = %d, want 10000", received.MaxTokens)
		}
		if received.ResponseFormat == nil || received.ResponseFormat.Type != "json_schema" {
			t.Fatalf("response_format = %+v, want json_schema", received.ResponseFormat)
		}
		js := received.ResponseFormat.JSONSchema
		if js == nil || js.Name != "bands_only" || !js.Strict {
			t.Fatalf("json_schema = %+v", js)
		}
		if string(js.Schema) != string(schema) {
			t.Errorf("schema = %s, want %s", js.Schema, schema)
		}

		if len(received.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(received.Messages))
		}
		parts, ok := received.Messages[1].Content.([]any)
		if !ok {
			t.Fatalf("expected content parts, got %T", received.Messages[1].Content)
		}
		if len(parts) != 1 {
			t.Fatalf("expected 1 content part (image only), got %d", len(parts))
		}
		part, _ := parts[0].(map[string]any)
		if part["type"] != "image_url" {
			t.Errorf("part type = %v, want image_url", part["type"])
		}
		imageURL, _ := part["image_url"].(map[string]any)
		if imageURL["url"] != "data:image/jpeg;base64,AAAA" {
			t.Errorf("image url = %v", imageURL["url"])
		}
	})

	t.Run("object content is re-serialized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":{"bands":[]}}}],"usage":{}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != `{"bands":[]}` {
			t.Errorf("Content = %q", result.Content)
		}
	})

	t.Run("API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"message": "Rate limit exceeded"}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})

		if err == nil {
			t.Fatal("expected error")
		}
		if result.Success {
			t.Error("expected Success = false")
		}
		if result.ErrorType != "http_error" {
			t.Errorf("ErrorType = %s, want http_error", result.ErrorType)
		}
		apiErr, ok := AsAPIError(err)
		if !ok {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if !apiErr.RateLimited() {
			t.Errorf("expected rate limited, status %d", apiErr.StatusCode)
		}
		if apiErr.RetryAfter != 7*time.Second {
			t.Errorf("RetryAfter = %v, want 7s", apiErr.RetryAfter)
		}
	})

	t.Run("error in OK body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"error":{"message":"model overloaded","code":503}}`))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if result.ErrorType != "api_error" {
			t.Errorf("ErrorType = %s, want api_error", result.ErrorType)
		}
	})

	t.Run("no retries by default", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL})
		if _, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		}); err == nil {
			t.Fatal("expected error")
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("server called %d times, want 1", got)
		}
	})

	t.Run("retries retryable status when configured", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			writeChatResponse(w, "ok")
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 3,
			RetryDelay: time.Millisecond,
		})
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Attempts != 2 {
			t.Errorf("Attempts = %d, want 2", result.Attempts)
		}
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			BaseURL:    server.URL,
			MaxRetries: 3,
			RetryDelay: time.Millisecond,
		})
		_, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if apiErr, ok := AsAPIError(err); !ok || apiErr.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 APIError, got %v", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("server called %d times, want 1", got)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		_, err := client.Chat(ctx, &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})

		if err == nil {
			t.Error("expected error from cancelled context")
		}
	})
}

func TestOpenRouterClient_Config(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey: "test-key",
		})

		if client.Name() != OpenRouterName {
			t.Errorf("Name() = %s, want %s", client.Name(), OpenRouterName)
		}
		if client.baseURL != OpenRouterBaseURL {
			t.Errorf("baseURL = %s, want %s", client.baseURL, OpenRouterBaseURL)
		}
		if client.Model() != openRouterDefaultModel {
			t.Errorf("Model() = %s", client.Model())
		}
		if client.maxRetries != 1 {
			t.Errorf("maxRetries = %d, want 1", client.maxRetries)
		}
	})
}

func TestInjectNonce(t *testing.T) {
	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key"})

	req := &openRouterRequest{
		Messages: []openRouterMessage{
			{Role: "user", Content: "Today's date is x"},
			{Role: "user", Content: []openRouterContent{{Type: "image_url", ImageURL: &openRouterImageURL{URL: "data:"}}}},
		},
	}
	client.injectNonce(req, 1)

	text, _ := req.Messages[0].Content.(string)
	if text == "Today's date is x" {
		t.Error("expected nonce appended to the text message")
	}
	if _, ok := req.Messages[1].Content.([]openRouterContent); !ok {
		t.Error("image message content should be untouched")
	}
}

// TestOpenRouterIntegration runs a real call against the OpenRouter API.
// Requires OPENROUTER_API_KEY environment variable to be set.
func TestOpenRouterIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENROUTER_API_KEY not set - skipping integration test")
	}

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: apiKey})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	schema := json.RawMessage(`{"type":"object","properties":{"greeting":{"type":"string"}},"required":["greeting"],"additionalProperties":false}`)
	result, err := client.Chat(ctx, &ChatRequest{
		Messages: []Message{
			{Role: "user", Content: `Greet me with the word hello.`},
		},
		ResponseFormat: JSONSchemaFormat("greeting", schema),
		MaxTokens:      50,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	t.Logf("Response: %s", result.Content)
	t.Logf("Model: %s", result.ModelUsed)

	if err := ValidateStructuredJSON(schema, json.RawMessage(result.Content)); err != nil {
		t.Errorf("response does not conform: %v", err)
	}
}
