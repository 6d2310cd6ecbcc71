package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const openAICompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "@cf/meta/llama-4-scout-17b-16e-instruct",
  "choices": [
    {"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"bands\":[\"The Testers\"]}"}}
  ],
  "usage": {"prompt_tokens": 1200, "completion_tokens": 12, "total_tokens": 1212}
}`

func TestOpenAIClientChatSuccess(t *testing.T) {
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("unexpected authorization: %s", auth)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openAICompletion))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{
		Name:         "workers-ai",
		APIKey:       "test-key",
		BaseURL:      server.URL,
		DefaultModel: "@cf/meta/llama-4-scout-17b-16e-instruct",
	})

	schema := json.RawMessage(`{"type":"object","properties":{"bands":{"type":"array","items":{"type":"string"}}},"required":["bands"],"additionalProperties":false}`)
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "You help extract information from concert posters."},
			{Role: "user", Content: "Help me with this poster please"},
			{Role: "user", ImageURLs: []string{"data:image/png;base64,iVBORw0KGgo="}},
		},
		MaxTokens:      10000,
		ResponseFormat: JSONSchemaFormat("Bands Only", schema),
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success result")
	}
	if result.Content != `{"bands":["The Testers"]}` {
		t.Fatalf("unexpected content: %q", result.Content)
	}
	if result.Provider != "workers-ai" {
		t.Fatalf("expected provider workers-ai, got %q", result.Provider)
	}
	if result.PromptTokens != 1200 || result.TotalTokens != 1212 {
		t.Fatalf("unexpected usage: %+v", result)
	}

	if got, _ := payload["model"].(string); got != "@cf/meta/llama-4-scout-17b-16e-instruct" {
		t.Fatalf("unexpected model %q", got)
	}
	if got, _ := payload["max_tokens"].(float64); got != 10000 {
		t.Fatalf("expected max_tokens 10000, got %v", payload["max_tokens"])
	}

	rf, _ := payload["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", payload["response_format"])
	}
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "bands_only" || js["strict"] != true {
		t.Fatalf("unexpected json_schema: %v", js)
	}
	sentSchema, err := json.Marshal(js["schema"])
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	var want, got any
	_ = json.Unmarshal(schema, &want)
	_ = json.Unmarshal(sentSchema, &got)
	wantBytes, _ := json.Marshal(want)
	gotBytes, _ := json.Marshal(got)
	if string(wantBytes) != string(gotBytes) {
		t.Fatalf("schema sent = %s, want %s", gotBytes, wantBytes)
	}

	messages, _ := payload["messages"].([]any)
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	system, _ := messages[0].(map[string]any)
	if system["role"] != "system" {
		t.Fatalf("first message role = %v", system["role"])
	}
	image, _ := messages[2].(map[string]any)
	parts, _ := image["content"].([]any)
	if len(parts) != 1 {
		t.Fatalf("expected a single image part, got %v", image["content"])
	}
	part, _ := parts[0].(map[string]any)
	if part["type"] != "image_url" {
		t.Fatalf("expected image_url part, got %v", part["type"])
	}
	imageURL, _ := part["image_url"].(map[string]any)
	if imageURL["url"] != "data:image/png;base64,iVBORw0KGgo=" {
		t.Fatalf("unexpected image url %v", imageURL["url"])
	}
}

func TestOpenAIClientChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"image too large","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "test"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if result.Success {
		t.Fatalf("expected failed result")
	}

	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Provider != OpenAIName {
		t.Fatalf("expected provider %q, got %q", OpenAIName, apiErr.Provider)
	}
}

func TestOpenAIClientNoRetriesByDefault(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	if _, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "test"}},
	}); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestOpenAIClientDefaults(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key"})
	if client.Name() != OpenAIName {
		t.Fatalf("Name() = %q", client.Name())
	}
	if client.Model() != openAIDefaultModel {
		t.Fatalf("Model() = %q", client.Model())
	}
	if client.maxRetries != 1 {
		t.Fatalf("maxRetries = %d, want 1", client.maxRetries)
	}
}
