package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	openRouterDefaultModel = "meta-llama/llama-4-scout"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	// MaxRetries is the total number of attempts (default: 1, no retries)
	MaxRetries int
	// RetryDelay is the base delay between attempts (default: 1s)
	RetryDelay time.Duration
}

// OpenRouterClient implements LLMClient against the OpenRouter chat completions API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openRouterDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Model returns the default model.
func (c *OpenRouterClient) Model() string {
	return c.defaultModel
}

// Chat sends a chat completion request.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	orReq := openRouterRequest{
		Model:       model,
		Messages:    make([]openRouterMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	for _, m := range req.Messages {
		orMsg := openRouterMessage{Role: m.Role}

		// Vision messages carry a content part list instead of a plain string
		if len(m.ImageURLs) > 0 {
			parts := make([]openRouterContent, 0, len(m.ImageURLs)+1)
			if m.Content != "" {
				parts = append(parts, openRouterContent{Type: "text", Text: m.Content})
			}
			for _, u := range m.ImageURLs {
				parts = append(parts, openRouterContent{
					Type:     "image_url",
					ImageURL: &openRouterImageURL{URL: u},
				})
			}
			orMsg.Content = parts
		} else {
			orMsg.Content = m.Content
		}

		orReq.Messages = append(orReq.Messages, orMsg)
	}

	if rf := req.ResponseFormat; rf != nil {
		orReq.ResponseFormat = &openRouterResponseFormat{
			Type: rf.Type,
			JSONSchema: &openRouterJSONSchema{
				Name:   rf.Name,
				Strict: rf.Strict,
				Schema: rf.Schema,
			},
		}
	}

	orResp, attempts, httpErr := c.doRequest(ctx, "/chat/completions", &orReq)

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenRouterName,
		ModelUsed: model,
		Attempts:  attempts,
	}

	if httpErr != nil {
		result.ErrorType = "http_error"
		result.ErrorMessage = httpErr.Error()
		result.ExecutionTime = time.Since(start)
		return result, httpErr
	}

	if orResp.Error != nil {
		err := &APIError{Provider: OpenRouterName, StatusCode: http.StatusOK, Message: orResp.Error.Message}
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	if len(orResp.Choices) == 0 {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	// Content is usually a string; some backends return structured output as an object.
	content := ""
	switch v := orResp.Choices[0].Message.Content.(type) {
	case nil:
	case string:
		content = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			result.ErrorType = "content_marshal_error"
			result.ErrorMessage = fmt.Sprintf("failed to marshal content: %v", err)
			result.ExecutionTime = time.Since(start)
			return result, fmt.Errorf("failed to marshal content: %w", err)
		}
		content = string(b)
	}

	result.Success = true
	result.Content = content
	if orResp.Model != "" {
		result.ModelUsed = orResp.Model
	}
	result.PromptTokens = orResp.Usage.PromptTokens
	result.CompletionTokens = orResp.Usage.CompletionTokens
	result.TotalTokens = orResp.Usage.TotalTokens
	result.ExecutionTime = time.Since(start)

	return result, nil
}

var _ LLMClient = (*OpenRouterClient)(nil)
