package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName = "openai"

	openAIDefaultModel = "gpt-4o-mini"

	// WorkersAIBaseURL is the Cloudflare Workers AI OpenAI-compatible endpoint.
	// The account ID placeholder is filled from config.
	WorkersAIBaseURL = "https://api.cloudflare.com/client/v4/accounts/%s/ai/v1"
)

// OpenAIConfig holds configuration for any OpenAI-compatible chat completions API.
type OpenAIConfig struct {
	// Name is reported in results and errors (default: "openai").
	Name         string
	APIKey       string
	BaseURL      string       // Optional; Workers AI, local gateways, tests
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int          // Total attempts (default: 1, no retries)
	HTTPClient   *http.Client // Optional (tests)
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
type OpenAIClient struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	maxRetries   int
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIName
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries - 1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		name:         cfg.Name,
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		maxRetries:   cfg.MaxRetries,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Model returns the default model.
func (c *OpenAIClient) Model() string {
	return c.defaultModel
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  c.name,
		ModelUsed: model,
		Attempts:  1,
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: openAIMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if rf := req.ResponseFormat; rf != nil && rf.Type == "json_schema" {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   rf.Name,
					Strict: openai.Bool(rf.Strict),
					Schema: rf.Schema,
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = c.mapError(err)
		result.ErrorType = "http_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	if len(resp.Choices) == 0 {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	msg := resp.Choices[0].Message
	if msg.Content == "" && msg.Refusal != "" {
		err := fmt.Errorf("model refused: %s", msg.Refusal)
		result.ErrorType = "refusal"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	result.Success = true
	result.Content = msg.Content
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.ExecutionTime = time.Since(start)

	return result, nil
}

func openAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			if len(m.ImageURLs) == 0 {
				out = append(out, openai.UserMessage(m.Content))
				continue
			}
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.ImageURLs)+1)
			if m.Content != "" {
				parts = append(parts, openai.TextContentPart(m.Content))
			}
			for _, u := range m.ImageURLs {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: u}))
			}
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out
}

func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	mapped := &APIError{
		Provider:   c.name,
		StatusCode: apiErr.StatusCode,
		Message:    apiErr.Message,
	}
	if apiErr.Response != nil {
		mapped.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
	}
	return mapped
}

var _ LLMClient = (*OpenAIClient)(nil)
