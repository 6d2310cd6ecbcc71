package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	FailStatus   int // Status code reported on failure (default 500)
	ResponseText string

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	lastRequest  *ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: `{}`,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat records the request and returns the configured response.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.lastRequest = req
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: req.RequestID,
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}
	if result.RequestID == "" {
		result.RequestID = fmt.Sprintf("mock-%d", count)
	}
	if result.ModelUsed == "" {
		result.ModelUsed = "mock-model"
	}

	if c.Latency > 0 {
		select {
		case <-ctx.Done():
			result.ErrorType = "context_canceled"
			result.ErrorMessage = ctx.Err().Error()
			result.ExecutionTime = time.Since(start)
			return result, ctx.Err()
		case <-time.After(c.Latency):
		}
	}

	if c.ShouldFail || (c.FailAfter > 0 && count > int64(c.FailAfter)) {
		status := c.FailStatus
		if status == 0 {
			status = 500
		}
		err := &APIError{Provider: MockClientName, StatusCode: status, Message: "mock failure"}
		result.ErrorType = "http_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	result.Success = true
	result.Content = c.ResponseText
	result.PromptTokens = 100
	result.CompletionTokens = 50
	result.TotalTokens = 150
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// RequestCount returns the number of Chat calls made.
func (c *MockClient) RequestCount() int {
	return int(c.requestCount.Load())
}

// LastRequest returns the most recent request, or nil if none was made.
func (c *MockClient) LastRequest() *ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRequest
}

var _ LLMClient = (*MockClient)(nil)
