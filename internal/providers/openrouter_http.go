package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// doRequest posts the request to OpenRouter. It makes up to maxRetries attempts,
// retrying only transport failures and retryable status codes.
// Returns the number of attempts made.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, orReq *openRouterRequest) (*openRouterResponse, int, error) {
	var lastErr error
	attempt := 0
	for ; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt, err
		}

		// Make retried requests distinct so upstream caches do not replay a failure
		if attempt > 0 {
			c.injectNonce(orReq, attempt)
		}

		bodyBytes, err := json.Marshal(orReq)
		if err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/marquee")
		req.Header.Set("X-Title", "Marquee")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.sleepWithJitter(ctx, attempt)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			c.sleepWithJitter(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{
				Provider:   OpenRouterName,
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
			if !shouldRetry(resp.StatusCode) {
				return nil, attempt + 1, apiErr
			}
			lastErr = apiErr
			c.sleepWithJitter(ctx, attempt)
			continue
		}

		var orResp openRouterResponse
		if err := json.Unmarshal(respBody, &orResp); err != nil {
			return nil, attempt + 1, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		return &orResp, attempt + 1, nil
	}

	if c.maxRetries == 1 {
		return nil, attempt, lastErr
	}
	return nil, attempt, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// shouldRetry returns true for status codes that should be retried.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests:
		return true
	case 520, 521, 522, 523, 524: // Cloudflare errors
		return true
	default:
		return statusCode >= 500
	}
}

// injectNonce appends a unique comment to the last user text so a retried request differs.
// Image-only messages are left unchanged.
func (c *OpenRouterClient) injectNonce(req *openRouterRequest, attempt int) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		text, ok := req.Messages[i].Content.(string)
		if !ok || text == "" {
			continue
		}
		nonce := uuid.New().String()[:16]
		req.Messages[i].Content = fmt.Sprintf("%s\n<!-- retry_%d_id: %s -->", text, attempt, nonce)
		return
	}
}

// sleepWithJitter sleeps before the next attempt, respecting context cancellation.
func (c *OpenRouterClient) sleepWithJitter(ctx context.Context, attempt int) {
	if attempt+1 >= c.maxRetries {
		return
	}

	baseDelay := c.retryDelay * time.Duration(1<<attempt)
	if baseDelay > 10*time.Second {
		baseDelay = 10 * time.Second
	}

	// -20% to +30%
	jitter := time.Duration(float64(baseDelay) * (0.8 + 0.5*float64(time.Now().UnixNano()%1000)/1000))

	select {
	case <-ctx.Done():
	case <-time.After(jitter):
	}
}
