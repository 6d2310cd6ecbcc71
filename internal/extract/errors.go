package extract

import (
	"errors"
	"fmt"

	"github.com/jackzampolin/marquee/internal/providers"
)

var (
	// ErrInvalidUpload is returned when the image is empty, has no MIME type,
	// is not an image, or exceeds the size limit.
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrNoProvider is returned when no default LLM provider is registered.
	ErrNoProvider = errors.New("no LLM provider configured")
)

// ModelError wraps a failure of the external model call.
type ModelError struct {
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model request to %s failed: %v", e.Provider, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// UpstreamStatus returns the provider's HTTP status code, or 0 when the
// failure happened before a response was received.
func (e *ModelError) UpstreamStatus() int {
	if apiErr, ok := providers.AsAPIError(e.Err); ok {
		return apiErr.StatusCode
	}
	return 0
}
