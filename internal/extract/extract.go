// Package extract turns a poster image and a schema name into structured JSON
// produced by an image-understanding model.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/marquee/internal/metrics"
	"github.com/jackzampolin/marquee/internal/providers"
	"github.com/jackzampolin/marquee/internal/schema"
)

const (
	// DefaultMaxTokens is the output token ceiling sent with every request.
	DefaultMaxTokens = 10000

	// DefaultMaxUploadBytes caps the image size accepted by Extract.
	DefaultMaxUploadBytes = 10 << 20

	SystemPrompt = "You help extract information from concert posters."

	userPromptFormat = "Today's date is %s. Help me with this poster please"
)

// LLMSource provides the client used for extraction.
// *providers.Registry satisfies it.
type LLMSource interface {
	DefaultLLM() (providers.LLMClient, bool)
}

// Config configures a Pipeline.
type Config struct {
	Schemas   *schema.Registry
	Providers LLMSource

	// MaxTokens defaults to DefaultMaxTokens.
	MaxTokens int
	// MaxUploadBytes defaults to DefaultMaxUploadBytes.
	MaxUploadBytes int64
	// ValidateOutput checks model output against the compiled schema and logs
	// a warning on mismatch. The result is returned unchanged either way.
	ValidateOutput bool

	// Metrics records every model call when set.
	Metrics *metrics.Recorder

	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Request is a single extraction.
type Request struct {
	SchemaName string
	Image      []byte
	MIMEType   string

	// RequestID is generated when empty.
	RequestID string
}

// Result is the outcome of a successful extraction.
type Result struct {
	SchemaName string
	// ModelOutput is the model's response as-is: raw JSON when the model
	// returned valid JSON, otherwise a JSON string holding the text.
	ModelOutput json.RawMessage
	// JSONSchema is exactly the schema document sent to the model.
	JSONSchema json.RawMessage

	RequestID string
	Provider  string
	Model     string
	Duration  time.Duration
}

// Pipeline runs extractions. It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	schemas        *schema.Registry
	providers      LLMSource
	maxTokens      int
	maxUploadBytes int64
	validateOutput bool
	metrics        *metrics.Recorder
	now            func() time.Time
	logger         *slog.Logger
}

// New creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Schemas == nil {
		return nil, fmt.Errorf("schema registry is required")
	}
	if cfg.Providers == nil {
		return nil, fmt.Errorf("provider source is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Pipeline{
		schemas:        cfg.Schemas,
		providers:      cfg.Providers,
		maxTokens:      cfg.MaxTokens,
		maxUploadBytes: cfg.MaxUploadBytes,
		validateOutput: cfg.ValidateOutput,
		metrics:        cfg.Metrics,
		now:            cfg.Now,
		logger:         cfg.Logger,
	}, nil
}

// Schemas returns the registry the pipeline resolves names against.
func (p *Pipeline) Schemas() *schema.Registry {
	return p.schemas
}

// Metrics returns the usage recorder, or nil if none was configured.
func (p *Pipeline) Metrics() *metrics.Recorder {
	return p.metrics
}

// MaxUploadBytes returns the configured upload limit.
func (p *Pipeline) MaxUploadBytes() int64 {
	return p.maxUploadBytes
}

// Extract resolves the schema, sends the image to the default model constrained
// by the compiled schema, and returns the model output with the schema used.
func (p *Pipeline) Extract(ctx context.Context, req Request) (*Result, error) {
	start := p.now()

	def, err := p.schemas.Resolve(req.SchemaName)
	if err != nil {
		return nil, err
	}

	mimeType, err := p.checkUpload(req)
	if err != nil {
		return nil, err
	}

	jsonSchema, err := schema.Compile(*def)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %q: %w", def.Name, err)
	}

	client, ok := p.providers.DefaultLLM()
	if !ok {
		return nil, ErrNoProvider
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	log := p.logger.With("request_id", requestID, "schema", def.Name, "provider", client.Name())
	log.Info("extracting", "mime", mimeType, "bytes", len(req.Image))

	chatReq := &providers.ChatRequest{
		Messages:       p.messages(mimeType, req.Image),
		MaxTokens:      p.maxTokens,
		ResponseFormat: providers.JSONSchemaFormat(def.Name, jsonSchema),
		RequestID:      requestID,
	}

	chatResult, err := client.Chat(ctx, chatReq)
	p.metrics.RecordLLMCall(metrics.RecordOpts{
		RequestID: requestID,
		Schema:    def.Name,
		Provider:  client.Name(),
	}, chatResult, err)
	if err != nil {
		log.Warn("model request failed", "error", err)
		return nil, &ModelError{Provider: client.Name(), Err: err}
	}

	output := relay(chatResult.Content)
	if p.validateOutput {
		if err := providers.ValidateStructuredJSON(jsonSchema, output); err != nil {
			log.Warn("model output does not conform to schema", "error", err)
		}
	}

	duration := p.now().Sub(start)
	log.Info("extraction complete",
		"model", chatResult.ModelUsed,
		"prompt_tokens", chatResult.PromptTokens,
		"completion_tokens", chatResult.CompletionTokens,
		"duration", duration,
	)

	return &Result{
		SchemaName:  def.Name,
		ModelOutput: output,
		JSONSchema:  jsonSchema,
		RequestID:   requestID,
		Provider:    client.Name(),
		Model:       chatResult.ModelUsed,
		Duration:    duration,
	}, nil
}

func (p *Pipeline) checkUpload(req Request) (string, error) {
	if len(req.Image) == 0 {
		return "", fmt.Errorf("%w: image is empty", ErrInvalidUpload)
	}
	if int64(len(req.Image)) > p.maxUploadBytes {
		return "", fmt.Errorf("%w: image is %d bytes, limit is %d", ErrInvalidUpload, len(req.Image), p.maxUploadBytes)
	}
	if strings.TrimSpace(req.MIMEType) == "" {
		return "", fmt.Errorf("%w: missing MIME type", ErrInvalidUpload)
	}
	mediaType, _, err := mime.ParseMediaType(req.MIMEType)
	if err != nil {
		return "", fmt.Errorf("%w: bad MIME type %q: %v", ErrInvalidUpload, req.MIMEType, err)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %s is not an image", ErrInvalidUpload, mediaType)
	}
	return mediaType, nil
}

func (p *Pipeline) messages(mimeType string, image []byte) []providers.Message {
	return []providers.Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptFormat, p.now().Format(time.RFC1123))},
		{Role: "user", ImageURLs: []string{DataURL(mimeType, image)}},
	}
}

// relay returns the content as raw JSON when it parses, otherwise as a JSON string.
func relay(content string) json.RawMessage {
	trimmed := strings.TrimSpace(content)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	b, _ := json.Marshal(content)
	return b
}
