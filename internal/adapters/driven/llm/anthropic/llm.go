// Package anthropic provides an LLM service adapter using the Anthropic API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com/"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com/).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-haiku-latest).
	Model string

	// Timeout bounds a batch request (default: 120s).
	Timeout time.Duration

	// HTTPClient overrides the SDK's client. Used by tests.
	HTTPClient *http.Client
}

// LLMService provides LLM operations using the Anthropic API.
type LLMService struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required (set ANTHROPIC_API_KEY)", domain.ErrGenerationUnavailable)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &LLMService{
		client:  anthropic.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

func (s *LLMService) params(prompt string, opts driven.GenerateOptions) anthropic.MessageNewParams {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(opts.Temperature),
	}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	msg, err := s.client.Messages.New(ctx, s.params(prompt, opts), option.WithRequestTimeout(s.timeout))
	if err != nil {
		return "", classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic returned no text", domain.ErrGenerationUnavailable)
	}
	return sb.String(), nil
}

// Stream returns once the first event has arrived, so request failures are
// reported here rather than on the channel.
func (s *LLMService) Stream(ctx context.Context, prompt string, opts driven.GenerateOptions) (<-chan driven.Fragment, error) {
	stream := s.client.Messages.NewStreaming(ctx, s.params(prompt, opts))
	if !stream.Next() {
		err := stream.Err()
		_ = stream.Close()
		if err != nil {
			return nil, classify(err)
		}
		empty := make(chan driven.Fragment)
		close(empty)
		return empty, nil
	}

	out := make(chan driven.Fragment)
	go s.pump(ctx, stream, out)
	return out, nil
}

// pump forwards text deltas from the current event onwards.
func (s *LLMService) pump(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], out chan<- driven.Fragment) {
	defer close(out)
	defer stream.Close()

	for {
		if ev, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent); ok && ev.Delta.Text != "" {
			select {
			case out <- driven.Fragment{Text: ev.Delta.Text}:
			case <-ctx.Done():
				return
			}
		}
		if !stream.Next() {
			break
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		select {
		case out <- driven.Fragment{Err: classify(err)}:
		case <-ctx.Done():
		}
	}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing one model.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)}); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", classify(err))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

// classify maps SDK errors onto domain errors.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: anthropic: %w", domain.ErrRateLimited, err)
		}
		return fmt.Errorf("%w: anthropic (status %d): %w", domain.ErrGenerationUnavailable, apiErr.StatusCode, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: anthropic: %w", domain.ErrGenerationUnavailable, err)
}
