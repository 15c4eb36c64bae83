package driven

import "context"

// LLMService produces completions for assembled prompts.
// Answers, rerank scores and judge verdicts all go through Generate.
//
// Implementations may include:
//   - OpenAI (GPT-4.1, GPT-4o)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a complete answer for the prompt.
	// Service failures are reported as domain.ErrGenerationUnavailable.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Stream produces the answer incrementally. Fragments arrive in generation
	// order and concatenate to the full answer.
	//
	// The returned channel is closed after the last fragment or after a
	// fragment carrying Err. Cancelling ctx stops the producer and releases
	// the underlying connection; the channel is then closed without further
	// fragments being guaranteed.
	Stream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan Fragment, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Fragment is one piece of a streamed answer.
// Exactly one of Text or Err is meaningful.
type Fragment struct {
	Text string
	Err  error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate. Zero means provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
