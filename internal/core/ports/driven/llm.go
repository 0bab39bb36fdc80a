package driven

import "context"

// CompletionService produces text completions from a hosted LLM.
// The API key travels with each request because calls are distributed
// across a pool of interchangeable credentials.
//
// Implementations may include:
//   - Groq (llama3 family, OpenAI-compatible API)
//   - Any OpenAI-compatible chat completions endpoint
type CompletionService interface {
	// Complete generates an answer from a system prompt and a user prompt.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Ping validates a single API key with a minimal low-cost request.
	// Used by credential health checks; never counts against retrieval work.
	Ping(ctx context.Context, apiKey string) error

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// CompletionRequest carries one LLM call.
type CompletionRequest struct {
	// APIKey is the credential secret to authenticate this call with.
	APIKey string

	// SystemPrompt sets the model's role and answering rules.
	SystemPrompt string

	// UserPrompt is the question plus its supporting context.
	UserPrompt string

	// MaxTokens caps the generated answer length. Zero means the adapter default.
	MaxTokens int

	// Temperature controls randomness (0 = deterministic).
	Temperature float64
}
