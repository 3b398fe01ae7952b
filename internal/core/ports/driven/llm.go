// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// LLMService provides text completion used to summarise clusters.
// This is an optional service - when nil, summaries degrade to local fallbacks.
//
// Implementations may include:
//   - OpenAI (GPT-4o)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Complete returns the model's reply to a single system+user exchange.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is one completion call.
type CompletionRequest struct {
	// SystemPrompt sets the assistant's role. May be empty.
	SystemPrompt string

	// UserPrompt is the content to respond to.
	UserPrompt string

	// MaxTokens is the maximum number of tokens to generate.
	// Zero lets the adapter pick its default.
	MaxTokens int
}
