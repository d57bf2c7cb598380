package repositories

import "context"

// LargeLanguageModel abstracts any chat/LLM provider
type LargeLanguageModel interface {
	// Generate takes a single user prompt and returns the model's reply
	Generate(ctx context.Context, prompt string) (string, error)
}
