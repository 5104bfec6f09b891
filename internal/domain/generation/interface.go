package generation

import "context"

// Model is the subset of the LLM client used for generation.
type Model interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}
