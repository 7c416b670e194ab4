package ai

import "context"

// LLMProvider sends a system and user prompt to a chat model and returns the
// raw text of the first choice.
type LLMProvider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
