package ai

import "context"

// Provider produces moderator text for a room. Implementations are external
// services; the core only ever sees the returned string.
type Provider interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error)
}
