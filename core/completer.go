package core

import "context"

// CompletionRequest is a single call to the external completion model.
// System blocks are kept separate from the message history so callers can
// attach auxiliary context (retrieved memories) without touching the
// system instruction itself.
type CompletionRequest struct {
	// System holds the system instruction followed by any auxiliary
	// context blocks, in order.
	System []string

	// Messages is the (possibly trimmed) conversation window.
	Messages []Message

	Temperature float64
	MaxTokens   int64
}

// CompletionResponse is the model's reply plus surfaced usage metadata.
type CompletionResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Completer is the external completion model, consumed as a black box.
// Implementations: llm.Client (Anthropic), llm.Breaker (circuit-broken
// wrapper), test fakes.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
