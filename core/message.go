package core

import "strings"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation turn as supplied by the client.
// The client owns the full history and sends it whole on every request;
// the SDK never persists conversation state of its own.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Scope is the (user, system-instruction) pair that partitions memories.
// Two scopes never share retrieval results.
type Scope struct {
	UserID  string `json:"user_id"`
	ScopeID string `json:"scope_id"`
}

// ChatRequest is one stateless chat call. Messages is the sole source of
// the turn count; there is no server-side session counter.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	ScopeID     string    `json:"scope_id"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int64     `json:"max_tokens,omitempty"`
}

// ChatResponse carries the completion model's reply.
type ChatResponse struct {
	Message      string `json:"message"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// LatestUserText returns the content of the most recent user turn,
// or "" when the history contains none.
func LatestUserText(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content
		}
	}
	return ""
}

// FormatTranscript renders turns as a plain-text transcript, one speaker
// per paragraph. Used as the source excerpt handed to the summarizer.
func FormatTranscript(turns []Message) string {
	parts := make([]string, 0, len(turns))
	for _, m := range turns {
		parts = append(parts, string(m.Role)+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}
