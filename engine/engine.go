// Package engine assembles the chat path: turn gating, background
// summarization, history trimming, memory retrieval, and the outbound
// completion call. Memory failures degrade the prompt; they never fail
// the chat.
package engine

import (
	"context"
	"log"
	"strings"

	"github.com/konuslabs/recall/core"
	"github.com/konuslabs/recall/memory"
)

const (
	// DefaultBatchSize is the summarization round boundary: a round fires
	// when the turn count is an exact multiple of it.
	DefaultBatchSize = 50

	// DefaultKeepSize is the live window length after a trim.
	DefaultKeepSize = 10

	defaultSystemPrompt = "You are a helpful assistant."

	memoryContextHeader = "Relevant context from previous conversations with this user:"
)

// Engine is the conversational runner. Clients hold their own full
// history and send it whole on every call; the engine derives everything
// else (round boundaries, trim windows, retrieval queries) from that.
type Engine struct {
	completer core.Completer
	store     memory.Store
	retriever *memory.Retriever
	worker    *memory.SummaryWorker
	retention *memory.RetentionJob

	systemPrompt string
	batchSize    int
	keepSize     int
	topK         int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSystemPrompt sets the base system instruction sent on every call.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) {
		if prompt != "" {
			e.systemPrompt = prompt
		}
	}
}

// WithBatchSize overrides the summarization round boundary.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithKeepSize overrides the post-trim window length.
func WithKeepSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.keepSize = n
		}
	}
}

// WithTopK overrides how many memories are injected per call.
func WithTopK(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topK = n
		}
	}
}

// WithWorker supplies the background summarization pool. Without one the
// engine still chats and retrieves, but no new memories form.
func WithWorker(w *memory.SummaryWorker) Option {
	return func(e *Engine) { e.worker = w }
}

// WithRetention supplies the retention job used by ClearOldMemories and
// StartRetention.
func WithRetention(j *memory.RetentionJob) Option {
	return func(e *Engine) { e.retention = j }
}

// New builds an engine. encoder may be nil; retrieval then runs on the
// lexical path only.
func New(completer core.Completer, store memory.Store, encoder memory.Encoder, opts ...Option) *Engine {
	e := &Engine{
		completer:    completer,
		store:        store,
		retriever:    memory.NewRetriever(store, encoder),
		systemPrompt: defaultSystemPrompt,
		batchSize:    DefaultBatchSize,
		keepSize:     DefaultKeepSize,
		topK:         memory.DefaultTopK,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Chat runs one stateless conversational call for the user. The turn
// count is len(req.Messages); nothing is counted server-side.
//
// Order of operations: evaluate the gate, detach the summarization round,
// trim the outbound window, retrieve memories, complete. Only a completer
// failure can surface as an error.
func (e *Engine) Chat(ctx context.Context, userID string, req *core.ChatRequest) (*core.ChatResponse, error) {
	scope := core.Scope{UserID: userID, ScopeID: req.ScopeID}
	turnCount := len(req.Messages)

	decision := memory.EvaluateTurnGate(turnCount, e.batchSize, e.keepSize)

	if decision.Trigger && e.worker != nil {
		window := req.Messages[turnCount-e.batchSize:]
		e.worker.Enqueue(memory.SummaryJob{
			Scope:  scope,
			Round:  decision.Round,
			Window: append([]core.Message(nil), window...),
		})
	}

	history := req.Messages
	if decision.TrimTo > 0 && len(history) > decision.TrimTo {
		history = history[len(history)-decision.TrimTo:]
		log.Printf("[MEMORY] Trimmed history %d -> %d turns for scope %s/%s", turnCount, len(history), scope.UserID, scope.ScopeID)
	}

	system := []string{e.systemPrompt}
	if block := e.memoryContext(ctx, scope, req.Messages); block != "" {
		system = append(system, block)
	}

	resp, err := e.completer.Complete(ctx, &core.CompletionRequest{
		System:      system,
		Messages:    history,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &core.ChatResponse{
		Message:      resp.Text,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// memoryContext retrieves and renders the injected memory block, or ""
// when there is nothing to inject. Retrieval errors are logged and
// swallowed; the chat proceeds without memory.
func (e *Engine) memoryContext(ctx context.Context, scope core.Scope, history []core.Message) string {
	query := core.LatestUserText(history)
	if query == "" {
		return ""
	}

	records, err := e.retriever.Retrieve(ctx, scope, query, e.topK)
	if err != nil {
		log.Printf("[MEMORY] Retrieval failed for scope %s/%s, continuing without memory: %v", scope.UserID, scope.ScopeID, err)
		return ""
	}
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(memoryContextHeader)
	for _, rec := range records {
		b.WriteString("\n- ")
		b.WriteString(rec.FormatForPrompt())
	}
	return b.String()
}

// ListMemories returns the user's records for a scope, newest first. An
// empty scopeID lists across all of the user's scopes.
func (e *Engine) ListMemories(ctx context.Context, userID, scopeID string, includeDeleted bool) ([]*memory.Record, error) {
	return e.store.List(ctx, userID, scopeID, memory.ListOptions{
		IncludeDeleted: includeDeleted,
		Descending:     true,
	})
}

// DeleteMemory soft-deletes one of the user's records. A record that is
// missing or already deleted fails with memory.ErrNotFound.
func (e *Engine) DeleteMemory(ctx context.Context, userID, id string) error {
	return e.store.SoftDelete(ctx, userID, id)
}

// ClearOldMemories soft-deletes the user's records older than the given
// number of months (0 uses the retention default) and returns the count.
func (e *Engine) ClearOldMemories(ctx context.Context, userID, scopeID string, months int) (int, error) {
	if e.retention == nil {
		e.retention = memory.NewRetentionJob(e.store, 0, 0)
	}
	return e.retention.SweepScope(ctx, userID, scopeID, months)
}

// StartRetention runs periodic retention sweeps until ctx is cancelled.
// No-op without a configured retention job; blocks otherwise.
func (e *Engine) StartRetention(ctx context.Context) {
	if e.retention == nil {
		return
	}
	e.retention.Start(ctx)
}

// Close shuts down the worker pool and the store.
func (e *Engine) Close() error {
	if e.worker != nil {
		e.worker.Close()
	}
	return e.store.Close()
}
