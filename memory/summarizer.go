package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/konuslabs/recall/core"
)

// Candidate is one extraction result proposed by the completion model.
// Only candidates with ShouldRemember set become records.
type Candidate struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	Importance     int      `json:"importance_score"`
	Kind           Kind     `json:"memory_type"`
	ShouldRemember bool     `json:"should_remember"`
	Reason         string   `json:"reason,omitempty"`
}

const extractionPrompt = `You are a conversation memory analyst. Analyze the
conversation below and extract information worth remembering long term.

Return ONLY a JSON array (no prose, no markdown) of zero or more objects:

[{
  "summary": "2-3 sentence distillation of what to remember",
  "key_points": ["short fact 1", "short fact 2"],
  "importance_score": 7,
  "should_remember": true,
  "memory_type": "active",
  "reason": "why this is worth keeping"
}]

Do NOT remember: greetings and pleasantries, bare acknowledgements ("ok",
"sure", "thanks"), filler, retry/regenerate requests, or content that is
only a question with no context. Set should_remember to false for those.

DO remember: names, personal details, preferences and dislikes, plans and
decisions, dates, places, people, events, emotional state, and anything the
user explicitly asks to have remembered.

importance_score is 1-10: 10 for complete who/when/where/what information,
8-9 for important personal facts, 5-7 for a single notable detail, below 5
for marginal content.

memory_type is "active" for information the user volunteered, "passive"
when the user explicitly said to remember it.

Preserve the language of the conversation in summary and key_points.

Conversation:
%s`

// maxWindowBytes bounds the transcript handed to the extraction call.
const maxWindowBytes = 8000

// Summarizer turns a window of raw turns into candidate memories by
// delegating to the external completion model. A failed call aborts only
// the current round; nothing is persisted and no error reaches the chat
// path.
type Summarizer struct {
	completer   core.Completer
	temperature float64
	maxTokens   int64
}

// NewSummarizer wraps a completer with extraction defaults. A low
// temperature keeps the JSON output stable.
func NewSummarizer(completer core.Completer) *Summarizer {
	return &Summarizer{
		completer:   completer,
		temperature: 0.3,
		maxTokens:   1024,
	}
}

// Summarize extracts candidate memories from a window of turns.
func (s *Summarizer) Summarize(ctx context.Context, window []core.Message) ([]Candidate, error) {
	transcript := core.FormatTranscript(window)
	if len(transcript) > maxWindowBytes {
		transcript = transcript[:maxWindowBytes]
	}

	resp, err := s.completer.Complete(ctx, &core.CompletionRequest{
		Messages: []core.Message{
			{Role: core.RoleUser, Content: fmt.Sprintf(extractionPrompt, transcript)},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	candidates, err := parseCandidates(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("parse extraction output: %w", err)
	}
	return candidates, nil
}

// parseCandidates decodes the model's JSON output. Models wrap JSON in
// markdown fences often enough that the fences are stripped first, and a
// single bare object is accepted in place of an array.
func parseCandidates(text string) ([]Candidate, error) {
	text = stripFences(text)
	if text == "" {
		return nil, nil
	}

	var candidates []Candidate
	if err := json.Unmarshal([]byte(text), &candidates); err == nil {
		return candidates, nil
	}

	var single Candidate
	if err := json.Unmarshal([]byte(text), &single); err != nil {
		return nil, err
	}
	return []Candidate{single}, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
