// Package llm adapts the Anthropic Messages API to core.Completer and
// wraps it with failure protection. Both the chat path and the memory
// summarizer go through this package.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/konuslabs/recall/core"
)

const (
	// DefaultModel balances quality and cost for conversational use.
	DefaultModel = "claude-sonnet-4-20250514"

	defaultMaxTokens = 2048
	defaultTimeout   = 120 * time.Second
)

// Client implements core.Completer against the Anthropic API.
type Client struct {
	api     anthropic.Client
	model   string
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithModel overrides the default model.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each API call. Zero disables the bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates an Anthropic-backed completer.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		api:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   DefaultModel,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends the request to the Messages API and collects the text
// blocks of the response.
func (c *Client) Complete(ctx context.Context, req *core.CompletionRequest) (*core.CompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("llm: empty message list")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages:  toMessageParams(req.Messages),
	}
	for _, sys := range req.System {
		params.System = append(params.System, anthropic.TextBlockParam{Text: sys})
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("llm: messages.create: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &core.CompletionResponse{
		Text:         text.String(),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func toMessageParams(messages []core.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		block := anthropic.NewTextBlock(msg.Content)
		switch msg.Role {
		case core.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			// System text belongs in the System field; anything else that
			// slips through is treated as user input.
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
