package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/konuslabs/recall/core"
	"github.com/konuslabs/recall/llm"
)

type scriptedCompleter struct {
	err   error
	calls int
}

func (s *scriptedCompleter) Complete(ctx context.Context, req *core.CompletionRequest) (*core.CompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &core.CompletionResponse{Text: "ok"}, nil
}

func TestBreaker_PassesThroughWhenHealthy(t *testing.T) {
	inner := &scriptedCompleter{}
	b := llm.NewBreaker(inner)

	resp, err := b.Complete(context.Background(), &core.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Text = %q", resp.Text)
	}
	if b.State() != "closed" {
		t.Errorf("State = %s, want closed", b.State())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &scriptedCompleter{err: errors.New("upstream 500")}
	b := llm.NewBreakerWithConfig(inner, llm.BreakerConfig{MaxFailures: 3, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := b.Complete(context.Background(), &core.CompletionRequest{}); err == nil {
			t.Fatal("expected failure")
		}
	}
	if b.State() != "open" {
		t.Fatalf("State = %s, want open after 3 failures", b.State())
	}

	_, err := b.Complete(context.Background(), &core.CompletionRequest{})
	if !errors.Is(err, llm.ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3 (open circuit must not reach upstream)", inner.calls)
	}
}

func TestBreaker_RecoversViaHalfOpen(t *testing.T) {
	inner := &scriptedCompleter{err: errors.New("down")}
	b := llm.NewBreakerWithConfig(inner, llm.BreakerConfig{
		MaxFailures:          1,
		Timeout:              10 * time.Millisecond,
		HalfOpenMaxSuccesses: 1,
	})

	if _, err := b.Complete(context.Background(), &core.CompletionRequest{}); err == nil {
		t.Fatal("expected failure")
	}
	if b.State() != "open" {
		t.Fatalf("State = %s, want open", b.State())
	}

	time.Sleep(20 * time.Millisecond)
	inner.err = nil

	resp, err := b.Complete(context.Background(), &core.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete in half-open: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Text = %q", resp.Text)
	}
	if b.State() != "closed" {
		t.Errorf("State = %s, want closed after probe success", b.State())
	}
}
