package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
)

func TestTokenEstimator_GrowsWithHistory(t *testing.T) {
	e := NewTokenEstimator()
	short := e.Estimate("gpt-4", "You are a helpful assistant.", nil)
	long := e.Estimate("gpt-4", "You are a helpful assistant.", []adapter.Message{
		{Role: model.RoleUser, Content: "What does Acme sell and how much does the enterprise plan cost?"},
		{Role: model.RoleAssistant, Content: "Acme sells anvils. Enterprise starts at $99/month."},
	})
	if short <= 0 {
		t.Fatalf("estimate for system prompt = %d", short)
	}
	if long <= short+8 {
		t.Errorf("history should add tokens and per-message overhead: short=%d long=%d", short, long)
	}
}

func TestTokenEstimator_ColdUsesHeuristicWithoutLoading(t *testing.T) {
	e := NewTokenEstimator()
	e.load = func(string) (*tiktoken.Tiktoken, error) {
		t.Error("Estimate must not load encodings")
		return nil, errors.New("unexpected load")
	}
	// "abcdefgh" -> 2 tokens + 4 overhead
	if n := e.Estimate("gpt-4", "abcdefgh", nil); n != 6 {
		t.Errorf("estimate = %d, want 6", n)
	}
}

func TestTokenEstimator_StalledWarmDoesNotBlockEstimate(t *testing.T) {
	e := NewTokenEstimator()
	release := make(chan struct{})
	defer close(release)
	e.load = func(string) (*tiktoken.Tiktoken, error) {
		<-release
		return nil, errors.New("released")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Warm(ctx, "gpt-4"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Warm err = %v, want deadline exceeded", err)
	}

	done := make(chan int, 1)
	go func() { done <- e.Estimate("gpt-4", "hello world", nil) }()
	select {
	case n := <-done:
		if n <= 4 {
			t.Errorf("estimate = %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Estimate blocked while an encoding load was stalled")
	}
}

func TestTokenEstimator_WarmFailureKeepsHeuristic(t *testing.T) {
	e := NewTokenEstimator()
	e.load = func(string) (*tiktoken.Tiktoken, error) { return nil, errors.New("offline") }
	if err := e.Warm(context.Background(), "gpt-4"); err == nil {
		t.Fatal("expected load error")
	}
	if n := e.Estimate("gpt-4", "abcdefgh", nil); n != 6 {
		t.Errorf("estimate = %d, want 6", n)
	}
}
