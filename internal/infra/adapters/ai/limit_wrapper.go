package ai

import (
	"context"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ResponseGenerator = (*limitedAI)(nil)

type limitedAI struct {
	inner adapter.ResponseGenerator
	sem   chan struct{}
}

// NewLimitedAI caps concurrent Generate calls on inner. A waiting caller
// gives up when its context ends.
func NewLimitedAI(inner adapter.ResponseGenerator, maxConcurrent int) adapter.ResponseGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) Name() string  { return l.inner.Name() }
func (l *limitedAI) Model() string { return l.inner.Model() }

func (l *limitedAI) Generate(ctx context.Context, systemPrompt string, history []adapter.Message) (adapter.Completion, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return adapter.Completion{}, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, systemPrompt, history)
}
