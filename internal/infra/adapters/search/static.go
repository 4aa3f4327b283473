package search

import (
	"context"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
)

var _ adapter.ContextRetriever = (*StaticRetriever)(nil)

// StaticRetriever returns a fixed snippet list. Used in dev mode.
type StaticRetriever struct {
	Snippets []adapter.Snippet
}

func NewStaticRetriever(snippets ...adapter.Snippet) *StaticRetriever {
	return &StaticRetriever{Snippets: snippets}
}

func (s *StaticRetriever) Name() string { return "static" }

func (s *StaticRetriever) Search(ctx context.Context, _ string) ([]adapter.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]adapter.Snippet, len(s.Snippets))
	copy(out, s.Snippets)
	return out, nil
}
