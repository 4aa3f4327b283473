package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
)

var _ adapter.ResponseGenerator = (*StaticAdapter)(nil)

// StaticAdapter answers without calling a provider. It is used in dev mode
// and tests.
type StaticAdapter struct {
	Delay time.Duration
	Reply string // fixed reply; when empty the last user turn is echoed
}

func NewStaticAdapter() *StaticAdapter {
	return &StaticAdapter{Delay: 100 * time.Millisecond}
}

func (a *StaticAdapter) Name() string  { return "static" }
func (a *StaticAdapter) Model() string { return "static" }

func (a *StaticAdapter) Generate(ctx context.Context, _ string, history []adapter.Message) (adapter.Completion, error) {
	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return adapter.Completion{}, ctx.Err()
		}
	}
	if a.Reply != "" {
		return adapter.Completion{Parts: []string{a.Reply}}, nil
	}
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			last = history[i].Content
			break
		}
	}
	return adapter.Completion{Parts: []string{fmt.Sprintf("Thanks for asking about %q. Here is what I can share.", last)}}, nil
}
