package adapter

import (
	"context"
	"strings"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
)

// Message is one turn sent to the model.
type Message struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

// Usage for a single generation call, as reported by the provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the raw generator output. Providers that return multi-part
// content keep each part separately.
type Completion struct {
	Parts []string
	Usage Usage
}

// Text flattens the parts into a single string joined by one space.
func (c Completion) Text() string {
	parts := make([]string, 0, len(c.Parts))
	for _, p := range c.Parts {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ResponseGenerator is the port for the language model.
type ResponseGenerator interface {
	// Name identifies the provider for logs and metrics.
	Name() string
	// Model returns the model identifier used for generation.
	Model() string
	Generate(ctx context.Context, systemPrompt string, history []Message) (Completion, error)
}
