// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
)

var _ adapter.ResponseGenerator = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client      *genai.Client
	model       string
	temperature float32
	log         *zerolog.Logger
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, modelName string, temperature float64, logger *zerolog.Logger) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "gemini").Logger()
	return &GeminiAdapter{client: c, model: modelName, temperature: float32(temperature), log: &l}, nil
}

func (g *GeminiAdapter) Name() string  { return "gemini" }
func (g *GeminiAdapter) Model() string { return g.model }

// Generate keeps every text part of the first candidate so the caller can
// flatten them.
func (g *GeminiAdapter) Generate(ctx context.Context, systemPrompt string, history []adapter.Message) (adapter.Completion, error) {
	system, contents, err := toGenAIHistory(systemPrompt, history)
	if err != nil {
		return adapter.Completion{}, err
	}
	if len(contents) == 0 {
		return adapter.Completion{}, errors.New("gemini: no messages")
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       genai.Ptr(g.temperature),
	})
	if err != nil {
		return adapter.Completion{}, fmt.Errorf("gemini generate: %w", err)
	}

	out := adapter.Completion{}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p != nil && p.Text != "" {
				out.Parts = append(out.Parts, p.Text)
			}
		}
	}
	if resp != nil && resp.UsageMetadata != nil {
		out.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	g.log.Debug().Int("parts", len(out.Parts)).Msg("generation finished")
	return out, nil
}

// toGenAIHistory folds system turns into the system instruction; Gemini has
// no system role in contents.
func toGenAIHistory(systemPrompt string, msgs []adapter.Message) (string, []*genai.Content, error) {
	system := []string{systemPrompt}
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		var role string
		switch m.Role {
		case model.RoleSystem:
			system = append(system, m.Content)
			continue
		case model.RoleUser:
			role = string(genai.RoleUser)
		case model.RoleAssistant:
			role = string(genai.RoleModel)
		default:
			return "", nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, m.Role)
		}
		out = append(out, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	return strings.Join(system, "\n\n"), out, nil
}
