package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ResponseGenerator = (*OpenAIAdapter)(nil)

type OpenAIOptions struct {
	APIKey      string
	BaseURL     string // optional, e.g. a proxy or test server
	Model       string
	Temperature float64
	Streaming   bool
	MaxRetries  int // -1 keeps the SDK default
}

// OpenAIAdapter implements adapter.ResponseGenerator on the Chat Completions API.
type OpenAIAdapter struct {
	client      openai.Client
	model       string
	temperature float64
	streaming   bool
	log         *zerolog.Logger
}

func NewOpenAIAdapter(opts OpenAIOptions, logger *zerolog.Logger) (*OpenAIAdapter, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if opts.Model == "" {
		opts.Model = "gpt-4"
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.MaxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(opts.MaxRetries))
	}
	l := logger.With().Str("component", "openai").Logger()
	return &OpenAIAdapter{
		client:      openai.NewClient(reqOpts...),
		model:       opts.Model,
		temperature: opts.Temperature,
		streaming:   opts.Streaming,
		log:         &l,
	}, nil
}

func (o *OpenAIAdapter) Name() string  { return "openai" }
func (o *OpenAIAdapter) Model() string { return o.model }

func (o *OpenAIAdapter) Generate(ctx context.Context, systemPrompt string, history []adapter.Message) (adapter.Completion, error) {
	msgs, err := toOpenAIMessages(systemPrompt, history)
	if err != nil {
		return adapter.Completion{}, err
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    msgs,
		Temperature: openai.Float(o.temperature),
	}
	if o.streaming {
		return o.generateStream(ctx, params)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return adapter.Completion{}, fmt.Errorf("openai chat completion: %w", err)
	}
	out := adapter.Completion{Usage: usageFromOpenAI(resp.Usage)}
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			out.Parts = append(out.Parts, c.Message.Content)
			break
		}
	}
	return out, nil
}

// generateStream concatenates deltas into a single part.
func (o *OpenAIAdapter) generateStream(ctx context.Context, params openai.ChatCompletionNewParams) (adapter.Completion, error) {
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}
	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		b      strings.Builder
		usage  openai.CompletionUsage
		chunks int
	)
	for stream.Next() {
		chunk := stream.Current()
		chunks++
		if len(chunk.Choices) > 0 {
			b.WriteString(chunk.Choices[0].Delta.Content)
		}
		if chunk.Usage.TotalTokens > 0 {
			usage = chunk.Usage
		}
	}
	if err := stream.Err(); err != nil {
		return adapter.Completion{}, fmt.Errorf("openai stream: %w", err)
	}
	o.log.Debug().Int("chunks", chunks).Msg("stream finished")

	out := adapter.Completion{Usage: usageFromOpenAI(usage)}
	if b.Len() > 0 {
		out.Parts = []string{b.String()}
	}
	return out, nil
}

func toOpenAIMessages(systemPrompt string, history []adapter.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	out = append(out, openai.SystemMessage(systemPrompt))
	for _, m := range history {
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case model.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, m.Role)
		}
	}
	return out, nil
}

func usageFromOpenAI(u openai.CompletionUsage) adapter.Usage {
	return adapter.Usage{
		PromptTokens:     int(u.PromptTokens),
		CompletionTokens: int(u.CompletionTokens),
		TotalTokens:      int(u.TotalTokens),
	}
}
