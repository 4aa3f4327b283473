package ai

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
)

// TokenEstimator approximates prompt size locally before a generation call.
// Estimate never loads an encoding itself: encodings are fetched by Warm,
// and until one is available Estimate uses a chars/4 heuristic.
type TokenEstimator struct {
	mu   sync.RWMutex
	encs map[string]*tiktoken.Tiktoken
	load func(modelName string) (*tiktoken.Tiktoken, error)
}

func NewTokenEstimator() *TokenEstimator {
	return &TokenEstimator{encs: make(map[string]*tiktoken.Tiktoken), load: loadEncoding}
}

func loadEncoding(modelName string) (*tiktoken.Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	return enc, err
}

// Warm loads the encoding for modelName, which may download BPE files.
// It returns when the load finishes or ctx ends; a load that outlives ctx
// still installs its encoding when it completes.
func (e *TokenEstimator) Warm(ctx context.Context, modelName string) error {
	done := make(chan error, 1)
	go func() {
		enc, err := e.load(modelName)
		if err == nil {
			e.mu.Lock()
			e.encs[modelName] = enc
			e.mu.Unlock()
		}
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *TokenEstimator) encoding(modelName string) *tiktoken.Tiktoken {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.encs[modelName]
}

// Estimate counts tokens of the system prompt plus every history turn,
// with a small per-message overhead as the chat format adds.
func (e *TokenEstimator) Estimate(modelName, systemPrompt string, history []adapter.Message) int {
	const perMessage = 4
	enc := e.encoding(modelName)
	count := func(s string) int {
		if enc == nil {
			return (len(s) + 3) / 4
		}
		return len(enc.Encode(s, nil, nil))
	}
	total := count(systemPrompt) + perMessage
	for _, m := range history {
		total += count(m.Content) + perMessage
	}
	return total
}
