package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ContextRetriever = (*TavilyRetriever)(nil)

// TavilyRetriever calls the Tavily search API and returns up to maxResults
// snippets.
type TavilyRetriever struct {
	apiKey     string
	base       string // e.g., https://api.tavily.com
	maxResults int
	client     *http.Client
	log        *zerolog.Logger
}

func NewTavilyRetriever(apiKey, baseURL string, maxResults int, timeout time.Duration, logger *zerolog.Logger) (*TavilyRetriever, error) {
	if apiKey == "" {
		return nil, errors.New("tavily api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	l := logger.With().Str("component", "tavily").Logger()
	return &TavilyRetriever{
		apiKey:     apiKey,
		base:       strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		client:     &http.Client{Timeout: timeout},
		log:        &l,
	}, nil
}

func (t *TavilyRetriever) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *TavilyRetriever) Search(ctx context.Context, query string) ([]adapter.Snippet, error) {
	b, err := json.Marshal(tavilyRequest{APIKey: t.apiKey, Query: query, MaxResults: t.maxResults})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/search", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}
	out := make([]adapter.Snippet, 0, len(payload.Results))
	for _, r := range payload.Results {
		if len(out) == t.maxResults {
			break
		}
		out = append(out, adapter.Snippet{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	t.log.Debug().Int("results", len(out)).Msg("search finished")
	return out, nil
}
