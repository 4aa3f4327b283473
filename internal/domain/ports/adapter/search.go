package adapter

import "context"

// Snippet is one piece of retrieved company context.
type Snippet struct {
	Title   string
	URL     string
	Content string
}

// ContextRetriever is the port for the web search provider.
// An empty result set is not an error.
type ContextRetriever interface {
	Name() string
	Search(ctx context.Context, query string) ([]Snippet, error)
}
