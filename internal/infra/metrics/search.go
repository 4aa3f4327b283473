package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(searchLatencyMs, searchSnippets) }

var (
	searchLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_latency_ms",
			Help:    "Context retriever latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
		},
		[]string{"provider", "success"},
	)

	searchSnippets = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_snippets",
			Help:    "Number of snippets returned per search.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"provider"},
	)
)

func ObserveSearch(provider string, snippets int, latencyMs int, success bool) {
	searchLatencyMs.WithLabelValues(norm(provider), strconv.FormatBool(success)).Observe(float64(latencyMs))
	if success {
		searchSnippets.WithLabelValues(norm(provider)).Observe(float64(snippets))
	}
}
