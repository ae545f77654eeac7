package llm

import (
	"context"
	"strings"

	"golang.org/x/time/rate"

	"github.com/scrypster/graphmem/pkg/types"
)

// SearchSummarizer produces a short natural-language answer from ranked
// search results. Unlike the extractors it propagates failures, because the
// caller has a non-model fallback rendering.
type SearchSummarizer struct {
	gen     TextGenerator
	limiter *rate.Limiter
}

// NewSearchSummarizer creates a summarizer.
func NewSearchSummarizer(gen TextGenerator, limiter *rate.Limiter) *SearchSummarizer {
	return &SearchSummarizer{gen: gen, limiter: limiter}
}

// Summarize returns a concise answer for the query grounded in results.
func (s *SearchSummarizer) Summarize(ctx context.Context, query string, results []*types.SearchResult) (string, error) {
	if err := waitLimiter(ctx, s.limiter); err != nil {
		return "", err
	}
	reply, err := s.gen.Complete(ctx, searchSummaryPrompt(query, results))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
