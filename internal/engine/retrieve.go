package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/internal/llm"
	"github.com/scrypster/graphmem/pkg/types"
)

const (
	// minSearchLimit and maxSearchLimit clamp caller-supplied limits.
	minSearchLimit = 1
	maxSearchLimit = 50

	// displayCap bounds how many results feed the summary and listing.
	// Counts still report the full result set.
	displayCap = 5

	// noResultsMessage is returned verbatim when nothing matches.
	noResultsMessage = "No relevant memories found."
)

// SearchResponse is the outcome of one retrieval.
type SearchResponse struct {
	// Answer is a natural-language summary of the top results, or
	// noResultsMessage when Results is empty.
	Answer string

	// Results holds every match, ordered by descending score.
	Results []*types.SearchResult

	// TotalEntities and TotalMemories count the full result set, not just
	// the displayed slice.
	TotalEntities int
	TotalMemories int
}

// RetrievalPipeline answers queries from the graph: embed the query, rank
// entities by vector similarity, and summarize the attached memories.
type RetrievalPipeline struct {
	store      graph.Store
	embedder   llm.EmbeddingGenerator
	summarizer *llm.SearchSummarizer
}

// NewRetrievalPipeline assembles the pipeline from its collaborators.
func NewRetrievalPipeline(store graph.Store, embedder llm.EmbeddingGenerator, summarizer *llm.SearchSummarizer) *RetrievalPipeline {
	return &RetrievalPipeline{store: store, embedder: embedder, summarizer: summarizer}
}

// SearchMemory retrieves memories relevant to the query. A limit outside
// [1, 50] is clamped; zero means the default. Scores are recomputed locally
// as cosine similarity so ranking is uniform across storage backends.
func (p *RetrievalPipeline) SearchMemory(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("engine: empty query: %w", graph.ErrInvalidInput)
	}
	switch {
	case limit <= 0:
		limit = graph.DefaultSearchLimit
	case limit < minSearchLimit:
		limit = minSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	embedding, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("engine: query embedding failed: %w", err)
	}

	results, err := p.store.VectorSearch(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("engine: vector search failed: %w", err)
	}
	if len(results) == 0 {
		return &SearchResponse{Answer: noResultsMessage, Results: []*types.SearchResult{}}, nil
	}

	// Backends rank and score differently, so rescore locally against the
	// query embedding and re-sort.
	for _, sr := range results {
		sr.Score = CosineSimilarity(embedding, sr.Entity.Embedding)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	resp := &SearchResponse{
		Results:       results,
		TotalEntities: len(results),
	}
	for _, sr := range results {
		resp.TotalMemories += len(sr.Memories)
	}

	display := results
	if len(display) > displayCap {
		display = display[:displayCap]
	}
	resp.Answer = p.answer(ctx, query, display, resp.TotalEntities, resp.TotalMemories)
	return resp, nil
}

// answer summarizes the displayed results with the model, falling back to a
// templated listing when the model is unavailable.
func (p *RetrievalPipeline) answer(ctx context.Context, query string, display []*types.SearchResult, totalEntities, totalMemories int) string {
	if p.summarizer != nil {
		summary, err := p.summarizer.Summarize(ctx, query, display)
		if err == nil && summary != "" {
			return summary
		}
		if err != nil {
			log.Printf("engine: summarization failed, using listing: %v", err)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d entities and %d memories relevant to %q:\n", totalEntities, totalMemories, query)
	for _, sr := range display {
		fmt.Fprintf(&sb, "- %s (%s, %.0f%% match)", sr.Entity.Name, sr.Entity.Type, sr.Score*100)
		if len(sr.Memories) > 0 {
			fmt.Fprintf(&sb, ": %s", sr.Memories[0].Content)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
