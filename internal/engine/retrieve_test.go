package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/internal/llm"
	"github.com/scrypster/graphmem/pkg/types"
)

func searchResult(name string, embedding []float32, memoryCount int) *types.SearchResult {
	sr := &types.SearchResult{
		Entity: &types.Entity{
			ID:        "0x" + name,
			Name:      name,
			Type:      types.EntityTypePerson,
			Embedding: embedding,
		},
	}
	for i := 0; i < memoryCount; i++ {
		sr.Memories = append(sr.Memories, &types.Memory{
			ID:      fmt.Sprintf("m-%s-%d", name, i),
			Content: fmt.Sprintf("memory %d about %s", i, name),
		})
	}
	return sr
}

func TestSearchMemoryEmptyQuery(t *testing.T) {
	pipeline := NewRetrievalPipeline(&fakeStore{}, &fakeEmbedder{}, nil)

	resp, err := pipeline.SearchMemory(context.Background(), "   ", 0)
	assert.ErrorIs(t, err, graph.ErrInvalidInput)
	assert.Nil(t, resp)
}

func TestSearchMemoryNoResults(t *testing.T) {
	gen := &scriptedGenerator{}
	pipeline := NewRetrievalPipeline(&fakeStore{}, &fakeEmbedder{}, llm.NewSearchSummarizer(gen, nil))

	resp, err := pipeline.SearchMemory(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Equal(t, "No relevant memories found.", resp.Answer)
	assert.Empty(t, resp.Results)
	assert.Zero(t, gen.calls, "no summarization call when nothing matched")
}

func TestSearchMemoryRescoresAndSorts(t *testing.T) {
	// The query embedding is the x axis; results arrive in store order with
	// the best match last.
	store := &fakeStore{searchResults: []*types.SearchResult{
		searchResult("Orthogonal", []float32{0, 1, 0}, 1),
		searchResult("Close", []float32{0.9, 0.1, 0}, 1),
		searchResult("Exact", []float32{1, 0, 0}, 1),
	}}
	gen := &scriptedGenerator{replies: []string{"A summary of the matches."}}
	pipeline := NewRetrievalPipeline(store, &fakeEmbedder{vector: []float32{1, 0, 0}}, llm.NewSearchSummarizer(gen, nil))

	resp, err := pipeline.SearchMemory(context.Background(), "who is closest?", 0)
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, "Exact", resp.Results[0].Entity.Name)
	assert.Equal(t, "Close", resp.Results[1].Entity.Name)
	assert.Equal(t, "Orthogonal", resp.Results[2].Entity.Name)

	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-6)
	assert.InDelta(t, 0.0, resp.Results[2].Score, 1e-6)
	assert.Equal(t, "A summary of the matches.", resp.Answer)
}

func TestSearchMemoryTotalsCoverFullResultSet(t *testing.T) {
	var results []*types.SearchResult
	for i := 0; i < 10; i++ {
		results = append(results, searchResult(fmt.Sprintf("e%d", i), []float32{1, 0, 0}, 2))
	}
	store := &fakeStore{searchResults: results}
	gen := &scriptedGenerator{replies: []string{"summary"}}
	pipeline := NewRetrievalPipeline(store, &fakeEmbedder{vector: []float32{1, 0, 0}}, llm.NewSearchSummarizer(gen, nil))

	resp, err := pipeline.SearchMemory(context.Background(), "everything", 10)
	require.NoError(t, err)

	assert.Equal(t, 10, resp.TotalEntities)
	assert.Equal(t, 20, resp.TotalMemories)
	assert.Len(t, resp.Results, 10, "the full result set is returned even though the summary only sees the top entries")
}

func TestSearchMemorySummarizerFallback(t *testing.T) {
	store := &fakeStore{searchResults: []*types.SearchResult{
		searchResult("Alice", []float32{1, 0, 0}, 1),
	}}
	gen := &scriptedGenerator{err: errors.New("model unavailable")}
	pipeline := NewRetrievalPipeline(store, &fakeEmbedder{vector: []float32{1, 0, 0}}, llm.NewSearchSummarizer(gen, nil))

	resp, err := pipeline.SearchMemory(context.Background(), "Alice", 0)
	require.NoError(t, err, "a dead summarizer falls back to a listing")
	assert.Contains(t, resp.Answer, "Alice")
	assert.Contains(t, resp.Answer, "1 entities and 1 memories")
}

func TestSearchMemoryListingCapsAtFive(t *testing.T) {
	var results []*types.SearchResult
	for i := 0; i < 10; i++ {
		results = append(results, searchResult(fmt.Sprintf("entity%d", i), []float32{1, 0, 0}, 1))
	}
	store := &fakeStore{searchResults: results}
	gen := &scriptedGenerator{err: errors.New("model unavailable")}
	pipeline := NewRetrievalPipeline(store, &fakeEmbedder{vector: []float32{1, 0, 0}}, llm.NewSearchSummarizer(gen, nil))

	resp, err := pipeline.SearchMemory(context.Background(), "everything", 10)
	require.NoError(t, err)

	// The fallback listing shows the top five, one line each plus the
	// header, while the header states the true totals.
	assert.Contains(t, resp.Answer, "10 entities and 10 memories")
	lines := strings.Split(resp.Answer, "\n")
	assert.Len(t, lines, 6)
}

func TestSearchMemoryLimitClamping(t *testing.T) {
	var results []*types.SearchResult
	for i := 0; i < 60; i++ {
		results = append(results, searchResult(fmt.Sprintf("e%d", i), []float32{1, 0, 0}, 0))
	}
	store := &fakeStore{searchResults: results}
	gen := &scriptedGenerator{replies: []string{"summary", "summary"}}
	pipeline := NewRetrievalPipeline(store, &fakeEmbedder{vector: []float32{1, 0, 0}}, llm.NewSearchSummarizer(gen, nil))

	resp, err := pipeline.SearchMemory(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Len(t, resp.Results, graph.DefaultSearchLimit, "zero limit means the default")

	resp, err = pipeline.SearchMemory(context.Background(), "q", 500)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 50, "limits above the cap are clamped")
}
