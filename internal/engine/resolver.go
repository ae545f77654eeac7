package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/internal/llm"
	"github.com/scrypster/graphmem/pkg/types"
)

// ResolvedEntities is the outcome of matching extracted entities against the
// graph. NameToID covers every resolved entity, new and existing alike.
type ResolvedEntities struct {
	// Entities holds every resolved entity in first-mention order.
	Entities []*types.Entity

	// NewCount is how many of Entities were created this call.
	NewCount int

	// NameToID maps entity name to graph identity.
	NameToID map[string]string
}

// EntityResolver matches extracted entities against the graph, creating the
// ones that do not exist yet. Entities are create-once: an extraction that
// matches an existing name reuses the stored node untouched, so earlier
// descriptions and coordinates are never overwritten.
type EntityResolver struct {
	store    graph.Store
	embedder llm.EmbeddingGenerator
}

// NewEntityResolver creates a resolver over the given store and embedder.
func NewEntityResolver(store graph.Store, embedder llm.EmbeddingGenerator) *EntityResolver {
	return &EntityResolver{store: store, embedder: embedder}
}

// Resolve deduplicates the extracted entities by name (first occurrence
// wins), looks up the whole batch in one store call, and creates whatever is
// missing. New entities are embedded before persistence so they are
// reachable by vector search immediately; a failed embedding aborts the
// resolution before anything is saved.
func (r *EntityResolver) Resolve(ctx context.Context, extracted []llm.ExtractedEntity) (*ResolvedEntities, error) {
	result := &ResolvedEntities{NameToID: map[string]string{}}
	if len(extracted) == 0 {
		return result, nil
	}

	seen := map[string]bool{}
	var deduped []llm.ExtractedEntity
	for _, e := range extracted {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		deduped = append(deduped, e)
	}

	names := make([]string, len(deduped))
	for i, e := range deduped {
		names[i] = e.Name
	}
	existing, err := r.store.FindEntitiesByName(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("engine: entity lookup failed: %w", err)
	}
	byName := map[string]*types.Entity{}
	for _, ent := range existing {
		// Keep the first match when a name exists under several types.
		if _, ok := byName[ent.Name]; !ok {
			byName[ent.Name] = ent
		}
	}

	for _, e := range deduped {
		if ent, ok := byName[e.Name]; ok {
			result.Entities = append(result.Entities, ent)
			result.NameToID[ent.Name] = ent.ID
			continue
		}

		ent := &types.Entity{
			Name:        e.Name,
			Type:        e.Type,
			Description: e.Description,
			Coordinates: e.Coordinates,
			CreatedAt:   time.Now().UTC(),
		}
		embedding, err := r.embedder.Embed(ctx, e.Name)
		if err != nil {
			return nil, fmt.Errorf("engine: failed to embed entity %q: %w", e.Name, err)
		}
		ent.Embedding = embedding

		id, err := r.store.SaveEntity(ctx, ent)
		if err != nil {
			return nil, fmt.Errorf("engine: failed to save entity %q: %w", e.Name, err)
		}
		ent.ID = id
		result.Entities = append(result.Entities, ent)
		result.NameToID[ent.Name] = id
		result.NewCount++
	}
	return result, nil
}
