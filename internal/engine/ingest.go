// Package engine wires the extraction, resolution, and storage layers into
// the two top-level operations: ingesting a message into the graph and
// retrieving memories for a query.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/internal/llm"
	"github.com/scrypster/graphmem/pkg/types"
)

// IngestResult summarizes one ingested message.
type IngestResult struct {
	// MemoryID is the stored memory's identity, empty when nothing was
	// persisted.
	MemoryID string

	// EntityCount is the number of distinct entities the message mentions.
	EntityCount int

	// NewEntityCount is how many of those were created by this message.
	NewEntityCount int

	// RelationshipCount is the number of relationships persisted.
	RelationshipCount int
}

// IngestionPipeline turns a raw message into graph structure: extracted
// entities, a memory node linked to them, and temporal relationship edges.
type IngestionPipeline struct {
	store         graph.Store
	embedder      llm.EmbeddingGenerator
	entities      *llm.EntityExtractor
	relationships *llm.RelationshipExtractor
	temporal      *llm.TemporalResolver
	resolver      *EntityResolver
}

// NewIngestionPipeline assembles the pipeline from its collaborators.
func NewIngestionPipeline(
	store graph.Store,
	embedder llm.EmbeddingGenerator,
	entities *llm.EntityExtractor,
	relationships *llm.RelationshipExtractor,
	temporal *llm.TemporalResolver,
) *IngestionPipeline {
	return &IngestionPipeline{
		store:         store,
		embedder:      embedder,
		entities:      entities,
		relationships: relationships,
		temporal:      temporal,
		resolver:      NewEntityResolver(store, embedder),
	}
}

// SaveMessage runs the full ingestion sequence for one message. Extraction
// and temporal failures degrade to partial results; embedding and memory
// persistence failures abort. A message with no recognizable entities is
// not persisted at all.
func (p *IngestionPipeline) SaveMessage(ctx context.Context, content string, timestamp time.Time) (*IngestResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("engine: empty message: %w", graph.ErrInvalidInput)
	}
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	extracted, err := p.entities.Extract(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("engine: entity extraction failed: %w", err)
	}
	if len(extracted) == 0 {
		log.Printf("engine: no entities in message, nothing to save")
		return &IngestResult{}, nil
	}

	resolved, err := p.resolver.Resolve(ctx, extracted)
	if err != nil {
		return nil, err
	}

	embedding, err := p.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("engine: message embedding failed: %w", err)
	}

	memory := &types.Memory{
		Content:   content,
		Timestamp: timestamp.UTC(),
		Embedding: embedding,
	}
	entityIDs := make([]string, 0, len(resolved.Entities))
	for _, ent := range resolved.Entities {
		entityIDs = append(entityIDs, ent.ID)
	}
	memoryID, err := p.store.SaveMemory(ctx, memory, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to save memory: %w", err)
	}

	result := &IngestResult{
		MemoryID:       memoryID,
		EntityCount:    len(resolved.Entities),
		NewEntityCount: resolved.NewCount,
	}
	result.RelationshipCount = p.saveRelationships(ctx, content, timestamp, resolved)
	return result, nil
}

// saveRelationships runs the relationship leg of ingestion. The memory is
// already persisted at this point, so every failure here is logged and
// absorbed rather than propagated.
func (p *IngestionPipeline) saveRelationships(ctx context.Context, content string, timestamp time.Time, resolved *ResolvedEntities) int {
	participants := make([]llm.ExtractedEntity, 0, len(resolved.Entities))
	for _, ent := range resolved.Entities {
		participants = append(participants, llm.ExtractedEntity{Name: ent.Name, Type: ent.Type})
	}

	rels, err := p.relationships.Extract(ctx, content, participants)
	if err != nil {
		log.Printf("engine: relationship extraction failed: %v", err)
		return 0
	}
	if len(rels) == 0 {
		return 0
	}

	for i := range rels {
		rels[i] = p.temporal.Resolve(ctx, rels[i], content, timestamp)
	}

	// Drop relationships whose endpoints did not resolve to known entities
	// before counting; the store skips them anyway.
	kept := rels[:0]
	for _, rel := range rels {
		if _, ok := resolved.NameToID[rel.FromEntity]; !ok {
			continue
		}
		if _, ok := resolved.NameToID[rel.ToEntity]; !ok {
			continue
		}
		kept = append(kept, rel)
	}
	if len(kept) == 0 {
		return 0
	}

	if err := p.store.SaveEntityRelationships(ctx, kept, resolved.NameToID); err != nil {
		log.Printf("engine: failed to save relationships: %v", err)
		return 0
	}
	return len(kept)
}
