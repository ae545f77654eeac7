package llm

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/scrypster/graphmem/pkg/types"
)

// ExtractedEntity is a candidate entity as returned by the model, before
// deduplication against the store.
type ExtractedEntity struct {
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Coordinates *types.Coordinates `json:"coordinates,omitempty"`
}

type entityExtractionResponse struct {
	Entities []ExtractedEntity `json:"entities"`
}

// extractedRelationship is the wire shape of one relationship in the model
// reply. Names are echoed from the entity list, not re-resolved.
type extractedRelationship struct {
	FromEntity string `json:"fromEntity"`
	ToEntity   string `json:"toEntity"`
	Type       string `json:"type"`
}

type relationshipExtractionResponse struct {
	Relationships []extractedRelationship `json:"relationships"`
}

type temporalResolutionResponse struct {
	ValidAt   *string `json:"validAt"`
	InvalidAt *string `json:"invalidAt"`
}

// waitLimiter blocks until the shared model-call limiter admits one call.
// A nil limiter admits immediately.
func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// EntityExtractor prompts the model for typed entities in a text span.
//
// Extraction failures are recoverable: a transport error, an unparseable
// reply, or a missing "entities" key all yield an empty slice and a nil
// error so ingestion degrades instead of aborting.
type EntityExtractor struct {
	gen     TextGenerator
	limiter *rate.Limiter
}

// NewEntityExtractor creates an entity extractor. The limiter caps model-call
// pressure and is shared with the other extractors; nil means unthrottled.
func NewEntityExtractor(gen TextGenerator, limiter *rate.Limiter) *EntityExtractor {
	return &EntityExtractor{gen: gen, limiter: limiter}
}

// Extract returns the candidate entities mentioned in content. Entities
// missing a name or type are dropped silently. There is no entity-count
// limit and no validation beyond name and type being present strings.
func (e *EntityExtractor) Extract(ctx context.Context, content string) ([]ExtractedEntity, error) {
	if err := waitLimiter(ctx, e.limiter); err != nil {
		return nil, err
	}

	reply, err := e.gen.Complete(ctx, entityExtractionPrompt(content))
	if err != nil {
		log.Printf("extract: entity extraction call failed: %v", err)
		return nil, nil
	}

	var resp entityExtractionResponse
	if !ParseObject(reply, &resp) {
		log.Printf("extract: unparseable entity extraction reply (%d bytes)", len(reply))
		return nil, nil
	}

	entities := make([]ExtractedEntity, 0, len(resp.Entities))
	for _, ent := range resp.Entities {
		if strings.TrimSpace(ent.Name) == "" || strings.TrimSpace(ent.Type) == "" {
			continue
		}
		entities = append(entities, ent)
	}
	return entities, nil
}

// RelationshipExtractor prompts the model for directed typed relationships
// between an already-resolved entity set.
type RelationshipExtractor struct {
	gen     TextGenerator
	limiter *rate.Limiter
}

// NewRelationshipExtractor creates a relationship extractor.
func NewRelationshipExtractor(gen TextGenerator, limiter *rate.Limiter) *RelationshipExtractor {
	return &RelationshipExtractor{gen: gen, limiter: limiter}
}

// Extract returns relationships between the given entities evidenced by
// content. Fewer than two entities yields an empty result with no model
// call. Parse failures degrade to an empty result.
func (e *RelationshipExtractor) Extract(ctx context.Context, content string, entities []ExtractedEntity) ([]types.EntityRelationship, error) {
	if len(entities) < 2 {
		return nil, nil
	}
	if err := waitLimiter(ctx, e.limiter); err != nil {
		return nil, err
	}

	reply, err := e.gen.Complete(ctx, relationshipExtractionPrompt(content, entities))
	if err != nil {
		log.Printf("extract: relationship extraction call failed: %v", err)
		return nil, nil
	}

	var resp relationshipExtractionResponse
	if !ParseObject(reply, &resp) {
		log.Printf("extract: unparseable relationship extraction reply (%d bytes)", len(reply))
		return nil, nil
	}

	rels := make([]types.EntityRelationship, 0, len(resp.Relationships))
	for _, rel := range resp.Relationships {
		if rel.FromEntity == "" || rel.ToEntity == "" || rel.Type == "" {
			continue
		}
		rels = append(rels, types.EntityRelationship{
			FromEntity: rel.FromEntity,
			ToEntity:   rel.ToEntity,
			Type:       rel.Type,
		})
	}
	return rels, nil
}

// TemporalResolver determines the validity interval of one relationship from
// the source text and a reference instant. Each relationship is resolved with
// its own model call; resolutions for distinct relationships are independent
// and may run concurrently.
type TemporalResolver struct {
	gen     TextGenerator
	limiter *rate.Limiter
}

// NewTemporalResolver creates a temporal resolver.
func NewTemporalResolver(gen TextGenerator, limiter *rate.Limiter) *TemporalResolver {
	return &TemporalResolver{gen: gen, limiter: limiter}
}

// Resolve returns rel with ValidAt/InvalidAt filled in where the model could
// determine them. A failed call or unparseable reply keeps the relationship
// with both temporal fields absent; a partial failure here never drops the
// relationship or aborts the batch.
func (e *TemporalResolver) Resolve(ctx context.Context, rel types.EntityRelationship, content string, ref time.Time) types.EntityRelationship {
	if err := waitLimiter(ctx, e.limiter); err != nil {
		return rel
	}

	reply, err := e.gen.Complete(ctx, temporalResolutionPrompt(rel, content, ref))
	if err != nil {
		log.Printf("extract: temporal resolution call failed for %s %s %s: %v", rel.FromEntity, rel.Type, rel.ToEntity, err)
		return rel
	}

	var resp temporalResolutionResponse
	if !ParseObject(reply, &resp) {
		log.Printf("extract: unparseable temporal resolution reply (%d bytes)", len(reply))
		return rel
	}

	if resp.ValidAt != nil {
		if t, ok := parseFlexibleTime(*resp.ValidAt); ok {
			rel.ValidAt = &t
		}
	}
	if resp.InvalidAt != nil {
		if t, ok := parseFlexibleTime(*resp.InvalidAt); ok {
			rel.InvalidAt = &t
		}
	}
	return rel
}

// flexibleTimeLayouts are tried in order. Layouts without a zone are
// interpreted as UTC; a bare date means midnight and a bare year means
// January 1 midnight, mirroring the tie-break rules given to the model.
var flexibleTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// parseFlexibleTime parses the model's ISO-8601-ish timestamps, normalized to
// UTC. Returns false for null-ish or unparseable values.
func parseFlexibleTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "unknown") {
		return time.Time{}, false
	}
	for _, layout := range flexibleTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
