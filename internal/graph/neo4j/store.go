// Package neo4j implements the graph.Store contract on Neo4j, a
// labeled-property graph. Entities are unique on (name, type); relationship
// type and temporal validity live as properties on RELATED_TO edges, and
// vector similarity uses Neo4j's native vector index.
package neo4j

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/pkg/types"
)

// Config carries the connection settings for one Neo4j server.
type Config struct {
	URI      string
	Username string
	Password string

	// EmbeddingDim sizes the vector indexes. Must match the embedding
	// model in use.
	EmbeddingDim int
}

func (c *Config) applyDefaults() {
	if c.URI == "" {
		c.URI = "bolt://localhost:7687"
	}
	if c.Username == "" {
		c.Username = "neo4j"
	}
	if c.EmbeddingDim == 0 {
		c.EmbeddingDim = 1536
	}
}

// Store implements graph.Store on Neo4j over Bolt.
type Store struct {
	driver neo4j.DriverWithContext
	cfg    Config

	mu          sync.RWMutex
	initialized bool
}

var _ graph.Store = (*Store)(nil)

// NewStore creates a driver for the configured server. The connection is
// verified and the constraints applied in Initialize, not here.
func NewStore(cfg Config) (*Store, error) {
	cfg.applyDefaults()
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver for %s: %w", cfg.URI, err)
	}
	return &Store{driver: driver, cfg: cfg}, nil
}

// Initialize verifies connectivity and applies constraints and indexes.
// All statements are IF NOT EXISTS, so repeated calls are harmless.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return graph.WrapOp("Initialize", err)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT entity_name_type IF NOT EXISTS
		 FOR (e:Entity) REQUIRE (e.name, e.type) IS UNIQUE`,
		`CREATE CONSTRAINT memory_id IF NOT EXISTS
		 FOR (m:Memory) REQUIRE m.id IS UNIQUE`,
		fmt.Sprintf(`CREATE VECTOR INDEX entity_embedding IF NOT EXISTS
		 FOR (e:Entity) ON (e.embedding)
		 OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: 'cosine'}}`, s.cfg.EmbeddingDim),
		fmt.Sprintf(`CREATE VECTOR INDEX memory_embedding IF NOT EXISTS
		 FOR (m:Memory) ON (m.embedding)
		 OPTIONS {indexConfig: {`+"`vector.dimensions`"+`: %d, `+"`vector.similarity_function`"+`: 'cosine'}}`, s.cfg.EmbeddingDim),
		`CREATE FULLTEXT INDEX memory_content IF NOT EXISTS
		 FOR (m:Memory) ON EACH [m.content]`,
	}
	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return graph.WrapOp("Initialize", err)
		}
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	return nil
}

func (s *Store) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return graph.ErrNotInitialized
	}
	return nil
}

// SaveEntity creates an entity node and returns its id. MERGE on
// (name, type) keeps the uniqueness constraint satisfied when the same
// entity arrives twice concurrently; properties are only written on create.
func (s *Store) SaveEntity(ctx context.Context, entity *types.Entity) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if entity == nil || entity.Name == "" {
		return "", graph.ErrInvalidInput
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	params := map[string]any{
		"id":          uuid.New().String(),
		"name":        entity.Name,
		"type":        entity.Type,
		"description": entity.Description,
		"embedding":   toFloat64s(entity.Embedding),
		"createdAt":   entity.CreatedAt.UTC().Format(time.RFC3339),
	}
	query := `
		MERGE (e:Entity {name: $name, type: $type})
		ON CREATE SET
			e.id = $id,
			e.description = $description,
			e.embedding = $embedding,
			e.created_at = datetime($createdAt)
		RETURN e.id AS id
	`
	if entity.Coordinates != nil {
		params["lat"] = entity.Coordinates.Latitude
		params["long"] = entity.Coordinates.Longitude
		query = `
			MERGE (e:Entity {name: $name, type: $type})
			ON CREATE SET
				e.id = $id,
				e.description = $description,
				e.embedding = $embedding,
				e.location = point({latitude: $lat, longitude: $long}),
				e.created_at = datetime($createdAt)
			RETURN e.id AS id
		`
	}

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return "", graph.WrapOp("SaveEntity", err)
	}
	if result.Next(ctx) {
		if id, ok := result.Record().Get("id"); ok {
			if str, ok := id.(string); ok && str != "" {
				return str, nil
			}
		}
	}
	return "", &graph.PersistenceError{Op: "SaveEntity", Err: result.Err()}
}

// SaveMemory creates a memory node plus a MENTIONS edge per entity id.
func (s *Store) SaveMemory(ctx context.Context, memory *types.Memory, entityIDs []string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if memory == nil || memory.Content == "" {
		return "", graph.ErrInvalidInput
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	id := uuid.New().String()
	query := `
		CREATE (m:Memory {
			id: $id,
			content: $content,
			timestamp: datetime($timestamp),
			embedding: $embedding
		})
		WITH m
		UNWIND $entityIDs AS eid
		MATCH (e:Entity {id: eid})
		MERGE (m)-[:MENTIONS]->(e)
		RETURN DISTINCT m.id AS id
	`
	if len(entityIDs) == 0 {
		query = `
			CREATE (m:Memory {
				id: $id,
				content: $content,
				timestamp: datetime($timestamp),
				embedding: $embedding
			})
			RETURN m.id AS id
		`
	}

	result, err := session.Run(ctx, query, map[string]any{
		"id":        id,
		"content":   memory.Content,
		"timestamp": memory.Timestamp.UTC().Format(time.RFC3339),
		"embedding": toFloat64s(memory.Embedding),
		"entityIDs": entityIDs,
	})
	if err != nil {
		return "", graph.WrapOp("SaveMemory", err)
	}
	if result.Next(ctx) {
		return id, nil
	}
	return "", &graph.PersistenceError{Op: "SaveMemory", Err: result.Err()}
}

// FindEntitiesByName returns entities whose name exactly matches any of the
// given names.
func (s *Store) FindEntitiesByName(ctx context.Context, names []string) ([]*types.Entity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []*types.Entity{}, nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (e:Entity)
		WHERE e.name IN $names
		RETURN e.id AS id, e.name AS name, e.type AS type,
		       e.description AS description, e.embedding AS embedding,
		       e.created_at AS createdAt
	`
	result, err := session.Run(ctx, query, map[string]any{"names": names})
	if err != nil {
		return nil, graph.WrapOp("FindEntitiesByName", err)
	}

	var entities []*types.Entity
	for result.Next(ctx) {
		entities = append(entities, entityFromRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, graph.WrapOp("FindEntitiesByName", err)
	}
	if entities == nil {
		entities = []*types.Entity{}
	}
	return entities, nil
}

// VectorSearch queries the entity vector index and enriches each hit with
// its memories (via MENTIONS) and one hop of RELATED_TO neighbours.
func (s *Store) VectorSearch(ctx context.Context, embedding []float32, limit int) ([]*types.SearchResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(embedding) == 0 {
		return []*types.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = graph.DefaultSearchLimit
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		CALL db.index.vector.queryNodes('entity_embedding', $limit, $embedding)
		YIELD node AS e, score
		OPTIONAL MATCH (m:Memory)-[:MENTIONS]->(e)
		OPTIONAL MATCH (e)-[:RELATED_TO]-(r:Entity)
		RETURN e.id AS id, e.name AS name, e.type AS type,
		       e.description AS description, e.embedding AS embedding,
		       e.created_at AS createdAt, score,
		       collect(DISTINCT {id: m.id, content: m.content, timestamp: m.timestamp}) AS memories,
		       collect(DISTINCT {id: r.id, name: r.name, type: r.type}) AS related
		ORDER BY score DESC
	`
	result, err := session.Run(ctx, query, map[string]any{
		"limit":     limit,
		"embedding": toFloat64s(embedding),
	})
	if err != nil {
		return nil, graph.WrapOp("VectorSearch", err)
	}

	var results []*types.SearchResult
	for result.Next(ctx) {
		record := result.Record()
		sr := &types.SearchResult{Entity: entityFromRecord(record)}
		if score, ok := record.Get("score"); ok {
			if f, ok := score.(float64); ok {
				sr.Score = f
			}
		}
		sr.Memories = memoriesFromRecord(record)
		sr.RelatedEntities = relatedFromRecord(record)
		results = append(results, sr)
	}
	if err := result.Err(); err != nil {
		return nil, graph.WrapOp("VectorSearch", err)
	}
	if results == nil {
		results = []*types.SearchResult{}
	}
	return results, nil
}

// SaveEntityRelationships creates one RELATED_TO edge per relationship whose
// endpoints both resolve in nameToID. Unresolved endpoints are skipped with
// a warning.
func (s *Store) SaveEntityRelationships(ctx context.Context, rels []types.EntityRelationship, nameToID map[string]string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(rels) == 0 {
		return nil
	}

	var edges []map[string]any
	for _, rel := range rels {
		fromID, fromOK := nameToID[rel.FromEntity]
		toID, toOK := nameToID[rel.ToEntity]
		if !fromOK || !toOK {
			log.Printf("neo4j: skipping relationship %s -[%s]-> %s: unresolved endpoint", rel.FromEntity, rel.Type, rel.ToEntity)
			continue
		}
		edge := map[string]any{
			"fromID": fromID,
			"toID":   toID,
			"type":   rel.Type,
		}
		if rel.ValidAt != nil {
			edge["validAt"] = rel.ValidAt.UTC().Format(time.RFC3339)
		}
		if rel.InvalidAt != nil {
			edge["invalidAt"] = rel.InvalidAt.UTC().Format(time.RFC3339)
		}
		edges = append(edges, edge)
	}
	if len(edges) == 0 {
		return nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		UNWIND $edges AS edge
		MATCH (from:Entity {id: edge.fromID})
		MATCH (to:Entity {id: edge.toID})
		MERGE (from)-[r:RELATED_TO {type: edge.type}]->(to)
		SET r.validAt = CASE WHEN edge.validAt IS NULL THEN r.validAt ELSE datetime(edge.validAt) END,
		    r.invalidAt = CASE WHEN edge.invalidAt IS NULL THEN r.invalidAt ELSE datetime(edge.invalidAt) END
	`
	if _, err := session.Run(ctx, query, map[string]any{"edges": edges}); err != nil {
		return graph.WrapOp("SaveEntityRelationships", err)
	}
	return nil
}

// Close shuts down the driver and its connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func entityFromRecord(record *neo4j.Record) *types.Entity {
	ent := &types.Entity{
		ID:          getString(record, "id"),
		Name:        getString(record, "name"),
		Type:        getString(record, "type"),
		Description: getString(record, "description"),
	}
	if raw, ok := record.Get("embedding"); ok {
		ent.Embedding = toFloat32s(raw)
	}
	if raw, ok := record.Get("createdAt"); ok {
		ent.CreatedAt = toTime(raw)
	}
	return ent
}

func memoriesFromRecord(record *neo4j.Record) []*types.Memory {
	raw, ok := record.Get("memories")
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var memories []*types.Memory
	for _, item := range list {
		props, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := props["id"].(string)
		if id == "" {
			// OPTIONAL MATCH with no memories collects one null row.
			continue
		}
		content, _ := props["content"].(string)
		memories = append(memories, &types.Memory{
			ID:        id,
			Content:   content,
			Timestamp: toTime(props["timestamp"]),
		})
	}
	return memories
}

func relatedFromRecord(record *neo4j.Record) []*types.Entity {
	raw, ok := record.Get("related")
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var related []*types.Entity
	for _, item := range list {
		props, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := props["id"].(string)
		if id == "" {
			continue
		}
		name, _ := props["name"].(string)
		typ, _ := props["type"].(string)
		related = append(related, &types.Entity{ID: id, Name: name, Type: typ})
	}
	return related
}

func getString(record *neo4j.Record, key string) string {
	if raw, ok := record.Get(key); ok {
		if str, ok := raw.(string); ok {
			return str
		}
	}
	return ""
}

// toFloat64s converts an embedding for the Bolt wire format, which has no
// float32 list type.
func toFloat64s(v []float32) []float64 {
	if len(v) == 0 {
		return []float64{}
	}
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func toFloat32s(raw any) []float32 {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(list))
	for _, item := range list {
		if f, ok := item.(float64); ok {
			out = append(out, float32(f))
		}
	}
	return out
}

// toTime handles the driver's temporal types as well as RFC3339 strings.
func toTime(raw any) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
			return t
		}
	}
	return time.Time{}
}
