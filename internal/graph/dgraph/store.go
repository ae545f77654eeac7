// Package dgraph implements the graph.Store contract on Dgraph, a triple/fact
// store. Relationship type and temporal validity are edge facets; vector
// similarity uses Dgraph's native HNSW index over float32vector predicates.
package dgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/dgo/v240"
	"github.com/dgraph-io/dgo/v240/protos/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/pkg/types"
)

// Store implements graph.Store on Dgraph over gRPC.
type Store struct {
	conn   *grpc.ClientConn
	client *dgo.Dgraph

	mu          sync.RWMutex
	initialized bool
}

var _ graph.Store = (*Store)(nil)

// NewStore connects to a Dgraph alpha at target (host:port). The connection
// is established eagerly; the schema is not touched until Initialize.
func NewStore(target string) (*Store, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dgraph: failed to connect to %s: %w", target, err)
	}
	return &Store{
		conn:   conn,
		client: dgo.NewDgraphClient(api.NewDgraphClient(conn)),
	}, nil
}

// Initialize applies the schema. Safe to call repeatedly; "already exists"
// responses from the cluster are swallowed.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.client.Alter(ctx, &api.Operation{Schema: Schema}); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			log.Printf("dgraph: schema already present, continuing")
		} else {
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

// geoPoint is Dgraph's GeoJSON representation: coordinates are [long, lat].
type geoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// dgraphEntity is the mutation payload for one Entity node.
type dgraphEntity struct {
	UID         string    `json:"uid,omitempty"`
	DType       []string  `json:"dgraph.type,omitempty"`
	Name        string    `json:"name,omitempty"`
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	Coordinates *geoPoint `json:"coordinates,omitempty"`
	Embedding   string    `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// SaveEntity creates one entity node and returns its server-assigned uid.
func (s *Store) SaveEntity(ctx context.Context, entity *types.Entity) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if entity == nil || entity.Name == "" {
		return "", graph.ErrInvalidInput
	}

	node := dgraphEntity{
		UID:         "_:entity",
		DType:       []string{"Entity"},
		Name:        entity.Name,
		Type:        entity.Type,
		Description: entity.Description,
		CreatedAt:   entity.CreatedAt,
	}
	if entity.Coordinates != nil {
		node.Coordinates = &geoPoint{
			Type:        "Point",
			Coordinates: [2]float64{entity.Coordinates.Longitude, entity.Coordinates.Latitude},
		}
	}
	if len(entity.Embedding) > 0 {
		node.Embedding = vectorLiteral(entity.Embedding)
	}

	payload, err := json.Marshal(node)
	if err != nil {
		return "", graph.WrapOp("SaveEntity", err)
	}

	resp, err := s.client.NewTxn().Mutate(ctx, &api.Mutation{SetJson: payload, CommitNow: true})
	if err != nil {
		return "", graph.WrapOp("SaveEntity", err)
	}
	uid, ok := resp.Uids["entity"]
	if !ok || uid == "" {
		return "", &graph.PersistenceError{Op: "SaveEntity"}
	}
	return uid, nil
}

// dgraphMemory is the mutation payload for one Memory node plus its mentions.
type dgraphMemory struct {
	UID       string    `json:"uid,omitempty"`
	DType     []string  `json:"dgraph.type,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Embedding string    `json:"embedding,omitempty"`
	Mentions  []uidRef  `json:"mentions,omitempty"`
}

type uidRef struct {
	UID string `json:"uid"`
}

// SaveMemory creates one memory node and a mentions edge per entity identity.
func (s *Store) SaveMemory(ctx context.Context, memory *types.Memory, entityIDs []string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	if memory == nil || memory.Content == "" {
		return "", graph.ErrInvalidInput
	}

	node := dgraphMemory{
		UID:       "_:memory",
		DType:     []string{"Memory"},
		Content:   memory.Content,
		Timestamp: memory.Timestamp,
	}
	if len(memory.Embedding) > 0 {
		node.Embedding = vectorLiteral(memory.Embedding)
	}
	for _, id := range entityIDs {
		node.Mentions = append(node.Mentions, uidRef{UID: id})
	}

	payload, err := json.Marshal(node)
	if err != nil {
		return "", graph.WrapOp("SaveMemory", err)
	}

	resp, err := s.client.NewTxn().Mutate(ctx, &api.Mutation{SetJson: payload, CommitNow: true})
	if err != nil {
		return "", graph.WrapOp("SaveMemory", err)
	}
	uid, ok := resp.Uids["memory"]
	if !ok || uid == "" {
		return "", &graph.PersistenceError{Op: "SaveMemory"}
	}
	return uid, nil
}

// queryEntity is the query-result shape for an entity with one hop of
// context. Memories arrive via the reverse mentions edge.
type queryEntity struct {
	UID         string        `json:"uid"`
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Description string        `json:"description"`
	Coordinates *geoPoint     `json:"coordinates"`
	Embedding   vectorValue   `json:"embedding"`
	CreatedAt   time.Time     `json:"created_at"`
	Memories    []queryMemory `json:"~mentions"`
	Related     []queryEntity `json:"relatedTo"`
}

type queryMemory struct {
	UID       string      `json:"uid"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Embedding vectorValue `json:"embedding"`
}

// FindEntitiesByName returns entities whose name exactly matches any of the
// given names. Names are injected as a JSON array literal, which doubles as
// DQL-safe escaping.
func (s *Store) FindEntitiesByName(ctx context.Context, names []string) ([]*types.Entity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []*types.Entity{}, nil
	}

	nameList, err := json.Marshal(names)
	if err != nil {
		return nil, graph.WrapOp("FindEntitiesByName", err)
	}

	q := fmt.Sprintf(`{
		entities(func: eq(name, %s)) @filter(type(Entity)) {
			uid
			name
			type
			description
			created_at
			embedding
		}
	}`, nameList)

	resp, err := s.client.NewReadOnlyTxn().Query(ctx, q)
	if err != nil {
		return nil, graph.WrapOp("FindEntitiesByName", err)
	}

	var result struct {
		Entities []queryEntity `json:"entities"`
	}
	if err := json.Unmarshal(resp.Json, &result); err != nil {
		return nil, graph.WrapOp("FindEntitiesByName", err)
	}

	entities := make([]*types.Entity, 0, len(result.Entities))
	for i := range result.Entities {
		entities = append(entities, toEntity(&result.Entities[i]))
	}
	return entities, nil
}

// VectorSearch returns entities ordered by descending cosine similarity to
// the embedding, enriched with their memories and one hop of related
// entities. Dgraph's similar_to already orders by distance.
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

	q := fmt.Sprintf(`query vs($vec: string) {
		entities(func: similar_to(embedding, %d, $vec)) @filter(type(Entity)) {
			uid
			name
			type
			description
			created_at
			embedding
			~mentions {
				uid
				content
				timestamp
			}
			relatedTo {
				uid
				name
				type
				description
				created_at
			}
		}
	}`, limit)

	resp, err := s.client.NewReadOnlyTxn().QueryWithVars(ctx, q, map[string]string{"$vec": vectorLiteral(embedding)})
	if err != nil {
		return nil, graph.WrapOp("VectorSearch", err)
	}

	var result struct {
		Entities []queryEntity `json:"entities"`
	}
	if err := json.Unmarshal(resp.Json, &result); err != nil {
		return nil, graph.WrapOp("VectorSearch", err)
	}

	results := make([]*types.SearchResult, 0, len(result.Entities))
	for i := range result.Entities {
		qe := &result.Entities[i]
		sr := &types.SearchResult{Entity: toEntity(qe)}
		for j := range qe.Memories {
			m := &qe.Memories[j]
			sr.Memories = append(sr.Memories, &types.Memory{
				ID:        m.UID,
				Content:   m.Content,
				Timestamp: m.Timestamp,
				Embedding: m.Embedding,
			})
		}
		for j := range qe.Related {
			sr.RelatedEntities = append(sr.RelatedEntities, toEntity(&qe.Related[j]))
		}
		results = append(results, sr)
	}
	return results, nil
}

// relatedToEdge is the mutation payload for one facetted relatedTo edge.
type relatedToEdge struct {
	UID       string `json:"uid"`
	RelatedTo []struct {
		UID       string `json:"uid"`
		Type      string `json:"relatedTo|type,omitempty"`
		ValidAt   string `json:"relatedTo|validAt,omitempty"`
		InvalidAt string `json:"relatedTo|invalidAt,omitempty"`
	} `json:"relatedTo"`
}

// SaveEntityRelationships creates one facetted relatedTo edge per
// relationship whose endpoints both resolve in nameToID. Unresolved
// endpoints are skipped with a warning.
func (s *Store) SaveEntityRelationships(ctx context.Context, rels []types.EntityRelationship, nameToID map[string]string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(rels) == 0 {
		return nil
	}

	var edges []relatedToEdge
	for _, rel := range rels {
		fromID, fromOK := nameToID[rel.FromEntity]
		toID, toOK := nameToID[rel.ToEntity]
		if !fromOK || !toOK {
			log.Printf("dgraph: skipping relationship %s -[%s]-> %s: unresolved endpoint", rel.FromEntity, rel.Type, rel.ToEntity)
			continue
		}

		var edge relatedToEdge
		edge.UID = fromID
		target := struct {
			UID       string `json:"uid"`
			Type      string `json:"relatedTo|type,omitempty"`
			ValidAt   string `json:"relatedTo|validAt,omitempty"`
			InvalidAt string `json:"relatedTo|invalidAt,omitempty"`
		}{UID: toID, Type: rel.Type}
		if rel.ValidAt != nil {
			target.ValidAt = rel.ValidAt.UTC().Format(time.RFC3339)
		}
		if rel.InvalidAt != nil {
			target.InvalidAt = rel.InvalidAt.UTC().Format(time.RFC3339)
		}
		edge.RelatedTo = append(edge.RelatedTo, target)
		edges = append(edges, edge)
	}
	if len(edges) == 0 {
		return nil
	}

	payload, err := json.Marshal(edges)
	if err != nil {
		return graph.WrapOp("SaveEntityRelationships", err)
	}
	if _, err := s.client.NewTxn().Mutate(ctx, &api.Mutation{SetJson: payload, CommitNow: true}); err != nil {
		return graph.WrapOp("SaveEntityRelationships", err)
	}
	return nil
}

// Close releases the gRPC connection. Safe on a store that was never
// initialized.
func (s *Store) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// toEntity maps a query result node to the shared Entity shape.
func toEntity(qe *queryEntity) *types.Entity {
	ent := &types.Entity{
		ID:          qe.UID,
		Name:        qe.Name,
		Type:        qe.Type,
		Description: qe.Description,
		Embedding:   qe.Embedding,
		CreatedAt:   qe.CreatedAt,
	}
	if qe.Coordinates != nil {
		ent.Coordinates = &types.Coordinates{
			Latitude:  qe.Coordinates.Coordinates[1],
			Longitude: qe.Coordinates.Coordinates[0],
		}
	}
	return ent
}

// vectorLiteral renders an embedding as the string literal Dgraph expects
// for float32vector values.
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// vectorValue decodes a float32vector from query results, which Dgraph may
// return either as a JSON array or as a bracketed string literal.
type vectorValue []float32

func (v *vectorValue) UnmarshalJSON(data []byte) error {
	var floats []float32
	if err := json.Unmarshal(data, &floats); err == nil {
		*v = floats
		return nil
	}
	var literal string
	if err := json.Unmarshal(data, &literal); err != nil {
		return err
	}
	literal = strings.Trim(strings.TrimSpace(literal), "[]")
	if literal == "" {
		*v = nil
		return nil
	}
	parts := strings.Split(literal, ",")
	floats = make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("dgraph: bad vector element %q: %w", p, err)
		}
		floats = append(floats, float32(f))
	}
	*v = floats
	return nil
}
