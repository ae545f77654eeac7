// Package graph defines the persistence contract satisfied by every graph
// database backend. The contract unifies call and result shapes only; each
// adapter keeps its native query language (DQL, Cypher, SQL).
package graph

import (
	"context"

	"github.com/scrypster/graphmem/pkg/types"
)

// DefaultSearchLimit is the vector search result limit applied when the
// caller passes a non-positive limit.
const DefaultSearchLimit = 10

// Store is the backend-agnostic persistence and query contract.
//
// Any operation other than Initialize and Close on an uninitialized store
// fails fast with ErrNotInitialized. A caller-supplied context deadline that
// expires mid-call is surfaced as ErrTimeout, distinct from a generic
// persistence failure, so callers can decide whether to retry.
type Store interface {
	// Initialize idempotently establishes the backend schema: entity and
	// memory node types, name/type indexes, vector indexes over entity and
	// memory embeddings, and a full-text index over memory content. Safe to
	// call on an already-initialized store; pre-existing schema or constraint
	// errors are swallowed, not surfaced.
	Initialize(ctx context.Context) error

	// SaveEntity creates one entity node and returns its store identity.
	// Returns a PersistenceError when the backend yields no identity or
	// rejects the write (including unique-constraint violations).
	SaveEntity(ctx context.Context, entity *types.Entity) (string, error)

	// SaveMemory creates one memory node plus a non-directional mentions edge
	// to each given entity identity, and returns the memory identity.
	SaveMemory(ctx context.Context, memory *types.Memory, entityIDs []string) (string, error)

	// FindEntitiesByName returns entities whose name exactly matches any of
	// the given names. An empty input or no matches yields an empty slice,
	// never an error.
	FindEntitiesByName(ctx context.Context, names []string) ([]*types.Entity, error)

	// VectorSearch returns entities ordered by descending similarity to the
	// given embedding, each enriched with its linked memories and one hop of
	// related entities. A non-positive limit defaults to DefaultSearchLimit.
	VectorSearch(ctx context.Context, embedding []float32, limit int) ([]*types.SearchResult, error)

	// SaveEntityRelationships creates one directed edge per relationship whose
	// both endpoints resolve in nameToID. Relationships with an unresolved
	// endpoint are skipped with a warning, not an error. An empty relationship
	// list is a no-op.
	SaveEntityRelationships(ctx context.Context, rels []types.EntityRelationship, nameToID map[string]string) error

	// Close releases the underlying connection. Safe to call on a store that
	// was never initialized.
	Close(ctx context.Context) error
}
