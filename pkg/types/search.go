package types

// SearchResult pairs an entity returned by a vector similarity query with its
// linked memories and one hop of related entities. Score is the cosine
// similarity against the query vector, recomputed locally by the retrieval
// pipeline from the stored embedding. Derived, never persisted.
type SearchResult struct {
	Entity *Entity `json:"entity"`

	// Score is the cosine similarity in [-1, 1] against the query embedding.
	Score float64 `json:"score"`

	// Memories are the memories that mention this entity.
	Memories []*Memory `json:"memories,omitempty"`

	// RelatedEntities are entities one relationship hop away.
	RelatedEntities []*Entity `json:"related_entities,omitempty"`
}
