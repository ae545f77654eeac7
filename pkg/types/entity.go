package types

import "time"

// Coordinates is a latitude/longitude pair attached to location-like entities.
// Values come from the extraction model's own geocoding knowledge.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Entity is an identity-bearing node in the knowledge graph.
//
// The pair (Name, Type) is the practical identity key used for reuse decisions
// within one ingestion; across ingestions identity is resolved by exact-name
// lookup against the store. Entities are created once and never renamed or
// retyped; the only mutation after creation is the addition of relationships.
type Entity struct {
	// ID is the store-assigned identity. Opaque and stable; Dgraph returns
	// server uids, the Neo4j and Postgres adapters mint UUIDs.
	ID string `json:"id"`

	// Name is the display name and the primary deduplication key.
	Name string `json:"name"`

	// Type is an open string tag (e.g. PERSON, PLACE, ORGANIZATION).
	Type string `json:"type"`

	// Description is optional human-readable context from extraction.
	Description string `json:"description,omitempty"`

	// Embedding is the vector over the entity name, used for similarity search.
	Embedding []float32 `json:"embedding,omitempty"`

	// Coordinates is set only for location-like entities.
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// CreatedAt is set once at creation and immutable thereafter.
	CreatedAt time.Time `json:"created_at"`
}
