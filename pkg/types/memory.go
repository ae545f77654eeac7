package types

import "time"

// Memory is an immutable record of one source message. A memory mentions zero
// or more entities via non-directional MENTIONS edges, one edge per distinct
// entity per memory. Memories are created exactly once at ingestion time and
// never mutated or deleted.
type Memory struct {
	// ID is the store-assigned identity.
	ID string `json:"id"`

	// Content is the raw message text.
	Content string `json:"content"`

	// Timestamp is the ingestion instant, also used as the reference time for
	// temporal resolution of relationships extracted from this message.
	Timestamp time.Time `json:"timestamp"`

	// Embedding is the vector over Content.
	Embedding []float32 `json:"embedding,omitempty"`
}
