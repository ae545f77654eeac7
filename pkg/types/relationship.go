package types

import "time"

// EntityRelationship is a directed, typed edge between two entities.
//
// FromEntity and ToEntity hold entity names at extraction time; they are
// resolved to store identities at persistence time. A relationship whose
// endpoints cannot both be resolved in the same ingestion is dropped, not
// retried. Once stored, a relationship is never revised; ValidAt/InvalidAt
// are set only at creation time from the same extraction, never retroactively.
type EntityRelationship struct {
	// FromEntity is the source entity name as extracted.
	FromEntity string `json:"from_entity"`

	// ToEntity is the target entity name as extracted.
	ToEntity string `json:"to_entity"`

	// Type is a free-text relation label (e.g. WORKS_AT, LOCATED_IN).
	Type string `json:"type"`

	// ValidAt is the instant the fact became true, when known.
	ValidAt *time.Time `json:"valid_at,omitempty"`

	// InvalidAt is the instant the fact stopped being true, when known.
	InvalidAt *time.Time `json:"invalid_at,omitempty"`
}
