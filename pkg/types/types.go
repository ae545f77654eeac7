// Package types defines the core data structures for the GraphMem knowledge
// graph: entities, memories, the relationships between entities, and the
// derived search result shape returned by vector similarity queries.
package types

// Canonical entity type tags. The tag set is open: extraction may produce
// types outside this list and the stores persist them as-is. These constants
// document the vocabulary the extraction prompts steer the model toward.
const (
	EntityTypePerson       = "PERSON"
	EntityTypePlace        = "PLACE"
	EntityTypeOrganization = "ORGANIZATION"
	EntityTypeConcept      = "CONCEPT"
	EntityTypeEvent        = "EVENT"
)

// IsLocationType reports whether the given entity type tag denotes a
// location-like entity. Only location-like entities carry coordinates.
func IsLocationType(entityType string) bool {
	return entityType == EntityTypePlace
}
