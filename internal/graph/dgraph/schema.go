package dgraph

// Schema is the DQL schema applied by Initialize. Alter is idempotent on an
// identical schema, so re-running Initialize against a live cluster is safe.
//
// Entity-to-entity edges ride the relatedTo predicate with the relationship
// type and validity interval stored as facets; memory-to-entity mentions are
// a separate reversed edge so entity lookups can pull their memories via
// ~mentions. The companion analytics service reads the same relatedTo facets.
const Schema = `
name: string @index(exact, term) .
type: string @index(exact) .
description: string .
coordinates: geo .
created_at: datetime .
embedding: float32vector @index(hnsw(metric: "cosine")) .
content: string @index(fulltext) .
timestamp: datetime .
mentions: [uid] @reverse .
relatedTo: [uid] @reverse .

type Entity {
	name
	type
	description
	coordinates
	created_at
	embedding
	relatedTo
}

type Memory {
	content
	timestamp
	embedding
	mentions
}
`
