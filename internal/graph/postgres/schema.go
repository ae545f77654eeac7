package postgres

// Schema is the base relational schema. Every statement uses IF NOT EXISTS,
// so applying it repeatedly is safe. Embeddings use pgvector's vector type;
// the dimension placeholder is filled in at Initialize from the config.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION,
	embedding   vector(%d),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (name, type)
);

CREATE TABLE IF NOT EXISTS memories (
	id         UUID PRIMARY KEY,
	content    TEXT NOT NULL,
	timestamp  TIMESTAMPTZ NOT NULL,
	embedding  vector(%d),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS memory_entities (
	memory_id  UUID NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	entity_id  UUID NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	PRIMARY KEY (memory_id, entity_id)
);

CREATE TABLE IF NOT EXISTS entity_relationships (
	id          UUID PRIMARY KEY,
	from_entity UUID NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	to_entity   UUID NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	type        TEXT NOT NULL,
	valid_at    TIMESTAMPTZ,
	invalid_at  TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (from_entity, to_entity, type)
);

CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
CREATE INDEX IF NOT EXISTS idx_memory_entities_entity ON memory_entities(entity_id);
CREATE INDEX IF NOT EXISTS idx_relationships_from ON entity_relationships(from_entity);
`

// SchemaVectorIndex is applied separately because ivfflat requires the
// pgvector extension and benefits from existing rows; a failure here only
// costs index acceleration, not correctness.
const SchemaVectorIndex = `
CREATE INDEX IF NOT EXISTS idx_entities_embedding_cosine
	ON entities USING ivfflat (embedding vector_cosine_ops)
`
