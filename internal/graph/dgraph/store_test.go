package dgraph

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/pkg/types"
)

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", vectorLiteral(nil))
	assert.Equal(t, "[1]", vectorLiteral([]float32{1}))
	assert.Equal(t, "[0.5,-0.25,2]", vectorLiteral([]float32{0.5, -0.25, 2}))
}

func TestVectorValueUnmarshal(t *testing.T) {
	t.Run("array form", func(t *testing.T) {
		var v vectorValue
		require.NoError(t, json.Unmarshal([]byte(`[0.5, -0.25, 2]`), &v))
		assert.Equal(t, vectorValue{0.5, -0.25, 2}, v)
	})

	t.Run("string literal form", func(t *testing.T) {
		var v vectorValue
		require.NoError(t, json.Unmarshal([]byte(`"[0.5, -0.25, 2]"`), &v))
		assert.Equal(t, vectorValue{0.5, -0.25, 2}, v)
	})

	t.Run("empty string literal", func(t *testing.T) {
		var v vectorValue
		require.NoError(t, json.Unmarshal([]byte(`"[]"`), &v))
		assert.Empty(t, v)
	})

	t.Run("bad element", func(t *testing.T) {
		var v vectorValue
		assert.Error(t, json.Unmarshal([]byte(`"[1, x]"`), &v))
	})
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.1, -0.9, 3.25}
	var out vectorValue
	require.NoError(t, json.Unmarshal([]byte(`"`+vectorLiteral(in)+`"`), &out))
	assert.Equal(t, vectorValue(in), out)
}

func TestQueryEntityDecode(t *testing.T) {
	// Shape of a similar_to response with reverse mentions and facetted
	// relatedTo expansion.
	raw := `{
		"entities": [{
			"uid": "0x1",
			"name": "Alice",
			"type": "PERSON",
			"description": "an engineer",
			"embedding": "[1, 0]",
			"created_at": "2024-06-15T12:00:00Z",
			"~mentions": [
				{"uid": "0x2", "content": "Alice works at Acme", "timestamp": "2024-06-15T12:00:00Z"}
			],
			"relatedTo": [
				{"uid": "0x3", "name": "Acme", "type": "ORGANIZATION"}
			]
		}]
	}`

	var result struct {
		Entities []queryEntity `json:"entities"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &result))
	require.Len(t, result.Entities, 1)

	qe := result.Entities[0]
	assert.Equal(t, "Alice", qe.Name)
	assert.Equal(t, vectorValue{1, 0}, qe.Embedding)
	require.Len(t, qe.Memories, 1)
	assert.Equal(t, "Alice works at Acme", qe.Memories[0].Content)
	require.Len(t, qe.Related, 1)
	assert.Equal(t, "Acme", qe.Related[0].Name)

	ent := toEntity(&qe)
	assert.Equal(t, "0x1", ent.ID)
	assert.Equal(t, []float32{1, 0}, ent.Embedding)
	assert.Nil(t, ent.Coordinates)
}

func TestStoreFailsFastWhenUninitialized(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	ops := []struct {
		name string
		call func() error
	}{
		{"SaveEntity", func() error {
			_, err := s.SaveEntity(ctx, &types.Entity{Name: "Alice"})
			return err
		}},
		{"SaveMemory", func() error {
			_, err := s.SaveMemory(ctx, &types.Memory{Content: "hello"}, nil)
			return err
		}},
		{"FindEntitiesByName", func() error {
			_, err := s.FindEntitiesByName(ctx, []string{"Alice"})
			return err
		}},
		{"VectorSearch", func() error {
			_, err := s.VectorSearch(ctx, []float32{1, 0}, 1)
			return err
		}},
		{"SaveEntityRelationships", func() error {
			return s.SaveEntityRelationships(ctx, []types.EntityRelationship{{FromEntity: "a", ToEntity: "b"}}, nil)
		}},
	}
	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			assert.ErrorIs(t, op.call(), graph.ErrNotInitialized)
		})
	}
}

func TestFindEntitiesByNameEmptyNames(t *testing.T) {
	s := &Store{initialized: true}

	entities, err := s.FindEntitiesByName(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, entities)
}
