package postgres

import (
	"context"
	"testing"

	pgvector "github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/pkg/types"
)

func TestEmbeddingValue(t *testing.T) {
	assert.Nil(t, embeddingValue(nil))
	assert.Nil(t, embeddingValue([]float32{}))

	v := embeddingValue([]float32{0.5, -1})
	vec, ok := v.(pgvector.Vector)
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, -1}, vec.Slice())
}

func TestNullVectorScan(t *testing.T) {
	var vec pgvector.Vector
	nv := &nullVector{v: &vec}

	require.NoError(t, nv.Scan(nil))
	assert.False(t, nv.valid)

	require.NoError(t, nv.Scan("[0.5,-1]"))
	assert.True(t, nv.valid)
	assert.Equal(t, []float32{0.5, -1}, vec.Slice())
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	assert.Equal(t, 1536, cfg.EmbeddingDim)

	custom := Config{EmbeddingDim: 768}
	custom.applyDefaults()
	assert.Equal(t, 768, custom.EmbeddingDim)
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
