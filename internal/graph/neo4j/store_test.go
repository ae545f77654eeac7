package neo4j

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/graphmem/internal/graph"
	"github.com/scrypster/graphmem/pkg/types"
)

func TestToFloat64s(t *testing.T) {
	assert.Equal(t, []float64{}, toFloat64s(nil))
	assert.Equal(t, []float64{0.5, -1}, toFloat64s([]float32{0.5, -1}))
}

func TestToFloat32s(t *testing.T) {
	assert.Nil(t, toFloat32s(nil))
	assert.Nil(t, toFloat32s("not a list"))
	assert.Equal(t, []float32{0.5, -1}, toFloat32s([]any{0.5, -1.0}))
}

func TestToTime(t *testing.T) {
	want := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.True(t, want.Equal(toTime(want)))
	assert.True(t, want.Equal(toTime("2024-06-15T12:00:00Z")))
	assert.True(t, toTime("not a time").IsZero())
	assert.True(t, toTime(nil).IsZero())
	assert.True(t, toTime(42).IsZero())
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	assert.Equal(t, "bolt://localhost:7687", cfg.URI)
	assert.Equal(t, "neo4j", cfg.Username)
	assert.Equal(t, 1536, cfg.EmbeddingDim)

	custom := Config{URI: "bolt://graph:7687", EmbeddingDim: 768}
	custom.applyDefaults()
	assert.Equal(t, "bolt://graph:7687", custom.URI)
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
