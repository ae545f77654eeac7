package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/scrypster/graphmem/pkg/types"
)

// fakeStore records every call and serves canned lookup and search results.
type fakeStore struct {
	existing      []*types.Entity
	searchResults []*types.SearchResult

	savedEntities []*types.Entity
	savedMemories []*types.Memory
	savedRels     []types.EntityRelationship
	lookups       [][]string

	saveEntityErr error
	saveMemoryErr error
	saveRelsErr   error

	nextID int
}

func (s *fakeStore) Initialize(ctx context.Context) error { return nil }
func (s *fakeStore) Close(ctx context.Context) error      { return nil }

func (s *fakeStore) SaveEntity(ctx context.Context, entity *types.Entity) (string, error) {
	if s.saveEntityErr != nil {
		return "", s.saveEntityErr
	}
	s.nextID++
	id := fmt.Sprintf("0x%d", s.nextID)
	saved := *entity
	saved.ID = id
	s.savedEntities = append(s.savedEntities, &saved)
	return id, nil
}

func (s *fakeStore) SaveMemory(ctx context.Context, memory *types.Memory, entityIDs []string) (string, error) {
	if s.saveMemoryErr != nil {
		return "", s.saveMemoryErr
	}
	s.nextID++
	id := fmt.Sprintf("0x%d", s.nextID)
	saved := *memory
	saved.ID = id
	s.savedMemories = append(s.savedMemories, &saved)
	return id, nil
}

func (s *fakeStore) FindEntitiesByName(ctx context.Context, names []string) ([]*types.Entity, error) {
	s.lookups = append(s.lookups, names)
	var found []*types.Entity
	for _, ent := range s.existing {
		for _, name := range names {
			if ent.Name == name {
				found = append(found, ent)
				break
			}
		}
	}
	return found, nil
}

func (s *fakeStore) VectorSearch(ctx context.Context, embedding []float32, limit int) ([]*types.SearchResult, error) {
	if limit < len(s.searchResults) {
		return s.searchResults[:limit], nil
	}
	return s.searchResults, nil
}

func (s *fakeStore) SaveEntityRelationships(ctx context.Context, rels []types.EntityRelationship, nameToID map[string]string) error {
	if s.saveRelsErr != nil {
		return s.saveRelsErr
	}
	s.savedRels = append(s.savedRels, rels...)
	return nil
}

// fakeEmbedder returns a fixed vector for every input. A non-empty failOn
// makes only that exact text fail.
type fakeEmbedder struct {
	vector []float32
	err    error
	failOn string
	calls  int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn != "" && text == e.failOn {
		return nil, errors.New("embed refused: " + text)
	}
	if e.err != nil {
		return nil, e.err
	}
	if e.vector == nil {
		return []float32{1, 0, 0}, nil
	}
	return e.vector, nil
}

func (e *fakeEmbedder) GetModel() string { return "fake-embedder" }

// scriptedGenerator replays canned replies in order.
type scriptedGenerator struct {
	replies []string
	calls   int
	err     error
}

func (g *scriptedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply, nil
}

func (g *scriptedGenerator) GetModel() string { return "scripted" }
