package memory

import (
	"context"
	"sync"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

// IndexStore holds one set of index artifacts in memory.
type IndexStore struct {
	mu  sync.RWMutex
	art *store.IndexArtifacts
}

func NewIndexStore() *IndexStore {
	return &IndexStore{}
}

func (s *IndexStore) ReplaceIndex(_ context.Context, art store.IndexArtifacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.art = &art
	return nil
}

func (s *IndexStore) LoadIndex(_ context.Context) (store.IndexArtifacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.art == nil || len(s.art.Chunks) == 0 {
		return store.IndexArtifacts{}, store.ErrIndexNotInitialized
	}
	return *s.art, nil
}
