package cache

import (
	"context"

	"github.com/jaennil/guide_helper/tilecache/internal/lru"
	"github.com/jaennil/guide_helper/tilecache/internal/tile"
)

// MemoryStore is a bounded process-local store. Unlike the front cache it
// usually runs with a much larger capacity.
type MemoryStore struct {
	m *lru.Synchronized[tile.Index, []byte]
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	m, err := lru.NewSynchronized(lru.WithCapacity[tile.Index, []byte](size))
	if err != nil {
		return nil, err
	}

	return &MemoryStore{m: m}, nil
}

var _ TileStore = (*MemoryStore)(nil)

func (s *MemoryStore) Get(_ context.Context, idx tile.Index) ([]byte, bool, error) {
	v, ok := s.m.Get(idx)
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, idx tile.Index, data []byte) error {
	s.m.Add(idx, data)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, idx tile.Index) (bool, error) {
	return s.m.Remove(idx), nil
}

func (s *MemoryStore) Close() error {
	s.m.Clear()
	return nil
}
