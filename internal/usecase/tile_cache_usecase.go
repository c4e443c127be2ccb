package usecase

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jaennil/guide_helper/tilecache/internal/lru"
	"github.com/jaennil/guide_helper/tilecache/internal/repository/cache"
	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/pkg/config"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
	"github.com/jaennil/guide_helper/tilecache/pkg/metrics"
)

// HashByName maps a CACHE_HASH value to the hash the front cache files
// tiles under.
func HashByName(name string) (lru.HashFunc[tile.Index], error) {
	switch name {
	case config.HashCanonical, "":
		return tile.Index.CanonicalKey, nil
	case config.HashQuadkey:
		return tile.Index.Quadkey, nil
	default:
		return nil, fmt.Errorf("%w: unknown hash %q", config.ErrInvalidConfig, name)
	}
}

type Stats struct {
	Length    int    `json:"length"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Store     string `json:"store"`
}

// TileCacheUseCase fronts an optional second-level store with a bounded
// in-memory LRU. Memory misses that the store can serve are promoted.
type TileCacheUseCase struct {
	memory    *lru.Synchronized[tile.Index, []byte]
	store     cache.TileStore
	storeName string
	logger    logger.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewTileCacheUseCase builds the front cache. store may be nil.
func NewTileCacheUseCase(size int, hash lru.HashFunc[tile.Index], store cache.TileStore, storeName string, l logger.Logger) (*TileCacheUseCase, error) {
	uc := &TileCacheUseCase{
		store:     store,
		storeName: storeName,
		logger:    l,
	}

	memory, err := lru.NewSynchronized(
		lru.WithCapacity[tile.Index, []byte](size),
		lru.WithHash[tile.Index, []byte](hash),
		lru.WithOnEvict[tile.Index, []byte](uc.onEvict),
	)
	if err != nil {
		return nil, err
	}
	uc.memory = memory

	metrics.CacheCapacity.Set(float64(size))

	return uc, nil
}

// onEvict runs under the front cache's lock and must not call back into it.
func (uc *TileCacheUseCase) onEvict(key string, _ []byte) {
	uc.evictions.Add(1)
	metrics.CacheEvictions.Inc()
	uc.logger.Debug("tile evicted from memory", "hash", key)
}

// GetCachedTile looks idx up in memory, then in the store. Indexes outside
// the pyramid are rejected; the quadkey hash would alias them onto valid
// tiles.
func (uc *TileCacheUseCase) GetCachedTile(ctx context.Context, idx tile.Index) ([]byte, bool, error) {
	if !idx.Valid() {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidTile, idx)
	}

	uc.logger.Debug("cache lookup", "z", idx.Level, "x", idx.X, "y", idx.Y)

	if data, ok := uc.memory.Get(idx); ok {
		uc.hits.Add(1)
		metrics.CacheHits.Inc()
		return data, true, nil
	}

	uc.misses.Add(1)
	metrics.CacheMisses.Inc()

	if uc.store == nil {
		return nil, false, nil
	}

	data, ok, err := uc.store.Get(ctx, idx)
	if err != nil {
		uc.logger.Error("store lookup failed", "z", idx.Level, "x", idx.X, "y", idx.Y, "error", err)
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	uc.memory.Add(idx, data)
	metrics.CacheEntries.Set(float64(uc.memory.Len()))

	return data, true, nil
}

func (uc *TileCacheUseCase) CacheTile(ctx context.Context, idx tile.Index, data []byte) error {
	if !idx.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidTile, idx)
	}

	uc.logger.Debug("caching tile", "z", idx.Level, "x", idx.X, "y", idx.Y, "size", len(data))

	uc.memory.Add(idx, data)
	metrics.CacheStores.Inc()
	metrics.CacheEntries.Set(float64(uc.memory.Len()))

	if uc.store == nil {
		return nil
	}

	if err := uc.store.Set(ctx, idx, data); err != nil {
		uc.logger.Error("failed to persist tile", "z", idx.Level, "x", idx.X, "y", idx.Y, "error", err)
		return err
	}

	return nil
}

// RemoveTile drops idx from memory and the store. It reports whether
// either held it.
func (uc *TileCacheUseCase) RemoveTile(ctx context.Context, idx tile.Index) (bool, error) {
	if !idx.Valid() {
		return false, fmt.Errorf("%w: %s", ErrInvalidTile, idx)
	}

	removed := uc.memory.Remove(idx)
	metrics.CacheEntries.Set(float64(uc.memory.Len()))

	if uc.store == nil {
		return removed, nil
	}

	deleted, err := uc.store.Delete(ctx, idx)
	if err != nil {
		uc.logger.Error("failed to delete tile from store", "z", idx.Level, "x", idx.X, "y", idx.Y, "error", err)
		return removed, err
	}

	return removed || deleted, nil
}

// Clear empties the memory cache. The store is left alone.
func (uc *TileCacheUseCase) Clear() {
	uc.memory.Clear()
	metrics.CacheEntries.Set(0)
	uc.logger.Info("memory cache cleared")
}

func (uc *TileCacheUseCase) Resize(n int) (int, error) {
	evicted, err := uc.memory.SetCapacity(n)
	if err != nil {
		return 0, err
	}

	metrics.CacheCapacity.Set(float64(n))
	metrics.CacheEntries.Set(float64(uc.memory.Len()))
	uc.logger.Info("memory cache resized", "capacity", n, "evicted", evicted)

	return evicted, nil
}

func (uc *TileCacheUseCase) Stats() Stats {
	if r, ok := unwrapStore(uc.store).(interface{ ReportPoolStats() }); ok {
		r.ReportPoolStats()
	}

	return Stats{
		Length:    uc.memory.Len(),
		Capacity:  uc.memory.Capacity(),
		Hits:      uc.hits.Load(),
		Misses:    uc.misses.Load(),
		Evictions: uc.evictions.Load(),
		Store:     uc.storeName,
	}
}

// Keys lists the hashes held in memory, least recently used first.
func (uc *TileCacheUseCase) Keys() []string {
	return uc.memory.Keys()
}

func unwrapStore(s cache.TileStore) cache.TileStore {
	if u, ok := s.(interface{ Unwrap() cache.TileStore }); ok {
		return u.Unwrap()
	}
	return s
}
