package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaennil/guide_helper/tilecache/internal/lru"
	"github.com/jaennil/guide_helper/tilecache/internal/repository/cache"
	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/pkg/config"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
)

func newCacheUseCase(t *testing.T, size int, store cache.TileStore) *TileCacheUseCase {
	t.Helper()

	uc, err := NewTileCacheUseCase(size, tile.Index.CanonicalKey, store, "memory", logger.NewNop())
	require.NoError(t, err)
	return uc
}

func TestHashByName(t *testing.T) {
	idx := tile.Index{X: 1, Y: 2, Level: 2}

	h, err := HashByName(config.HashCanonical)
	require.NoError(t, err)
	assert.Equal(t, "2/2/1", h(idx))

	h, err = HashByName(config.HashQuadkey)
	require.NoError(t, err)
	assert.Equal(t, "21", h(idx))

	_, err = HashByName("md5")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestTileCacheUseCase_MemoryOnly(t *testing.T) {
	uc := newCacheUseCase(t, 2, nil)
	ctx := context.Background()
	a := tile.Index{X: 0, Y: 0, Level: 1}
	b := tile.Index{X: 1, Y: 0, Level: 1}
	c := tile.Index{X: 1, Y: 1, Level: 1}

	_, ok, err := uc.GetCachedTile(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, uc.CacheTile(ctx, a, []byte("a")))
	require.NoError(t, uc.CacheTile(ctx, b, []byte("b")))

	data, ok, err := uc.GetCachedTile(ctx, a)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), data)

	require.NoError(t, uc.CacheTile(ctx, c, []byte("c")))

	_, ok, _ = uc.GetCachedTile(ctx, b)
	assert.False(t, ok, "b was least recently used")

	stats := uc.Stats()
	assert.Equal(t, 2, stats.Length)
	assert.Equal(t, 2, stats.Capacity)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, []string{"1/0/0", "1/1/1"}, uc.Keys())
}

func TestTileCacheUseCase_PromotesFromStore(t *testing.T) {
	store, err := cache.NewMemoryStore(16)
	require.NoError(t, err)

	uc := newCacheUseCase(t, 1, store)
	ctx := context.Background()
	a := tile.Index{X: 0, Y: 0, Level: 1}
	b := tile.Index{X: 1, Y: 0, Level: 1}

	require.NoError(t, uc.CacheTile(ctx, a, []byte("a")))
	require.NoError(t, uc.CacheTile(ctx, b, []byte("b")))
	assert.Equal(t, []string{"1/0/1"}, uc.Keys())

	data, ok, err := uc.GetCachedTile(ctx, a)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), data)
	assert.Equal(t, []string{"1/0/0"}, uc.Keys())
}

func TestTileCacheUseCase_RemoveClearResize(t *testing.T) {
	store, err := cache.NewMemoryStore(16)
	require.NoError(t, err)

	uc := newCacheUseCase(t, 4, store)
	ctx := context.Background()

	for x := 0; x < 4; x++ {
		require.NoError(t, uc.CacheTile(ctx, tile.Index{X: x, Level: 2}, []byte{byte(x)}))
	}

	removed, err := uc.RemoveTile(ctx, tile.Index{X: 0, Level: 2})
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = uc.RemoveTile(ctx, tile.Index{X: 0, Level: 2})
	require.NoError(t, err)
	assert.False(t, removed)

	evicted, err := uc.Resize(1)
	require.NoError(t, err)
	assert.Equal(t, 2, evicted)
	assert.Equal(t, []string{"2/0/3"}, uc.Keys())

	_, err = uc.Resize(-1)
	assert.ErrorIs(t, err, lru.ErrInvalidCapacity)

	uc.Clear()
	assert.Equal(t, 0, uc.Stats().Length)

	// the store still has it
	_, ok, err := uc.GetCachedTile(ctx, tile.Index{X: 1, Level: 2})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTileCacheUseCase_ZeroCapacity(t *testing.T) {
	uc := newCacheUseCase(t, 0, nil)
	ctx := context.Background()

	require.NoError(t, uc.CacheTile(ctx, tile.Index{}, []byte("x")))
	_, ok, err := uc.GetCachedTile(ctx, tile.Index{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, uc.Stats().Length)
}

func TestNewTileCacheUseCase_Invalid(t *testing.T) {
	_, err := NewTileCacheUseCase(-1, tile.Index.CanonicalKey, nil, "", logger.NewNop())
	assert.ErrorIs(t, err, lru.ErrInvalidCapacity)

	_, err = NewTileCacheUseCase(1, nil, nil, "", logger.NewNop())
	assert.ErrorIs(t, err, lru.ErrNilHash)
}

func TestTileCacheUseCase_QuadkeyRejectsOutsidePyramid(t *testing.T) {
	uc, err := NewTileCacheUseCase(4, tile.Index.Quadkey, nil, "disabled", logger.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	valid := tile.Index{X: 0, Y: 0, Level: 1}
	// same low bits as valid, so the same quadkey
	alias := tile.Index{X: 2, Y: 0, Level: 1}
	require.Equal(t, valid.Quadkey(), alias.Quadkey())

	require.NoError(t, uc.CacheTile(ctx, valid, []byte("real 1/0/0")))

	data, ok, err := uc.GetCachedTile(ctx, alias)
	assert.ErrorIs(t, err, ErrInvalidTile)
	assert.False(t, ok)
	assert.Nil(t, data)

	removed, err := uc.RemoveTile(ctx, alias)
	assert.ErrorIs(t, err, ErrInvalidTile)
	assert.False(t, removed)

	assert.ErrorIs(t, uc.CacheTile(ctx, alias, []byte("spoofed")), ErrInvalidTile)

	data, ok, err = uc.GetCachedTile(ctx, valid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("real 1/0/0"), data)
}
