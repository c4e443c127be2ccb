package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/pkg/config"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
)

type storeFactory struct {
	name string
	open func(t *testing.T) TileStore
}

func localStores() []storeFactory {
	return []storeFactory{
		{
			name: "memory",
			open: func(t *testing.T) TileStore {
				s, err := NewMemoryStore(16)
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) TileStore {
				s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tiles.db"), logger.NewNop())
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "filesystem",
			open: func(t *testing.T) TileStore {
				s, err := NewFilesystemStore(t.TempDir())
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "instrumented",
			open: func(t *testing.T) TileStore {
				s, err := NewMemoryStore(16)
				require.NoError(t, err)
				return Instrument(s, "memory")
			},
		},
	}
}

// exerciseStore runs the contract every TileStore has to satisfy.
func exerciseStore(t *testing.T, s TileStore) {
	t.Helper()
	ctx := context.Background()
	idx := tile.Index{X: 3, Y: 5, Level: 4}

	_, ok, err := s.Get(ctx, idx)
	require.NoError(t, err)
	assert.False(t, ok, "empty store must miss")

	require.NoError(t, s.Set(ctx, idx, []byte("first")))
	data, ok, err := s.Get(ctx, idx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), data)

	require.NoError(t, s.Set(ctx, idx, []byte("second")))
	data, ok, err = s.Get(ctx, idx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), data)

	// same x/y on another level is a different tile
	_, ok, err = s.Get(ctx, tile.Index{X: 3, Y: 5, Level: 5})
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := s.Delete(ctx, idx)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, idx)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, ok, err = s.Get(ctx, idx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStores(t *testing.T) {
	for _, f := range localStores() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			t.Cleanup(func() { s.Close() })
			exerciseStore(t, s)
		})
	}
}

func TestMemoryStore_Bounded(t *testing.T) {
	s, err := NewMemoryStore(2)
	require.NoError(t, err)
	ctx := context.Background()

	for x := 0; x < 3; x++ {
		require.NoError(t, s.Set(ctx, tile.Index{X: x, Level: 2}, []byte{byte(x)}))
	}

	_, ok, _ := s.Get(ctx, tile.Index{X: 0, Level: 2})
	assert.False(t, ok)
	for x := 1; x < 3; x++ {
		_, ok, _ = s.Get(ctx, tile.Index{X: x, Level: 2})
		assert.True(t, ok)
	}

	_, err = NewMemoryStore(-1)
	assert.Error(t, err)
}

func TestFilesystemStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFilesystemStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), tile.Index{X: 7, Y: 9, Level: 4}, []byte("png")))
	assert.FileExists(t, filepath.Join(dir, "4", "7", "9.tile"))

	matches, err := filepath.Glob(filepath.Join(dir, "4", "7", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.db")
	idx := tile.Index{X: 1, Y: 1, Level: 1}

	s, err := NewSQLiteStore(path, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), idx, []byte("kept")))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path, logger.NewNop())
	require.NoError(t, err)
	defer s.Close()

	data, ok, err := s.Get(context.Background(), idx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("kept"), data)
}

func TestNewStore(t *testing.T) {
	cfg := &config.Config{}

	cfg.Store.Backend = config.BackendDisabled
	_, err := NewStore(context.Background(), cfg, logger.NewNop())
	assert.ErrorIs(t, err, ErrStoreDisabled)

	cfg.Store.Backend = "tape"
	_, err = NewStore(context.Background(), cfg, logger.NewNop())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg.Store.Backend = config.BackendMemory
	cfg.Store.Size = 8
	s, err := NewStore(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer s.Close()

	inner, ok := s.(interface{ Unwrap() TileStore })
	require.True(t, ok)
	assert.IsType(t, &MemoryStore{}, inner.Unwrap())

	cfg.Store.Backend = config.BackendFilesystem
	cfg.Store.Dir = t.TempDir()
	fsStore, err := NewStore(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	exerciseStore(t, fsStore)
}
