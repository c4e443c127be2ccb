package layer_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaennil/guide_helper/tilecache/internal/layer"
	"github.com/jaennil/guide_helper/tilecache/internal/tile"
)

var errUpstream = errors.New("upstream unavailable")

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls: make(map[string]int),
		fail:  make(map[string]bool),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, k tile.Key) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	key := k.CanonicalKey()

	f.mu.Lock()
	f.calls[key]++
	fail := f.fail[key]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, errUpstream
	}
	return []byte("tile " + key), nil
}

func (f *fakeFetcher) setFail(key string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[key] = fail
}

func (f *fakeFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func newLayer(t *testing.T, capacity int, f layer.Fetcher) *layer.Layer {
	t.Helper()

	l, err := layer.New(layer.Config{
		TileSize:         tile.Point{X: 256, Y: 256},
		MinLevel:         0,
		MaxLevel:         4,
		Capacity:         capacity,
		FetchConcurrency: 4,
	}, f, nil)
	require.NoError(t, err)
	return l
}

func TestNew_Invalid(t *testing.T) {
	f := newFakeFetcher()

	_, err := layer.New(layer.Config{TileSize: tile.Point{X: 256, Y: 256}}, nil, nil)
	assert.ErrorIs(t, err, layer.ErrNilFetcher)

	_, err = layer.New(layer.Config{TileSize: tile.Point{X: 0, Y: 256}}, f, nil)
	assert.ErrorIs(t, err, tile.ErrInvalidDescriptor)

	_, err = layer.New(layer.Config{TileSize: tile.Point{X: 256, Y: 256}, Overlap: tile.Point{X: -1}}, f, nil)
	assert.ErrorIs(t, err, tile.ErrInvalidDescriptor)

	_, err = layer.New(layer.Config{TileSize: tile.Point{X: 256, Y: 256}, MinLevel: 3, MaxLevel: 2}, f, nil)
	assert.ErrorIs(t, err, layer.ErrLevelOutOfRange)
}

func TestKey_CarriesSizeAndOverlap(t *testing.T) {
	l, err := layer.New(layer.Config{
		TileSize: tile.Point{X: 512, Y: 256},
		Overlap:  tile.Point{X: 2, Y: 1},
		MaxLevel: 4,
		Capacity: 4,
	}, newFakeFetcher(), nil)
	require.NoError(t, err)

	k := l.Key(tile.Index{X: 1, Y: 1, Level: 1})
	assert.Equal(t, tile.Point{X: 512, Y: 256}, k.Size)
	assert.Equal(t, tile.Point{X: 2, Y: 1}, k.Overlap)
	assert.Equal(t, 510, k.Left(0))
	assert.Equal(t, 513, k.Top(0))
}

func TestUpdate_FetchesThenHits(t *testing.T) {
	f := newFakeFetcher()
	l := newLayer(t, 8, f)
	ctx := context.Background()
	viewport := tile.Bounds{MinX: 0, MinY: 0, MaxX: 512, MaxY: 512}

	res, err := l.Update(ctx, viewport, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Visible)
	assert.Equal(t, 0, res.Hits)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 4, l.Len())

	got, ok := l.Tile(tile.Index{X: 1, Y: 0, Level: 1})
	require.True(t, ok)
	assert.Equal(t, layer.StateLoaded, got.State)
	assert.Equal(t, []byte("tile 1/0/1"), got.Content)
	assert.False(t, got.LoadedAt.IsZero())

	res, err = l.Update(ctx, viewport, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Hits)
	assert.Equal(t, 0, res.Fetched)
	assert.Equal(t, 1, f.callCount("1/0/1"))
}

func TestUpdate_EvictsLeastRecentlyUsed(t *testing.T) {
	f := newFakeFetcher()
	l := newLayer(t, 4, f)
	ctx := context.Background()

	_, err := l.Update(ctx, tile.Bounds{MaxX: 512, MaxY: 512}, 2)
	require.NoError(t, err)

	res, err := l.Update(ctx, tile.Bounds{MinX: 512, MaxX: 1024, MaxY: 512}, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 4, res.Evicted)
	assert.Equal(t, 4, l.Evicted())

	_, ok := l.Tile(tile.Index{X: 0, Y: 0, Level: 2})
	assert.False(t, ok)
	_, ok = l.Tile(tile.Index{X: 3, Y: 1, Level: 2})
	assert.True(t, ok)
}

func TestUpdate_DrawKeepsTilesAlive(t *testing.T) {
	f := newFakeFetcher()
	l := newLayer(t, 4, f)
	ctx := context.Background()

	_, err := l.Update(ctx, tile.Bounds{MaxX: 512, MaxY: 512}, 2)
	require.NoError(t, err)

	// touching 2/0/0 makes 2/0/1 the eviction victim
	drawn := l.Draw(tile.Range{Level: 2, MinX: 0, MinY: 0, MaxX: 0, MaxY: 0})
	require.Len(t, drawn, 1)

	_, err = l.Update(ctx, tile.Bounds{MinX: 512, MaxX: 768, MaxY: 256}, 2)
	require.NoError(t, err)

	_, ok := l.Tile(tile.Index{X: 0, Y: 0, Level: 2})
	assert.True(t, ok)
	_, ok = l.Tile(tile.Index{X: 1, Y: 0, Level: 2})
	assert.False(t, ok)
}

func TestUpdate_FailedTilesAreRetried(t *testing.T) {
	f := newFakeFetcher()
	f.setFail("1/0/0", true)
	l := newLayer(t, 8, f)
	ctx := context.Background()
	viewport := tile.Bounds{MaxX: 512, MaxY: 512}

	res, err := l.Update(ctx, viewport, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, res.Fetched)

	got, ok := l.Tile(tile.Index{X: 0, Y: 0, Level: 1})
	require.True(t, ok)
	assert.Equal(t, layer.StateFailed, got.State)
	assert.ErrorIs(t, got.Err, errUpstream)

	f.setFail("1/0/0", false)
	res, err = l.Update(ctx, viewport, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Hits)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 2, f.callCount("1/0/0"))

	got, ok = l.Tile(tile.Index{X: 0, Y: 0, Level: 1})
	require.True(t, ok)
	assert.Equal(t, layer.StateLoaded, got.State)
}

func TestUpdate_CancelledDiscardsResults(t *testing.T) {
	f := newFakeFetcher()
	l := newLayer(t, 8, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Update(ctx, tile.Bounds{MaxX: 512, MaxY: 512}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, l.Len())
}

func TestUpdate_CoverLargerThanCapacity(t *testing.T) {
	f := newFakeFetcher()
	l := newLayer(t, 2, f)

	res, err := l.Update(context.Background(), tile.Bounds{MaxX: 512, MaxY: 512}, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Visible)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, 2, res.Evicted)
	assert.Equal(t, 2, l.Len())
}

func TestUpdate_ZeroCapacityKeepsNothing(t *testing.T) {
	f := newFakeFetcher()
	l := newLayer(t, 0, f)

	res, err := l.Update(context.Background(), tile.Bounds{MaxX: 256, MaxY: 256}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Visible)
	assert.Equal(t, 0, l.Len())
}

func TestUpdate_OutsideAndInvalidLevel(t *testing.T) {
	f := newFakeFetcher()
	l := newLayer(t, 8, f)
	ctx := context.Background()

	res, err := l.Update(ctx, tile.Bounds{MinX: 5000, MinY: 5000, MaxX: 6000, MaxY: 6000}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Visible)

	_, err = l.Update(ctx, tile.Bounds{MaxX: 256, MaxY: 256}, 9)
	assert.ErrorIs(t, err, layer.ErrLevelOutOfRange)
}

func TestUpdate_RespectsFetchConcurrency(t *testing.T) {
	f := newFakeFetcher()
	f.delay = 5 * time.Millisecond

	l, err := layer.New(layer.Config{
		TileSize:         tile.Point{X: 256, Y: 256},
		MaxLevel:         4,
		Capacity:         64,
		FetchConcurrency: 2,
	}, f, nil)
	require.NoError(t, err)

	res, err := l.Update(context.Background(), tile.Bounds{MaxX: 1024, MaxY: 1024}, 2)
	require.NoError(t, err)
	assert.Equal(t, 16, res.Fetched)
	assert.LessOrEqual(t, f.maxInFlight.Load(), int32(2))
}

func TestSetCapacityAndClear(t *testing.T) {
	f := newFakeFetcher()
	l := newLayer(t, 8, f)

	_, err := l.Update(context.Background(), tile.Bounds{MaxX: 512, MaxY: 512}, 1)
	require.NoError(t, err)

	evicted, err := l.SetCapacity(1)
	require.NoError(t, err)
	assert.Equal(t, 3, evicted)
	assert.Equal(t, 1, l.Capacity())

	_, err = l.SetCapacity(-1)
	assert.Error(t, err)
	assert.Equal(t, 1, l.Capacity())

	l.Clear()
	assert.Equal(t, 0, l.Len())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", layer.StatePending.String())
	assert.Equal(t, "loaded", layer.StateLoaded.String())
	assert.Equal(t, "failed", layer.StateFailed.String())
	assert.Equal(t, "unknown", layer.State(42).String())
}

func TestUpdate_CustomHash(t *testing.T) {
	f := newFakeFetcher()

	l, err := layer.New(layer.Config{
		TileSize:         tile.Point{X: 256, Y: 256},
		MaxLevel:         4,
		Capacity:         8,
		FetchConcurrency: 2,
		Hash:             tile.QuadkeyHash,
	}, f, nil)
	require.NoError(t, err)

	res, err := l.Update(context.Background(), tile.Bounds{MaxX: 512, MaxY: 512}, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Fetched)

	got, ok := l.Tile(tile.Index{X: 1, Y: 1, Level: 1})
	require.True(t, ok)
	assert.Equal(t, []byte("tile 1/1/1"), got.Content)
}
