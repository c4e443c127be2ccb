// Package layer drives a tiled map layer: it works out which tiles cover a
// viewport, serves the ones already cached, fetches the rest and keeps the
// working set bounded with an LRU cache.
//
// A Layer belongs to one goroutine. Fetches run concurrently inside
// Update, but their results are applied to the cache only by the caller of
// Update once every fetch has returned.
package layer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jaennil/guide_helper/tilecache/internal/lru"
	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
	"github.com/jaennil/guide_helper/tilecache/pkg/metrics"
)

var (
	ErrLevelOutOfRange = errors.New("level out of range")
	ErrNilFetcher      = errors.New("fetcher must not be nil")
)

// Fetcher loads tile content out of band, typically over the network.
type Fetcher interface {
	Fetch(ctx context.Context, k tile.Key) ([]byte, error)
}

type FetcherFunc func(ctx context.Context, k tile.Key) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, k tile.Key) ([]byte, error) {
	return f(ctx, k)
}

type Config struct {
	TileSize tile.Point
	Overlap  tile.Point
	MinLevel int
	MaxLevel int
	// Capacity bounds the number of tiles kept; 0 keeps none.
	Capacity         int
	FetchConcurrency int
	// Hash overrides the canonical tile hash.
	Hash lru.HashFunc[tile.Key]
}

type UpdateResult struct {
	Range   tile.Range `json:"range"`
	Visible int        `json:"visible"`
	Hits    int        `json:"hits"`
	Fetched int        `json:"fetched"`
	Failed  int        `json:"failed"`
	// Dropped counts fetched tiles that were evicted before their
	// content arrived, because the cover exceeds the capacity.
	Dropped int `json:"dropped"`
	Evicted int `json:"evicted"`
}

type Layer struct {
	cfg Config
	// proto carries the layer's size and overlap; Key fills in the index.
	proto   tile.Key
	cache   *lru.Cache[tile.Key, *Tile]
	fetcher Fetcher
	logger  logger.Logger
	now     func() time.Time

	evicted int
}

func New(cfg Config, f Fetcher, l logger.Logger) (*Layer, error) {
	if f == nil {
		return nil, ErrNilFetcher
	}
	proto, err := tile.New(tile.Descriptor{
		Size:    tile.SizeDescriptor{X: cfg.TileSize.X, Y: cfg.TileSize.Y},
		Overlap: &tile.OverlapDescriptor{X: cfg.Overlap.X, Y: cfg.Overlap.Y},
	})
	if err != nil {
		return nil, err
	}
	if cfg.MinLevel < 0 || cfg.MaxLevel < cfg.MinLevel || cfg.MaxLevel > tile.MaxLevel {
		return nil, fmt.Errorf("%w: [%d, %d]", ErrLevelOutOfRange, cfg.MinLevel, cfg.MaxLevel)
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	if l == nil {
		l = logger.NewNop()
	}

	ly := &Layer{
		cfg:     cfg,
		proto:   proto,
		fetcher: f,
		logger:  l,
		now:     time.Now,
	}

	opts := []lru.Option[tile.Key, *Tile]{
		lru.WithCapacity[tile.Key, *Tile](cfg.Capacity),
		lru.WithOnEvict[tile.Key, *Tile](ly.onEvict),
	}
	if cfg.Hash != nil {
		opts = append(opts, lru.WithHash[tile.Key, *Tile](cfg.Hash))
	}

	c, err := lru.New(opts...)
	if err != nil {
		return nil, err
	}
	ly.cache = c

	return ly, nil
}

func (l *Layer) onEvict(key string, t *Tile) {
	l.evicted++
	l.logger.Debug("tile evicted", "tile", key, "state", t.State)
}

// Key builds the key of the tile at idx with the layer's size and overlap.
func (l *Layer) Key(idx tile.Index) tile.Key {
	k := l.proto
	k.Index = idx
	return k
}

// Cover returns the tile range visible in viewport at level.
func (l *Layer) Cover(viewport tile.Bounds, level int) (tile.Range, bool, error) {
	if level < l.cfg.MinLevel || level > l.cfg.MaxLevel {
		return tile.Range{}, false, fmt.Errorf("%w: %d not in [%d, %d]", ErrLevelOutOfRange, level, l.cfg.MinLevel, l.cfg.MaxLevel)
	}
	r, ok := tile.Cover(viewport, level, l.proto.Size)
	return r, ok, nil
}

// Update brings the tiles covering viewport at level into the cache.
// Cached tiles are marked used; missing or previously failed ones are
// fetched. If ctx is cancelled, results of the interrupted fetches are
// discarded and ctx's error is returned.
func (l *Layer) Update(ctx context.Context, viewport tile.Bounds, level int) (UpdateResult, error) {
	r, ok, err := l.Cover(viewport, level)
	if err != nil {
		return UpdateResult{}, err
	}

	res := UpdateResult{Range: r}
	if !ok {
		return res, nil
	}

	evictedBefore := l.evicted
	keys := r.Keys(l.proto.Size, l.proto.Overlap)
	res.Visible = len(keys)

	if res.Visible > l.cfg.Capacity {
		l.logger.Warn("viewport needs more tiles than the layer keeps",
			"visible", res.Visible, "capacity", l.cfg.Capacity, "level", level)
	}

	var pending []*Tile
	for _, k := range keys {
		if t, ok := l.cache.Get(k); ok && t.State == StateLoaded {
			res.Hits++
			continue
		}

		t := &Tile{Key: k, State: StatePending}
		l.cache.Add(k, t)
		pending = append(pending, t)
	}

	l.fetchAll(ctx, pending)

	for _, t := range pending {
		// only pointers still cached are live; the rest were pushed out by
		// later tiles of this same cover
		if cur, ok := l.cache.Peek(t.Key); !ok || cur != t {
			if t.Err == nil && ctx.Err() == nil {
				res.Dropped++
			}
			continue
		}

		switch {
		case ctx.Err() != nil && t.Err != nil:
			l.cache.Remove(t.Key)
		case t.Err != nil:
			t.State = StateFailed
			res.Failed++
			metrics.LayerFetchFailures.Inc()
			l.logger.Warn("tile fetch failed", "tile", t.Key.CanonicalKey(), "error", t.Err)
		default:
			t.State = StateLoaded
			t.LoadedAt = l.now()
			res.Fetched++
		}
	}

	res.Evicted = l.evicted - evictedBefore

	l.logger.Debug("layer updated",
		"level", level,
		"visible", res.Visible,
		"hits", res.Hits,
		"fetched", res.Fetched,
		"failed", res.Failed,
		"evicted", res.Evicted,
	)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// fetchAll fills Content or Err of every tile. Goroutines write only to
// their own tile's result fields, and only until Wait returns.
func (l *Layer) fetchAll(ctx context.Context, tiles []*Tile) {
	var g errgroup.Group
	g.SetLimit(l.cfg.FetchConcurrency)

	for _, t := range tiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				t.Err = err
				return nil
			}
			content, err := l.fetcher.Fetch(ctx, t.Key)
			if err != nil {
				t.Err = err
				return nil
			}
			t.Content = content
			return nil
		})
	}

	_ = g.Wait()
}

// Tile returns the cached tile at idx without marking it used.
func (l *Layer) Tile(idx tile.Index) (*Tile, bool) {
	return l.cache.Peek(l.Key(idx))
}

// Draw returns the loaded tiles of r and marks each one used, the way a
// renderer touches tiles on every frame.
func (l *Layer) Draw(r tile.Range) []*Tile {
	out := make([]*Tile, 0, r.Len())
	for _, idx := range r.Indexes() {
		if t, ok := l.cache.Get(l.Key(idx)); ok && t.State == StateLoaded {
			out = append(out, t)
		}
	}
	return out
}

func (l *Layer) Len() int {
	return l.cache.Len()
}

func (l *Layer) Capacity() int {
	return l.cache.Capacity()
}

func (l *Layer) SetCapacity(n int) (int, error) {
	evicted, err := l.cache.SetCapacity(n)
	if err != nil {
		return 0, err
	}
	l.cfg.Capacity = n
	return evicted, nil
}

// Clear drops every tile, e.g. when the layer's source changes.
func (l *Layer) Clear() {
	l.cache.Clear()
}

// Evicted is the running total of capacity evictions.
func (l *Layer) Evicted() int {
	return l.evicted
}
