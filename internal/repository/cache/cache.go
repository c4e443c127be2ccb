// Package cache holds the second-level tile stores consulted when the
// in-memory LRU misses.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/pkg/config"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
	"github.com/jaennil/guide_helper/tilecache/pkg/metrics"
)

var ErrStoreDisabled = errors.New("tile store disabled")

// TileStore persists tile content by index. A miss is (nil, false, nil).
type TileStore interface {
	Get(ctx context.Context, idx tile.Index) ([]byte, bool, error)
	Set(ctx context.Context, idx tile.Index, data []byte) error
	Delete(ctx context.Context, idx tile.Index) (bool, error)
	Close() error
}

// NewStore builds the backend named by cfg.Store.Backend, wrapped with
// metrics. It returns ErrStoreDisabled for the disabled backend.
func NewStore(ctx context.Context, cfg *config.Config, l logger.Logger) (TileStore, error) {
	var (
		s   TileStore
		err error
	)

	switch cfg.Store.Backend {
	case config.BackendDisabled:
		return nil, ErrStoreDisabled
	case config.BackendMemory:
		s, err = NewMemoryStore(cfg.Store.Size)
	case config.BackendSQLite:
		s, err = NewSQLiteStore(cfg.Store.SQLitePath, l)
	case config.BackendRedis:
		s, err = NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
	case config.BackendFilesystem:
		s, err = NewFilesystemStore(cfg.Store.Dir)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init %s store: %w", cfg.Store.Backend, err)
	}

	l.Info("tile store initialized", "backend", cfg.Store.Backend)

	return Instrument(s, cfg.Store.Backend), nil
}

type instrumented struct {
	next    TileStore
	backend string
}

// Instrument records operation latency and errors of s under backend.
func Instrument(s TileStore, backend string) TileStore {
	return &instrumented{next: s, backend: backend}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	metrics.StoreOperationDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(s.backend, op).Inc()
	}
}

func (s *instrumented) Get(ctx context.Context, idx tile.Index) ([]byte, bool, error) {
	start := time.Now()
	data, ok, err := s.next.Get(ctx, idx)
	s.observe("get", start, err)
	return data, ok, err
}

func (s *instrumented) Set(ctx context.Context, idx tile.Index, data []byte) error {
	start := time.Now()
	err := s.next.Set(ctx, idx, data)
	s.observe("set", start, err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, idx tile.Index) (bool, error) {
	start := time.Now()
	ok, err := s.next.Delete(ctx, idx)
	s.observe("delete", start, err)
	return ok, err
}

func (s *instrumented) Close() error {
	return s.next.Close()
}

// Unwrap returns the wrapped store.
func (s *instrumented) Unwrap() TileStore {
	return s.next
}
