package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/pkg/metrics"
)

const defaultRedisTTL = 24 * time.Hour

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultRedisTTL
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

var _ TileStore = (*RedisStore)(nil)

func (s *RedisStore) keyFor(idx tile.Index) string {
	return fmt.Sprintf("tile:%d:%d:%d", idx.Level, idx.X, idx.Y)
}

func (s *RedisStore) Get(ctx context.Context, idx tile.Index) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.keyFor(idx)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}

	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, idx tile.Index, data []byte) error {
	if err := s.client.Set(ctx, s.keyFor(idx), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, idx tile.Index) (bool, error) {
	n, err := s.client.Del(ctx, s.keyFor(idx)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del error: %w", err)
	}
	return n > 0, nil
}

// ReportPoolStats copies the client's connection pool counters into the
// redis_pool_stats gauge.
func (s *RedisStore) ReportPoolStats() {
	st := s.client.PoolStats()
	metrics.RedisPoolStats.WithLabelValues("hits").Set(float64(st.Hits))
	metrics.RedisPoolStats.WithLabelValues("misses").Set(float64(st.Misses))
	metrics.RedisPoolStats.WithLabelValues("timeouts").Set(float64(st.Timeouts))
	metrics.RedisPoolStats.WithLabelValues("total_conns").Set(float64(st.TotalConns))
	metrics.RedisPoolStats.WithLabelValues("idle_conns").Set(float64(st.IdleConns))
	metrics.RedisPoolStats.WithLabelValues("stale_conns").Set(float64(st.StaleConns))
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
