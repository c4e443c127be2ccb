package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Cache     Cache     `envPrefix:"CACHE_"`
		Store     Store     `envPrefix:"STORE_"`
		Redis     Redis     `envPrefix:"REDIS_"`
		Upstream  Upstream  `envPrefix:"UPSTREAM_"`
		Layer     Layer     `envPrefix:"LAYER_"`
	}

	HTTP struct {
		Server  Server        `envPrefix:"SERVER_"`
		Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	}

	Server struct {
		Port         string        `env:"PORT,required"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level  string `env:"LEVEL,required"`
		Format string `env:"FORMAT" envDefault:"console"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"guide-helper-tilecache"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	// Cache configures the bounded in-memory LRU that fronts every tile lookup.
	Cache struct {
		Size int    `env:"SIZE" envDefault:"64"`
		Hash string `env:"HASH" envDefault:"canonical"`
	}

	// Store configures the optional second-level store consulted on memory misses.
	Store struct {
		Backend    string `env:"BACKEND" envDefault:"disabled"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"file:tiles.db?cache=shared&mode=memory"`
		Dir        string `env:"DIR" envDefault:"./tiles"`
		Size       int    `env:"SIZE" envDefault:"4096"`
	}

	Redis struct {
		Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
		Password string        `env:"PASSWORD" envDefault:""`
		DB       int           `env:"DB" envDefault:"0"`
		TTL      time.Duration `env:"TTL" envDefault:"24h"`
	}

	Upstream struct {
		TileServerURL string        `env:"TILE_SERVER_URL" envDefault:"https://tile.openstreetmap.org"`
		UserAgent     string        `env:"USER_AGENT" envDefault:"GuideHelper/1.0 (https://github.com/jaennil/guide_helper)"`
		Timeout       time.Duration `env:"TIMEOUT" envDefault:"30s"`
	}

	Layer struct {
		TileSize         int `env:"TILE_SIZE" envDefault:"256"`
		Overlap          int `env:"OVERLAP" envDefault:"0"`
		MinLevel         int `env:"MIN_LEVEL" envDefault:"0"`
		MaxLevel         int `env:"MAX_LEVEL" envDefault:"19"`
		FetchConcurrency int `env:"FETCH_CONCURRENCY" envDefault:"8"`
		// MaxCoverTiles caps how many tiles a single /cover answer lists.
		MaxCoverTiles int `env:"MAX_COVER_TILES" envDefault:"4096"`
	}
)

const (
	HashCanonical = "canonical"
	HashQuadkey   = "quadkey"

	BackendDisabled   = "disabled"
	BackendMemory     = "memory"
	BackendSQLite     = "sqlite"
	BackendRedis      = "redis"
	BackendFilesystem = "filesystem"
)

var ErrInvalidConfig = errors.New("invalid config")

func New() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the cache would otherwise have to coerce.
func (c *Config) Validate() error {
	if c.Cache.Size < 0 {
		return fmt.Errorf("%w: CACHE_SIZE must be >= 0, got %d", ErrInvalidConfig, c.Cache.Size)
	}

	switch c.Cache.Hash {
	case HashCanonical, HashQuadkey:
	default:
		return fmt.Errorf("%w: unknown CACHE_HASH %q (supported: canonical, quadkey)", ErrInvalidConfig, c.Cache.Hash)
	}

	switch c.Store.Backend {
	case BackendDisabled, BackendMemory, BackendSQLite, BackendRedis, BackendFilesystem:
	default:
		return fmt.Errorf("%w: unknown STORE_BACKEND %q (supported: disabled, memory, sqlite, redis, filesystem)", ErrInvalidConfig, c.Store.Backend)
	}

	if c.Store.Size < 0 {
		return fmt.Errorf("%w: STORE_SIZE must be >= 0, got %d", ErrInvalidConfig, c.Store.Size)
	}

	if c.Layer.TileSize <= 0 {
		return fmt.Errorf("%w: LAYER_TILE_SIZE must be > 0, got %d", ErrInvalidConfig, c.Layer.TileSize)
	}

	if c.Layer.MinLevel < 0 || c.Layer.MaxLevel < c.Layer.MinLevel {
		return fmt.Errorf("%w: LAYER level range [%d, %d] is empty", ErrInvalidConfig, c.Layer.MinLevel, c.Layer.MaxLevel)
	}

	if c.Layer.MaxCoverTiles <= 0 {
		return fmt.Errorf("%w: LAYER_MAX_COVER_TILES must be > 0, got %d", ErrInvalidConfig, c.Layer.MaxCoverTiles)
	}

	return nil
}
