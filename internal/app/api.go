package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	v1 "github.com/jaennil/guide_helper/tilecache/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/tilecache/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/tilecache/internal/layer"
	"github.com/jaennil/guide_helper/tilecache/internal/repository/cache"
	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/internal/usecase"
	"github.com/jaennil/guide_helper/tilecache/pkg/config"
	"github.com/jaennil/guide_helper/tilecache/pkg/http_server"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
	"github.com/jaennil/guide_helper/tilecache/pkg/telemetry"
)

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger)
	defer l.Sync()

	l.Info("app config", "cfg", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
		l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	store, err := cache.NewStore(ctx, cfg, l)
	switch {
	case errors.Is(err, cache.ErrStoreDisabled):
		l.Info("second-level tile store disabled")
		store = nil
	case err != nil:
		l.Fatal("failed to initialize tile store", "error", err)
	default:
		defer func() {
			if err := store.Close(); err != nil {
				l.Error("failed to close tile store", "error", err)
			}
		}()
	}

	hash, err := usecase.HashByName(cfg.Cache.Hash)
	if err != nil {
		l.Fatal("invalid cache hash", "error", err)
	}

	tileCacheUseCase, err := usecase.NewTileCacheUseCase(cfg.Cache.Size, hash, store, cfg.Store.Backend, l)
	if err != nil {
		l.Fatal("failed to initialize tile cache", "error", err)
	}

	tileUseCase := usecase.NewTileUseCase(tileCacheUseCase, cfg.Upstream, l)

	tileLayer, err := layer.New(layer.Config{
		TileSize:         tile.Point{X: cfg.Layer.TileSize, Y: cfg.Layer.TileSize},
		Overlap:          tile.Point{X: cfg.Layer.Overlap, Y: cfg.Layer.Overlap},
		MinLevel:         cfg.Layer.MinLevel,
		MaxLevel:         cfg.Layer.MaxLevel,
		Capacity:         cfg.Cache.Size,
		FetchConcurrency: cfg.Layer.FetchConcurrency,
	}, tileUseCase, l)
	if err != nil {
		l.Fatal("failed to initialize tile layer", "error", err)
	}
	prefetchUseCase := usecase.NewPrefetchUseCase(tileLayer)

	h := handler.NewHandler(validator.New(), tileUseCase, tileCacheUseCase, prefetchUseCase, cfg.Layer.TileSize, cfg.Layer.MaxCoverTiles)
	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled, cfg.Telemetry.ServiceName)

	httpServer := http_server.NewServer(ctx, cfg.HTTP.Server, router)

	go func() {
		l.Info("starting http server...", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	l.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	} else {
		l.Info("http server shutdown completed")
	}

	l.Info("application shutdown completed")
}
