package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/pkg/config"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
	"github.com/jaennil/guide_helper/tilecache/pkg/metrics"
)

var (
	ErrInvalidTile  = errors.New("tile index outside the pyramid")
	ErrTileNotFound = errors.New("tile not found upstream")
	ErrUpstream     = errors.New("upstream tile server error")
)

type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// TileUseCase serves tiles cache-first and falls back to the upstream
// tile server.
type TileUseCase struct {
	cache           *TileCacheUseCase
	upstreamTileURL string
	userAgent       string
	httpClient      *http.Client
	tracer          trace.Tracer
	logger          logger.Logger
}

func NewTileUseCase(c *TileCacheUseCase, cfg config.Upstream, l logger.Logger) *TileUseCase {
	return &TileUseCase{
		cache:           c,
		upstreamTileURL: cfg.TileServerURL,
		userAgent:       cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tracer: otel.Tracer("tilecache/usecase"),
		logger: l,
	}
}

func (uc *TileUseCase) GetTile(ctx context.Context, idx tile.Index) ([]byte, Source, error) {
	if !idx.Valid() {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidTile, idx)
	}

	data, ok, err := uc.cache.GetCachedTile(ctx, idx)
	if err != nil {
		uc.logger.Warn("failed to check cache, will fetch from upstream", "error", err)
	} else if ok {
		return data, SourceCache, nil
	}

	data, err = uc.fetchUpstream(ctx, idx)
	if err != nil {
		return nil, "", err
	}

	if err := uc.cache.CacheTile(ctx, idx, data); err != nil {
		uc.logger.Warn("failed to store tile in cache", "error", err)
	}

	return data, SourceNetwork, nil
}

// Fetch lets a layer pull tiles through the cache.
func (uc *TileUseCase) Fetch(ctx context.Context, k tile.Key) ([]byte, error) {
	data, _, err := uc.GetTile(ctx, k.Index)
	return data, err
}

func (uc *TileUseCase) fetchUpstream(ctx context.Context, idx tile.Index) ([]byte, error) {
	ctx, span := uc.tracer.Start(ctx, "upstream.fetch", trace.WithAttributes(
		attribute.Int("tile.z", idx.Level),
		attribute.Int("tile.x", idx.X),
		attribute.Int("tile.y", idx.Y),
	))
	defer span.End()

	upstreamURL := fmt.Sprintf("%s/%d/%d/%d.png", uc.upstreamTileURL, idx.Level, idx.X, idx.Y)
	uc.logger.Info("fetching from upstream", "url", upstreamURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL, nil)
	if err != nil {
		uc.logger.Error("failed to create request", "error", err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// OpenStreetMap tile usage policy requires an identifying User-Agent
	req.Header.Set("User-Agent", uc.userAgent)

	metrics.UpstreamRequests.Inc()
	start := time.Now()
	resp, err := uc.httpClient.Do(req)
	metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		uc.logger.Error("failed to fetch from upstream", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrTileNotFound, idx)
	case resp.StatusCode != http.StatusOK:
		span.SetStatus(codes.Error, "unexpected status")
		uc.logger.Error("upstream returned non-200", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		uc.logger.Error("failed to read tile data", "error", err)
		return nil, fmt.Errorf("failed to read tile data: %w", err)
	}

	uc.logger.Info("fetched tile from upstream", "size", len(data))

	return data, nil
}
