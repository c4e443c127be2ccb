package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jaennil/guide_helper/tilecache/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/tilecache/internal/usecase"
	"github.com/jaennil/guide_helper/tilecache/pkg/telemetry"
)

const tileSourceHeader = "X-Tile-Source"

// Tile serves a tile image, cache first.
func (h *Handler) Tile(c *gin.Context) {
	l := requestLogger(c)

	idx, ok := h.parseIndex(c)
	if !ok {
		return
	}

	l.Info("tile request", "z", idx.Level, "x", idx.X, "y", idx.Y)

	data, src, err := h.tileUseCase.GetTile(c.Request.Context(), idx)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidTile):
			h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, usecase.ErrTileNotFound):
			h.RespondWithJSON(c, http.StatusNotFound, "tile not found", nil)
		case errors.Is(err, usecase.ErrUpstream):
			l.Error("failed to get tile", "error", err)
			h.RespondWithJSON(c, http.StatusBadGateway, "upstream tile server failed", nil)
		default:
			l.Error("failed to get tile", "error", err)
			c.Error(err)
			h.RespondWithInternalServerError(c)
		}
		return
	}

	telemetry.SpanFromContext(c).SetAttributes(attribute.String("tile.source", string(src)))

	c.Header(tileSourceHeader, string(src))
	c.Data(http.StatusOK, "image/png", data)
}

// CachedTile answers from the cache only and never goes upstream.
func (h *Handler) CachedTile(c *gin.Context) {
	l := requestLogger(c)

	idx, ok := h.parseIndex(c)
	if !ok {
		return
	}

	data, exists, err := h.tileCacheUseCase.GetCachedTile(c.Request.Context(), idx)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidTile) {
			h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		l.Error("cache lookup failed", "error", err)
		h.RespondWithInternalServerError(c)
		return
	}

	if exists {
		l.Info("returned cached tile", "tile", idx.CanonicalKey())
	}

	resp := dto.TileCacheResponse{
		Data:   data,
		Exists: exists,
	}

	h.RespondWithJSON(c, http.StatusOK, "got tile", resp)
}

// StoreTile caches the raw request body as the tile's content.
func (h *Handler) StoreTile(c *gin.Context) {
	l := requestLogger(c)

	idx, ok := h.parseIndex(c)
	if !ok {
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		l.Warn("failed to read body", "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, "failed to read body", nil)
		return
	}

	if len(data) == 0 {
		h.RespondWithJSON(c, http.StatusBadRequest, "empty tile body", nil)
		return
	}

	if err := h.tileCacheUseCase.CacheTile(c.Request.Context(), idx, data); err != nil {
		if errors.Is(err, usecase.ErrInvalidTile) {
			h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		l.Error("failed to cache tile", "error", err)
		h.RespondWithInternalServerError(c)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "tile cached", nil)
}

func (h *Handler) DeleteTile(c *gin.Context) {
	l := requestLogger(c)

	idx, ok := h.parseIndex(c)
	if !ok {
		return
	}

	removed, err := h.tileCacheUseCase.RemoveTile(c.Request.Context(), idx)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidTile) {
			h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		l.Error("failed to remove tile", "error", err)
		h.RespondWithInternalServerError(c)
		return
	}

	if !removed {
		h.RespondWithJSON(c, http.StatusNotFound, "tile not cached", nil)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "tile removed", nil)
}
