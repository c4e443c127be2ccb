package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaennil/guide_helper/tilecache/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/tilecache/internal/layer"
	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/internal/usecase"
)

// Cover lists the tiles intersecting a viewport, up to maxCoverTiles.
func (h *Handler) Cover(c *gin.Context) {
	var req dto.CoverRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, "invalid query", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	size := req.Size
	if size == 0 {
		size = h.tileSize
	}
	pt := tile.Point{X: size, Y: size}

	resp := dto.CoverResponse{Keys: []string{}, Quadkeys: []string{}, Tiles: []dto.MapTile{}}

	r, ok := tile.Cover(req.Bounds(), req.Level, pt)
	if ok {
		if n := r.Len(); n > h.maxCoverTiles {
			h.RespondWithJSON(c, http.StatusBadRequest,
				fmt.Sprintf("viewport covers %d tiles, limit is %d", n, h.maxCoverTiles), nil)
			return
		}

		resp.Range = r
		for _, idx := range r.Indexes() {
			resp.Keys = append(resp.Keys, idx.CanonicalKey())
			resp.Quadkeys = append(resp.Quadkeys, idx.Quadkey())
			if mt, ok := idx.MapTile(); ok {
				resp.Tiles = append(resp.Tiles, dto.NewMapTile(mt))
			}
		}
	}

	h.RespondWithJSON(c, http.StatusOK, "cover computed", resp)
}

// Prefetch warms the cache with every tile covering a viewport.
func (h *Handler) Prefetch(c *gin.Context) {
	l := requestLogger(c)

	var req dto.PrefetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	res, err := h.prefetchUseCase.Prefetch(c.Request.Context(), req.Viewport.Bounds(), *req.Level)
	if err != nil {
		switch {
		case errors.Is(err, layer.ErrLevelOutOfRange), errors.Is(err, usecase.ErrViewportTooLarge):
			h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			l.Warn("prefetch interrupted", "error", err)
			h.RespondWithJSON(c, http.StatusServiceUnavailable, "prefetch interrupted", res)
		default:
			l.Error("prefetch failed", "error", err)
			h.RespondWithInternalServerError(c)
		}
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "prefetch complete", res)
}
