package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaennil/guide_helper/tilecache/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/tilecache/internal/tile"
)

func (h *Handler) CacheStats(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusOK, "cache stats", h.tileCacheUseCase.Stats())
}

// CacheKeys lists cached hashes from least to most recently used.
func (h *Handler) CacheKeys(c *gin.Context) {
	keys := h.tileCacheUseCase.Keys()

	resp := dto.CacheKeysResponse{Keys: keys, Tiles: make([]tile.Index, 0, len(keys))}
	for _, k := range keys {
		if idx, err := tile.ParseCanonicalKey(k); err == nil {
			resp.Tiles = append(resp.Tiles, idx)
		}
	}

	h.RespondWithJSON(c, http.StatusOK, "cache keys", resp)
}

func (h *Handler) SetCapacity(c *gin.Context) {
	l := requestLogger(c)

	var req dto.CapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	evicted, err := h.tileCacheUseCase.Resize(*req.Capacity)
	if err != nil {
		l.Error("failed to resize cache", "error", err)
		h.RespondWithJSON(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "capacity updated", dto.CapacityResponse{
		Capacity: *req.Capacity,
		Evicted:  evicted,
	})
}

func (h *Handler) ClearCache(c *gin.Context) {
	h.tileCacheUseCase.Clear()
	h.RespondWithJSON(c, http.StatusOK, "cache cleared", nil)
}
