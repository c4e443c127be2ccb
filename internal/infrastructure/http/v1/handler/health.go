package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Store   string `json:"store"`
	Entries int    `json:"entries"`
}

// Healthz reports liveness along with the cache's current fill.
func (h *Handler) Healthz(c *gin.Context) {
	stats := h.tileCacheUseCase.Stats()
	h.RespondWithJSON(c, http.StatusOK, "ok", healthResponse{
		Store:   stats.Store,
		Entries: stats.Length,
	})
}
