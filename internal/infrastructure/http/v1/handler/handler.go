package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jaennil/guide_helper/tilecache/internal/tile"
	"github.com/jaennil/guide_helper/tilecache/internal/usecase"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
)

const (
	internalServerErrorText = "the server encountered an error and could not process your request"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type Handler struct {
	validate         *validator.Validate
	tileUseCase      *usecase.TileUseCase
	tileCacheUseCase *usecase.TileCacheUseCase
	prefetchUseCase  *usecase.PrefetchUseCase
	tileSize         int
	maxCoverTiles    int
}

func NewHandler(
	v *validator.Validate,
	tileUC *usecase.TileUseCase,
	cacheUC *usecase.TileCacheUseCase,
	prefetchUC *usecase.PrefetchUseCase,
	tileSize int,
	maxCoverTiles int,
) *Handler {
	return &Handler{
		validate:         v,
		tileUseCase:      tileUC,
		tileCacheUseCase: cacheUC,
		prefetchUseCase:  prefetchUC,
		tileSize:         tileSize,
		maxCoverTiles:    maxCoverTiles,
	}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusInternalServerError, internalServerErrorText, nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	success := code < 400

	r := response{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, r)
}

// requestLogger returns the logger the logging middleware attached.
func requestLogger(c *gin.Context) logger.Logger {
	if l, ok := c.Get("logger"); ok {
		if l, ok := l.(logger.Logger); ok {
			return l
		}
	}
	return logger.FromContext(c.Request.Context())
}

// parseIndex reads the :z/:x/:y path parameters and rejects indexes
// outside the pyramid. On failure it has already written a 400 response.
func (h *Handler) parseIndex(c *gin.Context) (tile.Index, bool) {
	l := requestLogger(c)

	var (
		vals  [3]int
		names = [3]string{"z", "x", "y"}
	)
	for i, name := range names {
		raw := c.Param(name)
		v, err := strconv.Atoi(raw)
		if err != nil {
			l.Warn("invalid "+name+" parameter", name, raw, "error", err)
			h.RespondWithJSON(c, http.StatusBadRequest, name+" should be integer", nil)
			return tile.Index{}, false
		}
		vals[i] = v
	}

	idx := tile.Index{Level: vals[0], X: vals[1], Y: vals[2]}
	if !idx.Valid() {
		l.Warn("tile index outside the pyramid", "tile", idx.CanonicalKey())
		h.RespondWithJSON(c, http.StatusBadRequest, usecase.ErrInvalidTile.Error(), nil)
		return tile.Index{}, false
	}

	return idx, true
}
