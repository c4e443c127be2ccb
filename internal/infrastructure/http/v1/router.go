package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaennil/guide_helper/tilecache/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/tilecache/pkg/logger"
	"github.com/jaennil/guide_helper/tilecache/pkg/telemetry"
)

const requestIDHeader = "X-Request-ID"

func NewRouter(h *handler.Handler, l logger.Logger, telemetryEnabled bool, serviceName string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	if telemetryEnabled {
		r.Use(telemetry.GinMiddleware(serviceName))
	}

	r.Use(ginZapLogger(l))

	api := r.Group("/api")
	v1 := api.Group("/v1")

	v1.GET("/healthz", h.Healthz)

	v1.GET("/tile/:z/:x/:y", h.Tile)
	v1.POST("/tile/:z/:x/:y", h.StoreTile)
	v1.DELETE("/tile/:z/:x/:y", h.DeleteTile)

	v1.GET("/cache/tile/:z/:x/:y", h.CachedTile)
	v1.GET("/cache/stats", h.CacheStats)
	v1.GET("/cache/keys", h.CacheKeys)
	v1.PUT("/cache/capacity", h.SetCapacity)
	v1.DELETE("/cache", h.ClearCache)

	v1.GET("/cover", h.Cover)
	v1.POST("/prefetch", h.Prefetch)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// ginZapLogger tags each request with an id and logs it once it completes.
// Handlers pick the logger up with c.Get("logger").
func ginZapLogger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Set("request_id", requestID)

		c.Set("logger", l)
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), l))

		start := time.Now()

		c.Next()

		latency := time.Since(start)

		l.Info("request",
			"request_id", requestID,
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}
