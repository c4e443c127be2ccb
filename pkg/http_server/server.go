package http_server

import (
	"context"
	"net"
	"net/http"

	"github.com/jaennil/guide_helper/tilecache/pkg/config"
)

// NewServer builds the API server. Requests inherit ctx's values, so the
// logger stored with logger.WithLogger is visible to every handler, but not
// its cancellation: Shutdown drains in-flight requests instead.
func NewServer(ctx context.Context, cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
}
