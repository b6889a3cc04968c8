package httpserver

import (
	"net/http"
	"time"

	"shelfaudit/internal/platform/config"
)

// New builds an HTTP server with sane defaults for this project. There is no
// write timeout: evaluation requests answer only once the whole period is
// persisted.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
