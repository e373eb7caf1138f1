package api

import (
	"net"
	"net/http"
	"time"

	"github.com/angelmondragon/bizhub-backend/pkg/config"
)

const readHeaderTimeout = 5 * time.Second

// NewServer wraps handler in an http.Server configured from the app section.
func NewServer(cfg config.AppConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * cfg.WriteTimeout,
	}
}
