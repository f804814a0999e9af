package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datahaven/aclfs/internal/logger"
	"github.com/datahaven/aclfs/internal/ratelimiter"
	"github.com/datahaven/aclfs/pkg/acl"
	"github.com/datahaven/aclfs/pkg/datasite"
	"github.com/datahaven/aclfs/pkg/feed"
	"github.com/datahaven/aclfs/pkg/metrics"
)

// Config carries the HTTP server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// RateLimit is the sustained API request rate per second. Zero
	// disables limiting.
	RateLimit uint

	// RateBurst is the token bucket capacity.
	RateBurst uint
}

// Server serves the query and mutation API over HTTP.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// New assembles the server: routes, rate limiting and the metrics
// endpoint (registered only when the metrics registry is initialized).
func New(cfg Config, service *acl.Service, lister *datasite.Lister, hub *feed.Hub) *Server {
	h := &handlers{
		service: service,
		lister:  lister,
		hub:     hub,
	}

	limiter := ratelimiter.New(cfg.RateLimit, cfg.RateBurst)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/permissions", h.getPermissions)
	api.HandleFunc("POST /api/v1/permissions", h.postPermissions)
	api.HandleFunc("GET /api/v1/files", h.getFiles)
	api.HandleFunc("GET /api/v1/events", h.getEvents)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", limiter.Middleware(api))
	mux.HandleFunc("GET /healthz", h.healthz)
	if registry := metrics.GetRegistry(); registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Handler returns the server's root handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve listens and serves until the context is cancelled, then drains
// in-flight requests within the shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown incomplete: %v", err)
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
