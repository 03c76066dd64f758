// Package server exposes the filtered directory listing service over HTTP:
// POST /subfolder_loader/refresh for listings, GET /view for raw image bytes,
// GET /metrics for instrumentation.
package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/cache"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/index"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/logging"
)

// Server holds the listing service dependencies. The cache may be nil-ish
// disabled via cacheEnabled; behavior must not change either way.
type Server struct {
	root         string
	index        *index.Index
	cache        *cache.ListingCache
	cacheEnabled bool
	log          *logging.Logger
	metrics      *metrics
}

// Option tweaks a Server at construction time.
type Option func(*Server)

// WithCache enables listing memoization with the given TTL (0 = no expiry).
func WithCache(ttl time.Duration) Option {
	return func(s *Server) {
		s.cache = cache.New(ttl)
		s.cacheEnabled = true
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a Server over a root already resolved by pathutil.ResolveRoot.
func New(root string, opts ...Option) *Server {
	s := &Server{
		root:    root,
		index:   index.New(root),
		log:     logging.NewDefaultLogger(),
		metrics: newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// A cache instance is kept even when disabled so the watcher always has
	// something to invalidate; disabled means the handlers skip it.
	if s.cache == nil {
		s.cache = cache.New(0)
	}
	return s
}

// Cache returns the listing cache for invalidation hooks (watcher, tests).
func (s *Server) Cache() *cache.ListingCache {
	return s.cache
}

// Routes returns the HTTP handler with all endpoints registered.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/subfolder_loader/refresh", s.withRecovery(s.handleRefresh))
	mux.HandleFunc("/view", s.withRecovery(s.handleView))
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Routes(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info().Str("addr", addr).Str("root", s.root).Msg("listing service started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// withRecovery keeps a panicking handler from taking the process down. The
// refresh contract says failures never escape the boundary unstructured.
func (s *Server) withRecovery(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error().Interface("panic", err).Bytes("stack", debug.Stack()).Msg("handler panic")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}
