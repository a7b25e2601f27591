// Package http exposes the city catalog, health probes and metrics over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/city-stats-service/internal/catalog"
	"github.com/couchcryptid/city-stats-service/internal/domain"
)

// Catalog answers dashboard queries.
type Catalog interface {
	sharedobs.ReadinessChecker
	Search(q string, searched bool) catalog.SearchResult
	Get(name string) (domain.City, error)
}

// Options configures the server.
type Options struct {
	Addr              string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSOrigins       []string
	// ShutdownTimeout bounds connection draining in Serve. Zero means 10s.
	ShutdownTimeout time.Duration
}

// Server exposes the catalog API plus /healthz, /readyz and /metrics.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	catalog         Catalog
	logger          *slog.Logger
}

// NewServer builds the router.
func NewServer(opts Options, cat Catalog, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		shutdownTimeout: opts.ShutdownTimeout,
		catalog:         cat,
		logger:          logger,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(cat))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimitRequests, opts.RateLimitWindow))
		}
		r.Get("/cities", s.handleSearch)
		r.Get("/cities/{name}", s.handleGet)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Serve runs the server until ctx is cancelled, then drains connections. It
// implements suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *Server) String() string { return "http-server" }

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	searched := q.Get("searched") == "1" || q.Get("searched") == "true"
	sharedobs.WriteJSON(w, http.StatusOK, s.catalog.Search(q.Get("q"), searched))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	city, err := s.catalog.Get(chi.URLParam(r, "name"))
	if errors.Is(err, catalog.ErrNotFound) {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "City not found"})
		return
	}
	if err != nil {
		s.logger.Error("city lookup failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, city)
}
