// Package api exposes studies over HTTP: asymptotic equivalents, exact
// probabilities and Monte Carlo estimates of a scenario.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"actinvoting/internal"
	"actinvoting/internal/asymptotic"
	"actinvoting/internal/batch"
)

const defaultMaxBodyBytes = 1 << 20

// Config wires the server.
type Config struct {
	Runner       *batch.Runner
	Options      []asymptotic.Option // applied to every session
	Seed         uint64              // Monte Carlo seed when the request gives none
	MaxBodyBytes int64
	Logger       *internal.Logger
}

// Server routes the study endpoints.
type Server struct {
	router *chi.Mux
	cfg    Config
	logger *internal.Logger
}

// NewServer builds the router.
func NewServer(cfg Config) *Server {
	if cfg.Runner == nil {
		cfg.Runner = &batch.Runner{Jobs: 1}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{router: chi.NewRouter(), cfg: cfg, logger: logger}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/scenarios", s.handleListScenarios)
		r.Get("/scenarios/{name}", s.handleGetScenario)
		r.Post("/equivalent", s.handleEquivalent)
		r.Post("/exact", s.handleExact)
		r.Post("/montecarlo", s.handleMonteCarlo)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start),
			middleware.GetReqID(r.Context()))
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down within
// ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting actinvoting API server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
