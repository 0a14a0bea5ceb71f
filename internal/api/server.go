// internal/api/server.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"probate-workers/internal/common/config"
	"probate-workers/internal/common/logger"
	"probate-workers/internal/models"
	analyzedocument "probate-workers/internal/workers/asset-discovery/analyze-document"
	discovercaseassets "probate-workers/internal/workers/asset-discovery/discover-case-assets"
	searchcaseassets "probate-workers/internal/workers/asset-discovery/search-case-assets"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type DocumentAnalyzer interface {
	Execute(ctx context.Context, input *analyzedocument.Input) (*analyzedocument.Output, error)
}

type Discovery interface {
	Execute(ctx context.Context, input *discovercaseassets.Input) (*discovercaseassets.Output, error)
	Latest(ctx context.Context, caseID string) (*discovercaseassets.Output, error)
}

type CaseReader interface {
	Summary(ctx context.Context, caseID string) (*models.Case, error)
}

type AssetSearcher interface {
	Execute(ctx context.Context, input *searchcaseassets.Input) (*searchcaseassets.Output, error)
}

// Dependencies are the worker handlers the API calls synchronously. Any of
// them may be nil, in which case its routes answer 503.
type Dependencies struct {
	Analyzer  DocumentAnalyzer
	Discovery Discovery
	Cases     CaseReader
	Search    AssetSearcher

	// Checks are run by /ready, keyed by component name.
	Checks map[string]func(context.Context) error
}

type Server struct {
	config  config.ServerConfig
	deps    Dependencies
	limiter *rate.Limiter
	mux     *http.ServeMux
	logger  logger.Logger
}

func NewServer(cfg config.ServerConfig, deps Dependencies, log logger.Logger) *Server {
	s := &Server{
		config:  cfg,
		deps:    deps,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		mux:     http.NewServeMux(),
		logger:  log.WithFields(map[string]interface{}{"component": "api"}),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.route("POST /api/analyze-document", s.handleAnalyzeDocument)
	s.route("POST /api/analyze-tax-return", s.handleAnalyzeDocument)
	s.route("POST /api/cases/{caseId}/asset-discovery", s.handleRunDiscovery)
	s.route("GET /api/cases/{caseId}/assets", s.handleLatestAssets)
	s.route("GET /api/cases/{caseId}", s.handleCase)
	s.route("GET /api/assets/search", s.handleSearch)
	s.route("GET /health", s.handleHealth)
	s.route("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) route(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.rateLimit(s.limitBody(s.mux))
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Millisecond,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{"addr": srv.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped", nil)
	return nil
}
