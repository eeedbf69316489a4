package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ligastats/ligastats/internal/pipeline"
	"github.com/ligastats/ligastats/internal/pkg/config"
	"github.com/ligastats/ligastats/internal/pkg/jobs"
	"github.com/ligastats/ligastats/internal/pkg/storage"
)

// Server exposes the scraping, catalog and analysis endpoints.
type Server struct {
	cfg    *config.Config
	store  storage.Store
	runner *pipeline.Runner
	jobs   *jobs.Manager
	http   *http.Server

	// baseCtx parents background job runs so shutdown cancels them.
	baseCtx context.Context
}

func NewServer(ctx context.Context, cfg *config.Config, store storage.Store, runner *pipeline.Runner) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		runner:  runner,
		jobs:    jobs.NewManager(),
		baseCtx: ctx,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /scraping/league", s.handleScrapeLeague)
	mux.HandleFunc("POST /scraping/match", s.handleScrapeMatch)
	mux.HandleFunc("GET /scraping/status/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /scraping/jobs", s.handleJobList)
	mux.HandleFunc("DELETE /scraping/jobs", s.handleJobClear)

	mux.HandleFunc("GET /catalog/countries", s.handleCountries)
	mux.HandleFunc("GET /catalog/leagues", s.handleLeagues)
	mux.HandleFunc("GET /catalog/seasons", s.handleSeasons)
	mux.HandleFunc("GET /catalog/phases", s.handlePhases)
	mux.HandleFunc("GET /catalog/teams", s.handleTeams)

	mux.HandleFunc("POST /analysis/poisson", s.handlePoisson)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	return s
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown failed: %w", err)
	}
	slog.Info("API server stopped")
	return nil
}
