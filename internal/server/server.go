// Package server exposes the latest correlation report over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// RunFunc performs one correlation run
type RunFunc func(ctx context.Context) (*models.Report, error)

// Server serves the most recent report and re-runs correlation on demand
type Server struct {
	run    RunFunc
	topN   int
	logger *zap.Logger

	refreshMu sync.Mutex // one run at a time

	mu      sync.RWMutex
	report  *models.Report
	lastErr error
}

// New creates a server. topN is the default ranking length for /api/ranking.
func New(run RunFunc, topN int) *Server {
	return &Server{
		run:    run,
		topN:   topN,
		logger: logging.L("server"),
	}
}

// Refresh runs a correlation and replaces the served report on success.
// A failed run keeps the previous report.
func (s *Server) Refresh(ctx context.Context) (*models.Report, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	report, err := s.run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		s.logger.Warn("correlation run failed", zap.Error(err))
		return nil, err
	}
	s.report = report
	s.logger.Info("correlation run complete",
		zap.String(logging.KeyRunID, report.RunID),
		zap.Int("devices", len(report.Results)),
		zap.Int("advisories", report.AdvisoryCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// Report returns the report currently served, or nil before the first successful run
func (s *Server) Report() *models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	api.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)
	api.HandleFunc("/ranking", s.handleRanking).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/severity-counts", s.handleSeverityCounts).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
