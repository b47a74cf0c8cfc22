// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fusorlabs/fusor/internal/api/handler"
	"github.com/fusorlabs/fusor/internal/api/job"
	"github.com/fusorlabs/fusor/internal/api/middleware"
	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const jobPruneInterval = 10 * time.Minute

// Server is the HTTP front end: it accepts backtest jobs, reports
// their status and serves archived results.
type Server struct {
	httpServer *http.Server
	jobStore   *job.Store
	logger     *zap.Logger
	done       chan struct{}
}

// NewServer wires the handler stack onto a mux and returns the server.
func NewServer(cfg config.ServerConfig, bt *handler.BacktestHandler,
	jobStore *job.Store, registry *metrics.Registry, logger *zap.Logger) *Server {

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/backtests", bt.Create)
	mux.HandleFunc("GET /api/v1/backtests", bt.List)
	mux.HandleFunc("GET /api/v1/backtests/{id}", bt.GetStatus)
	mux.HandleFunc("GET /api/v1/results", bt.ListResults)
	mux.HandleFunc("GET /api/v1/health", handleHealth)

	var apiHandler http.Handler = mux
	apiHandler = middleware.APIKeyAuth(cfg.APIKey)(apiHandler)
	if registry != nil {
		apiHandler = metrics.HTTPMiddleware(registry)(apiHandler)
	}
	apiHandler = metrics.LoggingMiddleware(logger)(apiHandler)

	root := http.NewServeMux()
	root.Handle("/api/", apiHandler)
	// Health and metrics stay outside auth so probes and scrapers work
	root.HandleFunc("/healthz", handleHealth)
	if registry != nil {
		root.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      root,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		jobStore: jobStore,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start starts the HTTP server and the job pruning loop. It blocks
// until the server stops.
func (s *Server) Start() error {
	go s.pruneLoop()

	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	close(s.done)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) pruneLoop() {
	ticker := time.NewTicker(jobPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.jobStore.PruneExpired(); n > 0 {
				s.logger.Debug("pruned expired jobs", zap.Int("count", n))
			}
		}
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
