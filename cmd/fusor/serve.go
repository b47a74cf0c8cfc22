package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fusorlabs/fusor/internal/api"
	"github.com/fusorlabs/fusor/internal/api/handler"
	"github.com/fusorlabs/fusor/internal/api/job"
	"github.com/fusorlabs/fusor/internal/backtest"
	"github.com/fusorlabs/fusor/internal/config"
	"github.com/fusorlabs/fusor/internal/logger"
	"github.com/fusorlabs/fusor/internal/metrics"
	"github.com/fusorlabs/fusor/internal/sentiment"
	sig "github.com/fusorlabs/fusor/internal/signal"
	"github.com/fusorlabs/fusor/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FUSOR server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
		cfg := config.Defaults()
		return cfg, cfg.Validate()
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	log.Info("starting FUSOR server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	sentimentSource, err := sentiment.NewSource(cfg.Sentiment, log)
	if err != nil {
		return fmt.Errorf("creating sentiment source: %w", err)
	}

	arc, err := archive.New(cfg.Archive)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	var registry *metrics.Registry
	if cfg.Metrics.Enabled {
		registry = metrics.NewRegistry()
	}

	jobStore := job.NewStore(cfg.Server.MaxJobs,
		time.Duration(cfg.Server.JobTTLHours)*time.Hour)

	sim := backtest.New(cfg, log)
	if registry != nil {
		sim.WithRecorder(registry)
	}

	bt := handler.NewBacktestHandler(jobStore, sim,
		sig.NewIndicatorSource(),
		sentimentSource,
		arc, registry, log)

	server := api.NewServer(cfg.Server, bt, jobStore, registry, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down FUSOR server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
