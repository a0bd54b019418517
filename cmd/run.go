package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feedsmith/feedxml-mx/internal/api"
	"github.com/feedsmith/feedxml-mx/internal/clock/system"
	"github.com/feedsmith/feedxml-mx/internal/config"
	"github.com/feedsmith/feedxml-mx/internal/feed"
	"github.com/feedsmith/feedxml-mx/internal/hash/sha256"
	"github.com/feedsmith/feedxml-mx/internal/id/uuid"
	"github.com/feedsmith/feedxml-mx/internal/logging"
	"github.com/feedsmith/feedxml-mx/internal/pipeline"
	"github.com/feedsmith/feedxml-mx/internal/progress"
	"github.com/feedsmith/feedxml-mx/internal/progress/sinks"
	"github.com/feedsmith/feedxml-mx/internal/scrape"
)

// newRunCmd creates the 'run' subcommand, which executes one full feed run.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch the upstream feed and emit the platform feeds",
		Long: `Fetches the upstream XML product feed, optionally enriches each product
from its detail page, and writes feed_google.xml, feed_facebook.xml and
metadata.json into the output directory. A failed upstream fetch or parse
aborts the run before any output file is written.`,
		RunE: runCommand,
	}
}

func runCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	snapshot := sinks.NewSnapshotSink()
	hub, err := buildHub(logger, registry, snapshot)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if herr := hub.Close(closeCtx); herr != nil {
			logger.Warn("progress hub close failed", zap.Error(herr))
		}
	}()

	if cfg.Server.Enabled {
		stopServer := startStatusServer(cfg.Server.Port, snapshot, registry, logger)
		defer stopServer()
	}

	p, cleanup, err := buildPipeline(cfg, hub, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run pipeline: %w", err)
	}
	return nil
}

func buildHub(logger *zap.Logger, registry *prometheus.Registry, snapshot *sinks.SnapshotSink) (*progress.Hub, error) {
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	return progress.NewHub(
		progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		promSink,
		snapshot,
	), nil
}

func buildPipeline(cfg config.Config, hub *progress.Hub, logger *zap.Logger) (*pipeline.Pipeline, func(), error) {
	writer, err := pipeline.NewWriter(cfg.Output.Dir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init output writer: %w", err)
	}

	enricher, cleanup, err := buildEnricher(cfg, hub, logger)
	if err != nil {
		return nil, nil, err
	}

	fetcher := feed.NewCollyFetcher(cfg.Feed.UserAgent, cfg.Feed.RequestTimeout, logger)
	p := pipeline.New(
		fetcher,
		enricher,
		writer,
		system.New(),
		sha256.New(),
		uuid.NewUUIDGenerator(),
		hub,
		pipeline.Config{
			FeedURL:         cfg.Feed.URL,
			ScrapingEnabled: cfg.Scrape.Enabled,
		},
		logger,
	)
	return p, cleanup, nil
}

func buildEnricher(cfg config.Config, hub *progress.Hub, logger *zap.Logger) (pipeline.Enricher, func(), error) {
	cleanup := func() {}
	if !cfg.Scrape.Enabled {
		return nil, cleanup, nil
	}

	renderer, err := buildRenderer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if renderer != nil {
		cleanup = func() {
			if cerr := renderer.Close(context.Background()); cerr != nil {
				logger.Warn("renderer close failed", zap.Error(cerr))
			}
		}
	}

	pageFetcher := scrape.NewCollyPageFetcher(cfg.Feed.UserAgent, cfg.Scrape.RequestTimeout, logger)
	detector := scrape.NewMarkerDetector(cfg.Detector.MinHTMLBytes, cfg.Detector.RequiredMarkers)
	scraper := scrape.New(
		pageFetcher,
		detector,
		renderer,
		system.New(),
		hub,
		scrape.Config{
			MaxConcurrency: cfg.Scrape.MaxConcurrency,
			OriginRPS:      cfg.Scrape.OriginRPS,
		},
		logger,
	)
	return scraper, cleanup, nil
}

func buildRenderer(cfg config.Config, logger *zap.Logger) (scrape.Renderer, error) {
	if !cfg.Render.Enabled || cfg.Render.MaxConcurrency <= 0 {
		return nil, nil
	}
	renderer, err := scrape.NewChromedpRenderer(scrape.RendererConfig{
		UserAgent:      cfg.Feed.UserAgent,
		Timeout:        cfg.Render.Timeout,
		MaxConcurrency: cfg.Render.MaxConcurrency,
	}, logger)
	switch {
	case err == nil:
		return renderer, nil
	case errors.Is(err, scrape.ErrRendererDisabled):
		logger.Warn("renderer disabled despite feature flag; continuing without JS rendering")
		return nil, nil
	default:
		return nil, fmt.Errorf("init renderer: %w", err)
	}
}

func startStatusServer(port int, snapshot *sinks.SnapshotSink, registry *prometheus.Registry, logger *zap.Logger) func() {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewServer(snapshot, registry, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("status server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("status server stopped", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}
}
