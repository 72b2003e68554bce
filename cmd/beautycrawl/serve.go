package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/skarsvik/beautycrawl/internal/api"
	"github.com/skarsvik/beautycrawl/internal/catalog"
	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/fetcher"
	"github.com/skarsvik/beautycrawl/internal/observability"
	"github.com/skarsvik/beautycrawl/internal/runner"
	"github.com/skarsvik/beautycrawl/internal/store"
)

var (
	apiPort  int
	memStore bool
)

// serveCmd creates the "serve" subcommand: the long-running API server.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve the REST API: scrape commands (per domain, per URL list, all
configured targets), catalog CSV export, and product/provider queries
over the persisted store.`,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&apiPort, "port", "p", 0, "listen port (0 = config default)")
	cmd.Flags().BoolVar(&memStore, "memory", false, "use an in-memory store instead of MongoDB")
	cmd.Flags().IntVarP(&concurrent, "concurrency", "n", 0, "number of concurrent workers (0 = config default)")
	cmd.Flags().IntVar(&hostRate, "host-rate", -1, "max requests per host per minute (-1 = config default)")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "custom User-Agent string")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort > 0 {
		cfg.API.Port = apiPort
	}

	ctx, stop := signalContext()
	defer stop()

	limiter := fetcher.NewHostLimiter(cfg.Crawl.HostRatePerMin)
	client := fetcher.NewHTTPClient(cfg, limiter, logger)
	defer client.Close()

	var st store.Store
	if memStore {
		st = store.NewMemoryStore()
	} else {
		st, err = store.NewMongoStore(cfg, logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = st.Close(closeCtx)
	}()

	var metrics *observability.Metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
		metricsSrv = metrics.Server(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	run := runner.New(client, cfg, metrics, logger)

	crawler, err := catalog.NewCrawler(client, cfg, logger)
	if err != nil {
		logger.Warn("catalog crawler disabled", "error", err)
		crawler = nil
	}

	server := api.NewServer(cfg, run, crawler, st, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	if metricsSrv != nil {
		go func() {
			logger.Info("metrics exporter listening", "addr", metricsSrv.Addr, "path", cfg.Metrics.Path)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics exporter stopped", "error", err)
			}
		}()
	}

	logger.Info("serving", "port", cfg.API.Port, "version", config.Version)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return err
	}
}
