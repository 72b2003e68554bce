package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/fetcher"
	"github.com/skarsvik/beautycrawl/internal/observability"
	"github.com/skarsvik/beautycrawl/internal/runner"
	"github.com/skarsvik/beautycrawl/internal/store"
)

var (
	cfgFile     string
	verbose     bool
	jsonLogs    bool
	pageLimit   int
	concurrent  int
	hostRate    int
	userAgent   string
	saveRecords bool
	domainFlag  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "beautycrawl",
		Short: "beautycrawl — product discovery and extraction for e-commerce sites",
		Long: `beautycrawl discovers and extracts structured product records (name,
price, currency, brand, ingredient list) from e-commerce sites without
per-site code: sitemap/robots traversal, JSON-LD extraction with HTML
fallback, ingredient normalization, and brand-catalog crawling.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(urlsCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand: sitemap-driven extraction
// of one or more domains.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [domain...]",
		Short: "Scrape product records from a domain via its sitemaps",
		Long:  "Discover product URLs through sitemap.xml and robots.txt, then extract a record per page.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScrape,
	}
	addCrawlFlags(cmd)
	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	start := time.Now()
	totalAttempted, totalExtracted, totalCreated := 0, 0, 0

	for _, domain := range args {
		result, err := rt.runner.RunDomain(ctx, domain, pageLimit)
		if err != nil {
			logger.Warn("domain failed", "domain", domain, "error", err)
			continue
		}
		totalAttempted += result.Attempted
		totalExtracted += result.Extracted

		if saveRecords {
			created, err := store.Ingest(ctx, rt.store, result.Records, []string{"scraped", result.Domain})
			if err != nil {
				return fmt.Errorf("persist records: %w", err)
			}
			totalCreated += created
		} else {
			printRecords(result)
		}
	}

	logger.Info("scrape finished",
		"domains", len(args),
		"attempted", totalAttempted,
		"extracted", totalExtracted,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	if saveRecords {
		fmt.Printf("attempted %d, extracted %d, created %d\n", totalAttempted, totalExtracted, totalCreated)
	}
	return nil
}

// urlsCmd creates the "urls" subcommand: extraction of an explicit URL
// list.
func urlsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "urls [url...]",
		Short: "Scrape product records from explicit URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runURLs,
	}
	addCrawlFlags(cmd)
	cmd.Flags().StringVar(&domainFlag, "domain", "", "provider domain (inferred from the first URL when empty)")
	return cmd
}

func runURLs(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	result, err := rt.runner.RunURLs(ctx, domainFlag, args)
	if err != nil {
		return err
	}

	if saveRecords {
		created, err := store.Ingest(ctx, rt.store, result.Records, []string{"scraped", result.Domain})
		if err != nil {
			return fmt.Errorf("persist records: %w", err)
		}
		fmt.Printf("attempted %d, extracted %d, created %d\n", result.Attempted, result.Extracted, created)
		return nil
	}

	printRecords(result)
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("beautycrawl %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Fetcher:\n")
			fmt.Printf("  User Agent:        %s\n", cfg.Fetcher.UserAgent)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Attempts:      %d\n", cfg.Fetcher.MaxAttempts)
			fmt.Printf("  Backoff:           %s base, %s min, %s max\n",
				cfg.Fetcher.BackoffBase, cfg.Fetcher.BackoffMin, cfg.Fetcher.BackoffMax)
			fmt.Printf("\nCrawl:\n")
			fmt.Printf("  Concurrency:       %d\n", cfg.Crawl.Concurrency)
			fmt.Printf("  Host Rate:         %d req/min\n", cfg.Crawl.HostRatePerMin)
			fmt.Printf("  Page Limit:        %d\n", cfg.Crawl.PageLimit)
			fmt.Printf("  Run Timeout:       %s\n", cfg.Crawl.RunTimeout)
			fmt.Printf("  Target Domains:    %d configured\n", len(cfg.Crawl.TargetDomains))
			fmt.Printf("\nCatalog:\n")
			fmt.Printf("  Base URL:          %s\n", cfg.Catalog.BaseURL)
			fmt.Printf("  Brand Index:       %s\n", cfg.Catalog.BrandIndexPath)
			fmt.Printf("  Verify Brands:     %v\n", cfg.Catalog.VerifyBrands)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  URI:               %s\n", cfg.Storage.URI)
			fmt.Printf("  Database:          %s\n", cfg.Storage.Database)
			fmt.Printf("\nAPI:\n")
			fmt.Printf("  Port:              %d\n", cfg.API.Port)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// addCrawlFlags registers the flags shared by scrape and urls.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&pageLimit, "limit", "l", 0, "max pages per domain (0 = config default)")
	cmd.Flags().IntVarP(&concurrent, "concurrency", "n", 0, "number of concurrent workers (0 = config default)")
	cmd.Flags().IntVar(&hostRate, "host-rate", -1, "max requests per host per minute (-1 = config default)")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "custom User-Agent string")
	cmd.Flags().BoolVar(&saveRecords, "save", false, "persist records to the configured store instead of printing them")
}

// loadConfig loads, overrides, and validates configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if concurrent > 0 {
		cfg.Crawl.Concurrency = concurrent
	}
	if hostRate >= 0 {
		cfg.Crawl.HostRatePerMin = hostRate
	}
	if userAgent != "" {
		cfg.Fetcher.UserAgent = userAgent
	}
}

// runtime bundles the pieces every command needs.
type runtime struct {
	client  fetcher.Client
	runner  *runner.Runner
	store   store.Store
	metrics *observability.Metrics
}

func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	limiter := fetcher.NewHostLimiter(cfg.Crawl.HostRatePerMin)
	client := fetcher.NewHTTPClient(cfg, limiter, logger)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &runtime{
		client:  client,
		runner:  runner.New(client, cfg, metrics, logger),
		store:   st,
		metrics: metrics,
	}, nil
}

// openStore connects to MongoDB when saving is requested; otherwise an
// in-memory store keeps commands self-contained.
func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if !saveRecords {
		return store.NewMemoryStore(), nil
	}
	st, err := store.NewMongoStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func (rt *runtime) close(ctx context.Context) {
	_ = rt.client.Close()
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = rt.store.Close(closeCtx)
}

// printRecords writes a run's records to stdout as indented JSON.
func printRecords(result *runner.Result) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// setupLogger creates a structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonLogs {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
