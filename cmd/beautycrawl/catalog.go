package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skarsvik/beautycrawl/internal/catalog"
	"github.com/skarsvik/beautycrawl/internal/fetcher"
)

var (
	maxBrands    int
	maxPages     int
	noVerify     bool
	catalogOut   string
	brandsOnly   bool
	catalogBase  string
)

// catalogCmd creates the "catalog" subcommand: brand-index driven
// product enumeration for retailers without complete sitemaps.
func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Enumerate a retailer's catalog through its brand index",
		Long: `Walk the configured retailer's brand index page, filter candidate brand
slugs, paginate each brand's listing, and emit (brand_slug, product_url)
pairs as CSV.`,
		RunE: runCatalog,
	}

	cmd.Flags().IntVar(&maxBrands, "max-brands", 0, "max brands to enumerate (0 = config default)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "max listing pages per brand (0 = config default)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip the brand probe and trust index candidates")
	cmd.Flags().BoolVar(&brandsOnly, "brands", false, "list brands only, one slug per line")
	cmd.Flags().StringVarP(&catalogOut, "output", "o", "", "write CSV to file instead of stdout")
	cmd.Flags().StringVar(&catalogBase, "base-url", "", "retailer base URL (overrides config)")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "custom User-Agent string")
	cmd.Flags().IntVar(&hostRate, "host-rate", -1, "max requests per host per minute (-1 = config default)")

	return cmd
}

func runCatalog(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if catalogBase != "" {
		cfg.Catalog.BaseURL = catalogBase
	}
	if noVerify {
		cfg.Catalog.VerifyBrands = false
	}
	if maxBrands == 0 {
		maxBrands = cfg.Catalog.MaxBrands
	}
	if maxPages == 0 {
		maxPages = cfg.Catalog.MaxPagesPerBrand
	}

	ctx, stop := signalContext()
	defer stop()

	limiter := fetcher.NewHostLimiter(cfg.Crawl.HostRatePerMin)
	client := fetcher.NewHTTPClient(cfg, limiter, logger)
	defer client.Close()

	crawler, err := catalog.NewCrawler(client, cfg, logger)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if catalogOut != "" {
		f, err := os.Create(catalogOut)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if brandsOnly {
		brands, err := crawler.ListBrands(ctx, maxBrands)
		if err != nil {
			return err
		}
		for _, b := range brands {
			fmt.Fprintln(out, b.Slug)
		}
		return nil
	}

	entries, err := crawler.ListAllProducts(ctx, maxBrands, maxPages)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"brand_slug", "product_url"}); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := cw.Write([]string{entry.BrandSlug, entry.ProductURL}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
