package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/extract"
	"github.com/skarsvik/beautycrawl/internal/fetcher"
	"github.com/skarsvik/beautycrawl/internal/observability"
	"github.com/skarsvik/beautycrawl/internal/sitemap"
	"github.com/skarsvik/beautycrawl/internal/types"
)

// Result aggregates one run: every record extracted plus how many URLs
// were attempted. Partial failures never fail a run; they only show up
// as attempted > extracted.
type Result struct {
	Domain    string                 `json:"domain"`
	Attempted int                    `json:"attempted"`
	Extracted int                    `json:"extracted"`
	Records   []*types.ProductRecord `json:"records"`
	Duration  time.Duration          `json:"duration"`
}

// Runner orchestrates crawl runs: it resolves URLs (via sitemap
// discovery or an explicit list), drives a bounded worker pool over
// them, and collects extracted records in input order.
type Runner struct {
	client     fetcher.Client
	discoverer *sitemap.Discoverer
	extractor  *extract.Extractor
	cfg        *config.Config
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates a Runner. Metrics may be nil.
func New(client fetcher.Client, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	return &Runner{
		client:     client,
		discoverer: sitemap.NewDiscoverer(client, logger),
		extractor:  extract.New(logger),
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger.With("component", "runner"),
	}
}

// RunDomain discovers product URLs for a domain through its sitemaps,
// caps them to the page limit, and extracts each one. A limit <= 0
// falls back to the configured page limit.
func (r *Runner) RunDomain(ctx context.Context, domain string, limit int) (*Result, error) {
	domain = sitemap.NormalizeDomain(domain)
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", types.ErrInvalidURL)
	}
	if limit <= 0 {
		limit = r.cfg.Crawl.PageLimit
	}

	start := time.Now()
	set, err := r.discoverer.Discover(ctx, domain)
	if err != nil {
		r.countRun("domain", "error")
		return nil, err
	}

	urls := set.Truncated(limit)
	result, err := r.scrape(ctx, domain, urls)
	if err != nil {
		r.countRun("domain", "error")
		return nil, err
	}
	result.Duration = time.Since(start)
	r.observeRun("domain", result.Duration)
	r.countRun("domain", "ok")
	return result, nil
}

// RunURLs extracts an explicit URL list. The provider domain is
// inferred from the first URL when not given. An empty list is the one
// configuration error that fails the run outright.
func (r *Runner) RunURLs(ctx context.Context, domain string, urls []string) (*Result, error) {
	if len(urls) == 0 {
		return nil, types.ErrNoURLs
	}
	if domain == "" {
		domain = sitemap.NormalizeDomain(urls[0])
	}

	start := time.Now()
	result, err := r.scrape(ctx, domain, urls)
	if err != nil {
		r.countRun("urls", "error")
		return nil, err
	}
	result.Duration = time.Since(start)
	r.observeRun("urls", result.Duration)
	r.countRun("urls", "ok")
	return result, nil
}

type job struct {
	index int
	url   string
}

// scrape drives the worker pool: workers pull URLs from a queue, fetch
// and extract them, and write records into a per-index slot so output
// order matches input order. A per-URL failure is logged and skipped.
func (r *Runner) scrape(ctx context.Context, domain string, urls []string) (*Result, error) {
	if r.cfg.Crawl.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Crawl.RunTimeout)
		defer cancel()
	}

	workers := r.cfg.Crawl.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	slots := make([]*types.ProductRecord, len(urls))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				slots[j.index] = r.scrapeOne(ctx, domain, j.url)
			}
		}()
	}

	attempted := 0
feed:
	for i, u := range urls {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{index: i, url: u}:
			attempted++
		}
	}
	close(jobs)
	wg.Wait()

	records := make([]*types.ProductRecord, 0, len(urls))
	for _, rec := range slots {
		if rec != nil {
			records = append(records, rec)
		}
	}

	result := &Result{
		Domain:    domain,
		Attempted: attempted,
		Extracted: len(records),
		Records:   records,
	}
	r.logger.Info("run complete",
		"domain", domain,
		"attempted", result.Attempted,
		"extracted", result.Extracted,
	)
	return result, nil
}

// scrapeOne fetches and extracts a single URL. Every failure is
// isolated here: the caller only sees a nil record.
func (r *Runner) scrapeOne(ctx context.Context, domain, rawURL string) *types.ProductRecord {
	if err := config.ValidateURL(rawURL); err != nil {
		r.logger.Debug("skipping invalid URL", "url", rawURL, "error", err)
		return nil
	}

	if r.metrics != nil {
		r.metrics.WorkersBusy.Inc()
		defer r.metrics.WorkersBusy.Dec()
	}

	page, err := r.client.Get(ctx, rawURL)
	if err != nil {
		if r.metrics != nil {
			r.metrics.FetchesTotal.WithLabelValues("error").Inc()
		}
		r.logger.Debug("fetch failed, skipping URL", "url", rawURL, "error", err)
		return nil
	}
	if r.metrics != nil {
		r.metrics.FetchesTotal.WithLabelValues("ok").Inc()
		r.metrics.FetchDuration.Observe(page.FetchDuration.Seconds())
	}

	rec := r.extractor.Extract(page, domain)
	if rec != nil && r.metrics != nil {
		r.metrics.ExtractedTotal.Inc()
	}
	return rec
}

func (r *Runner) countRun(mode, status string) {
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(mode, status).Inc()
	}
}

func (r *Runner) observeRun(mode string, d time.Duration) {
	if r.metrics != nil {
		r.metrics.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
	}
}
