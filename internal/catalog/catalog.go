package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/fetcher"
	"github.com/skarsvik/beautycrawl/internal/types"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]{2,}$`)

// nonProductMarkers exclude listing-page links that live under a brand
// path but are not products (filter endpoints, image galleries).
var nonProductMarkers = []string{"/filter", "/filtrera", "/bilder", "/image"}

// Crawler enumerates a retailer's catalog through its brand index page.
// Built for retailers whose sitemaps are incomplete, where walking
// /varumarken and paginating each brand's listing is the only way to a
// full product list.
type Crawler struct {
	client  fetcher.Client
	cfg     *config.Catalog
	base    *url.URL
	baseDom string
	logger  *slog.Logger
}

// NewCrawler creates a catalog crawler for the configured retailer.
func NewCrawler(client fetcher.Client, cfg *config.Config, logger *slog.Logger) (*Crawler, error) {
	base, err := url.Parse(strings.TrimRight(cfg.Catalog.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("catalog base URL %q: %w", cfg.Catalog.BaseURL, types.ErrInvalidURL)
	}

	return &Crawler{
		client:  client,
		cfg:     &cfg.Catalog,
		base:    base,
		baseDom: strings.TrimPrefix(strings.ToLower(base.Hostname()), "www."),
		logger:  logger.With("component", "catalog"),
	}, nil
}

// absolute resolves an href against the catalog base URL.
func (c *Crawler) absolute(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return c.base.ResolveReference(ref).String()
}

// isInternal reports whether an href stays on the retailer's domain.
func (c *Crawler) isInternal(href string) bool {
	abs := c.absolute(href)
	if abs == "" {
		return false
	}
	u, err := url.Parse(abs)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == c.baseDom || strings.HasSuffix(host, "."+c.baseDom)
}

// pathSegments splits the path of an absolute URL into non-empty
// segments.
func (c *Crawler) pathSegments(href string) (string, []string) {
	u, err := url.Parse(c.absolute(href))
	if err != nil {
		return "", nil
	}
	path := strings.TrimRight(u.Path, "/")
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return path, segs
}

// ListBrands discovers brand candidates on the brand index page. Every
// internal single-segment link is a candidate; the stoplist and slug
// pattern filter it, and (when enabled) a probe of the brand page
// verifies it links to product sub-paths. maxBrands <= 0 means no cap.
// When verification rejects everything, the unverified candidates are
// returned instead so a markup change on the retailer side degrades
// rather than empties the catalog.
func (c *Crawler) ListBrands(ctx context.Context, maxBrands int) ([]types.BrandCandidate, error) {
	indexURL := c.absolute(c.cfg.BrandIndexPath)
	page, err := c.client.Get(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}

	indexPath := strings.TrimRight(c.cfg.BrandIndexPath, "/")
	seen := make(map[string]struct{})
	var candidates []types.BrandCandidate
	var verified []types.BrandCandidate

	var capReached bool
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if err := ctx.Err(); err != nil {
			return false
		}

		href := sel.AttrOr("href", "")
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		if !c.isInternal(href) {
			return true
		}

		path, segs := c.pathSegments(href)
		if path == "" || path == "/" || path == indexPath {
			return true
		}
		if len(segs) != 1 {
			return true
		}

		slug := segs[0]
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		if inStoplist(slug) || (text != "" && inStoplist(text)) {
			return true
		}
		if !slugPattern.MatchString(slug) {
			return true
		}
		if _, dup := seen[slug]; dup {
			return true
		}
		seen[slug] = struct{}{}

		cand := types.BrandCandidate{Slug: slug, URL: c.absolute("/" + slug)}
		candidates = append(candidates, cand)

		if c.cfg.VerifyBrands && c.looksLikeBrand(ctx, slug) {
			cand.Verified = true
			verified = append(verified, cand)
			if maxBrands > 0 && len(verified) >= maxBrands {
				capReached = true
				return false
			}
		}
		return true
	})

	if err := ctx.Err(); err != nil && !capReached {
		return nil, err
	}

	if !c.cfg.VerifyBrands {
		verified = candidates
	}

	// Defensive fallback: a markup change can make verification reject
	// every candidate. Unverified candidates still paginate to zero
	// products downstream when they are not real brands.
	if len(verified) == 0 {
		c.logger.Warn("brand verification yielded nothing, falling back to unverified candidates",
			"candidates", len(candidates))
		verified = candidates
	}

	if maxBrands > 0 && len(verified) > maxBrands {
		verified = verified[:maxBrands]
	}

	c.logger.Info("brand discovery complete",
		"candidates", len(candidates), "returned", len(verified))
	return verified, nil
}

// looksLikeBrand probes a candidate brand page for at least one internal
// link under /{slug}/... — the shape every real brand listing has.
func (c *Crawler) looksLikeBrand(ctx context.Context, slug string) bool {
	page, err := c.client.Get(ctx, c.absolute("/"+slug))
	if err != nil {
		return false
	}
	doc, err := page.Document()
	if err != nil {
		return false
	}

	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href := sel.AttrOr("href", "")
		if href == "" || !c.isInternal(href) {
			return true
		}
		_, segs := c.pathSegments(href)
		if len(segs) >= 2 && segs[0] == slug {
			found = true
			return false
		}
		return true
	})
	return found
}

// ListBrandProducts paginates a brand's listing pages and collects its
// product URLs, deduplicated and sorted. A page fetch failure means "no
// more pages", not an error; pagination uses the configured page query
// parameter from page 2 on.
func (c *Crawler) ListBrandProducts(ctx context.Context, slug string, maxPages int) ([]string, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	collected := make(map[string]struct{})
	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := c.absolute("/" + slug)
		if pageNum > 1 {
			pageURL = fmt.Sprintf("%s?%s=%d", pageURL, c.cfg.PageParam, pageNum)
		}

		page, err := c.client.Get(ctx, pageURL)
		if err != nil {
			c.logger.Debug("brand page unavailable, stopping pagination",
				"brand", slug, "page", pageNum, "error", err)
			break
		}
		doc, err := page.Document()
		if err != nil {
			break
		}

		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href := sel.AttrOr("href", "")
			if href == "" || !c.isInternal(href) {
				return
			}
			path, segs := c.pathSegments(href)
			if len(segs) < 2 || segs[0] != slug {
				return
			}
			for _, marker := range nonProductMarkers {
				if strings.Contains(path, marker) {
					return
				}
			}
			collected[c.absolute(path)] = struct{}{}
		})
	}

	urls := make([]string, 0, len(collected))
	for u := range collected {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls, nil
}

// ListAllProducts enumerates (brand, product URL) pairs across all
// discovered brands. One bad brand is skipped, never fatal to the
// export.
func (c *Crawler) ListAllProducts(ctx context.Context, maxBrands, maxPagesPerBrand int) ([]types.CatalogEntry, error) {
	brands, err := c.ListBrands(ctx, maxBrands)
	if err != nil {
		return nil, err
	}

	var entries []types.CatalogEntry
	for _, brand := range brands {
		urls, err := c.ListBrandProducts(ctx, brand.Slug, maxPagesPerBrand)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("skipping brand", "brand", brand.Slug, "error", err)
			continue
		}
		for _, u := range urls {
			entries = append(entries, types.CatalogEntry{BrandSlug: brand.Slug, ProductURL: u})
		}
	}

	c.logger.Info("catalog enumeration complete",
		"brands", len(brands), "products", len(entries))
	return entries, nil
}
