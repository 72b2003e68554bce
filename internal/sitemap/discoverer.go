package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/skarsvik/beautycrawl/internal/fetcher"
	"github.com/skarsvik/beautycrawl/internal/types"
)

// productPathPattern matches URL paths that look like product detail
// pages. Swedish path segments are included because the target shops are
// predominantly Swedish.
var productPathPattern = regexp.MustCompile(`(?i)product|/p/|/prod/|/produkt/|/artiklar/|/sku/|/item/|/shop/`)

// Discoverer finds candidate product URLs for a domain by walking its
// sitemaps. Roots come from well-known sitemap locations and from
// Sitemap: directives in robots.txt.
type Discoverer struct {
	client fetcher.Client
	logger *slog.Logger
}

// NewDiscoverer creates a sitemap discoverer using the given fetch client.
func NewDiscoverer(client fetcher.Client, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		client: client,
		logger: logger.With("component", "sitemap"),
	}
}

// sitemapDoc covers both <urlset> and <sitemapindex> documents; only the
// relevant slice is populated for each.
type sitemapDoc struct {
	XMLName  xml.Name
	Sitemaps []sitemapLoc `xml:"sitemap"`
	URLs     []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// Discover walks every sitemap root for the domain and returns the
// product URL candidates in first-seen order. Roots that fail to fetch
// or parse are skipped; the discovery only fails outright when no root
// was reachable at all or the context is cancelled.
func (d *Discoverer) Discover(ctx context.Context, domain string) (*URLSet, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return nil, types.ErrInvalidURL
	}

	roots := d.rootCandidates(ctx, domain)

	set := NewURLSet()
	visited := make(map[string]struct{})
	reachable := 0

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.walk(ctx, root, domain, visited, set) {
			reachable++
		}
	}

	if reachable == 0 {
		return nil, fmt.Errorf("%w: no sitemap root reachable for %s", types.ErrNoSitemap, domain)
	}

	d.logger.Info("sitemap discovery complete",
		"domain", domain,
		"roots", len(roots),
		"reachable", reachable,
		"candidates", set.Len(),
	)
	return set, nil
}

// rootCandidates lists the sitemap roots to try: the well-known
// sitemap.xml locations plus any Sitemap: directives found in robots.txt
// on the bare and www hosts.
func (d *Discoverer) rootCandidates(ctx context.Context, domain string) []string {
	roots := []string{
		"https://" + domain + "/sitemap.xml",
		"https://www." + domain + "/sitemap.xml",
		"http://" + domain + "/sitemap.xml",
	}

	for _, host := range []string{domain, "www." + domain} {
		robotsURL := "https://" + host + "/robots.txt"
		page, err := d.client.Get(ctx, robotsURL)
		if err != nil {
			d.logger.Debug("robots.txt unavailable", "url", robotsURL, "error", err)
			continue
		}
		roots = append(roots, parseRobotsSitemaps(string(page.Body))...)
	}

	// Dedup while keeping order; the same sitemap is often advertised in
	// robots.txt on both hosts.
	seen := make(map[string]struct{}, len(roots))
	out := roots[:0]
	for _, r := range roots {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// parseRobotsSitemaps extracts Sitemap: directive values from a
// robots.txt body. The directive name is matched case-insensitively.
func parseRobotsSitemaps(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < len("sitemap:") {
			continue
		}
		if !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		loc := strings.TrimSpace(line[len("sitemap:"):])
		if loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

// walk fetches one sitemap URL and expands it: index entries recurse,
// urlset entries are filtered through the product heuristic. The visited
// set guards against sitemap indexes that reference themselves or each
// other in a cycle. Returns whether the URL was fetched; malformed XML
// counts as fetched-but-empty, not as an unreachable root.
func (d *Discoverer) walk(ctx context.Context, sitemapURL, domain string, visited map[string]struct{}, set *URLSet) bool {
	if _, ok := visited[sitemapURL]; ok {
		return false
	}
	visited[sitemapURL] = struct{}{}

	if err := ctx.Err(); err != nil {
		return false
	}

	page, err := d.client.Get(ctx, sitemapURL)
	if err != nil {
		d.logger.Debug("sitemap fetch failed", "url", sitemapURL, "error", err)
		return false
	}

	var doc sitemapDoc
	if err := xml.Unmarshal(page.Body, &doc); err != nil {
		d.logger.Debug("sitemap parse failed", "url", sitemapURL, "error", err)
		return true
	}

	for _, child := range doc.Sitemaps {
		loc := strings.TrimSpace(child.Loc)
		if loc == "" {
			continue
		}
		d.walk(ctx, loc, domain, visited, set)
	}

	for _, entry := range doc.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		if IsProductURL(domain, loc) {
			set.Add(loc)
		}
	}

	return true
}

// IsProductURL reports whether a URL belongs to the domain and looks
// like a product detail page.
func IsProductURL(domain, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	want := bareHost(domain)
	if host != want && !strings.HasSuffix(host, "."+want) {
		return false
	}
	return productPathPattern.MatchString(u.Path)
}

// NormalizeDomain reduces user input like "https://www.lyko.com/x" to a
// bare registrable domain "lyko.com". A port is kept so non-standard
// hosts stay reachable.
func NormalizeDomain(input string) string {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			s = u.Host
		}
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	return s
}

// bareHost strips a trailing :port from a domain.
func bareHost(domain string) string {
	if i := strings.LastIndex(domain, ":"); i >= 0 {
		return domain[:i]
	}
	return domain
}
