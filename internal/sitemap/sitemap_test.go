package sitemap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/fetcher"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

func testClient(t *testing.T) fetcher.Client {
	t.Helper()
	cfg := config.Default()
	cfg.Fetcher.MaxAttempts = 1
	client := fetcher.NewHTTPClient(cfg, nil, testLogger)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestURLSetOrderAndDedup(t *testing.T) {
	set := NewURLSet()
	for _, u := range []string{"a", "b", "a", "c", "b"} {
		set.Add(u)
	}

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(set.URLs(), want) {
		t.Fatalf("got %v, want %v", set.URLs(), want)
	}
	if set.Len() != 3 {
		t.Errorf("len = %d, want 3", set.Len())
	}
	if got := set.Truncated(2); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("truncated = %v", got)
	}
	if got := set.Truncated(10); len(got) != 3 {
		t.Errorf("oversized truncation = %v", got)
	}
}

func TestIsProductURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://x.com/p/123", true},
		{"https://x.com/produkt/abc", true},
		{"https://x.com/artiklar/foo", true},
		{"https://www.x.com/shop/bar", true},
		{"https://x.com/about", false},
		{"https://other.com/p/123", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		if got := IsProductURL("x.com", tt.url); got != tt.want {
			t.Errorf("IsProductURL(x.com, %q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"lyko.com", "lyko.com"},
		{"https://www.lyko.com/sv/x", "lyko.com"},
		{"WWW.Kicks.SE", "kicks.se"},
		{"kicks.se/varumarken", "kicks.se"},
		{"127.0.0.1:8080", "127.0.0.1:8080"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDomain(tt.in); got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRobotsSitemaps(t *testing.T) {
	body := "User-agent: *\nDisallow: /admin\nSitemap: https://x.com/a.xml\nSITEMAP:   https://x.com/b.xml\nsitemap:\n"
	got := parseRobotsSitemaps(body)
	want := []string{"https://x.com/a.xml", "https://x.com/b.xml"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// TestDiscoverCycleGuard serves a sitemap index that references both
// itself and a leaf urlset. Discovery must terminate and return only
// the product-looking leaf.
func TestDiscoverCycleGuard(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/sitemap.xml</loc></sitemap>
  <sitemap><loc>%s/products.xml</loc></sitemap>
</sitemapindex>`, srv.URL, srv.URL)
	})
	mux.HandleFunc("/products.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/p/123</loc></url>
  <url><loc>%s/about</loc></url>
</urlset>`, srv.URL, srv.URL)
	})

	d := NewDiscoverer(testClient(t), testLogger)
	domain := NormalizeDomain(srv.URL)

	set, err := d.Discover(context.Background(), domain)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	want := []string{srv.URL + "/p/123"}
	if !reflect.DeepEqual(set.URLs(), want) {
		t.Fatalf("got %v, want %v", set.URLs(), want)
	}
}

// TestDiscoverIdempotent runs discovery twice over identical input and
// expects identical output.
func TestDiscoverIdempotent(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/produkt/b</loc></url>
  <url><loc>%s/produkt/a</loc></url>
</urlset>`, srv.URL, srv.URL)
	})

	d := NewDiscoverer(testClient(t), testLogger)
	domain := NormalizeDomain(srv.URL)

	first, err := d.Discover(context.Background(), domain)
	if err != nil {
		t.Fatalf("first discover: %v", err)
	}
	second, err := d.Discover(context.Background(), domain)
	if err != nil {
		t.Fatalf("second discover: %v", err)
	}

	if !reflect.DeepEqual(first.URLs(), second.URLs()) {
		t.Fatalf("runs differ: %v vs %v", first.URLs(), second.URLs())
	}
	if len(first.URLs()) != 2 || first.URLs()[0] != srv.URL+"/produkt/b" {
		t.Fatalf("order not preserved: %v", first.URLs())
	}
}

func TestDiscoverMalformedXMLIsSkipped(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not xml <<<<")
	})

	d := NewDiscoverer(testClient(t), testLogger)
	domain := NormalizeDomain(srv.URL)

	// The root was reachable, it just produced nothing.
	set, err := d.Discover(context.Background(), domain)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %v", set.URLs())
	}
}

func TestDiscoverNoReachableRoot(t *testing.T) {
	d := NewDiscoverer(testClient(t), testLogger)
	_, err := d.Discover(context.Background(), "localhost:1")
	if err == nil {
		t.Fatal("expected an error when no root is reachable")
	}
}
