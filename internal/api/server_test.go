package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skarsvik/beautycrawl/internal/catalog"
	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/fetcher"
	"github.com/skarsvik/beautycrawl/internal/runner"
	"github.com/skarsvik/beautycrawl/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

// newTestStack serves a fake shop and wires a full API server against
// it with an in-memory store.
func newTestStack(t *testing.T) (shop *httptest.Server, srv *Server) {
	t.Helper()

	mux := http.NewServeMux()
	shop = httptest.NewServer(mux)
	t.Cleanup(shop.Close)

	mux.HandleFunc("/p/serum", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<script type="application/ld+json">{"@type":"Product","name":"Serum","brand":{"name":"ACO"},"offers":{"price":"249","priceCurrency":"SEK"}}</script>`)
	})
	mux.HandleFunc("/varumarken", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/aco">ACO</a>`)
	})
	mux.HandleFunc("/aco", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/aco/serum-1">Serum</a>`)
	})

	cfg := config.Default()
	cfg.Fetcher.MaxAttempts = 1
	cfg.Crawl.Concurrency = 2
	cfg.Crawl.HostRatePerMin = 0
	cfg.Crawl.RunTimeout = 30 * time.Second
	cfg.Catalog.BaseURL = shop.URL
	cfg.Catalog.MaxPagesPerBrand = 1

	client := fetcher.NewHTTPClient(cfg, nil, testLogger)
	t.Cleanup(func() { client.Close() })

	run := runner.New(client, cfg, nil, testLogger)
	crawler, err := catalog.NewCrawler(client, cfg, testLogger)
	require.NoError(t, err)

	srv = NewServer(cfg, run, crawler, store.NewMemoryStore(), testLogger)
	return shop, srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, srv := newTestStack(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestScrapeURLsCreatesOnce(t *testing.T) {
	shop, srv := newTestStack(t)

	payload := fmt.Sprintf(`{"urls":[%q]}`, shop.URL+"/p/serum")

	rec := doJSON(t, srv, http.MethodPost, "/api/scrape/urls", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Attempted int `json:"attempted"`
		Extracted int `json:"extracted"`
		Created   int `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Attempted)
	assert.Equal(t, 1, resp.Extracted)
	assert.Equal(t, 1, resp.Created)

	// Scraping the same URL again extracts but creates nothing.
	rec = doJSON(t, srv, http.MethodPost, "/api/scrape/urls", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Extracted)
	assert.Equal(t, 0, resp.Created)
}

func TestScrapeURLsEmptyListIsBadRequest(t *testing.T) {
	_, srv := newTestStack(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/scrape/urls", `{"urls":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScrapeDomainValidation(t *testing.T) {
	_, srv := newTestStack(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/scrape/domain", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/scrape/domain", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProductsAfterScrape(t *testing.T) {
	shop, srv := newTestStack(t)

	payload := fmt.Sprintf(`{"urls":[%q]}`, shop.URL+"/p/serum")
	rec := doJSON(t, srv, http.MethodPost, "/api/scrape/urls", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/products?q=serum", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Serum", products[0]["name"])
	assert.Equal(t, "ACO", products[0]["provider_name"])

	rec = doJSON(t, srv, http.MethodGet, "/api/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var providers []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &providers))
	require.Len(t, providers, 1)
	assert.Equal(t, "ACO", providers[0]["name"])
}

func TestListProductsNegativePagination(t *testing.T) {
	shop, srv := newTestStack(t)

	payload := fmt.Sprintf(`{"urls":[%q]}`, shop.URL+"/p/serum")
	rec := doJSON(t, srv, http.MethodPost, "/api/scrape/urls", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/products?offset=-1&limit=-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	assert.Len(t, products, 1)
}

func TestListProductsEmptyIsJSONArray(t *testing.T) {
	_, srv := newTestStack(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCatalogCSV(t *testing.T) {
	shop, srv := newTestStack(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/catalog.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "brand_slug,product_url", lines[0])
	assert.Equal(t, "aco,"+shop.URL+"/aco/serum-1", lines[1])
}

func TestCatalogBrands(t *testing.T) {
	_, srv := newTestStack(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/catalog/brands", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var brands []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &brands))
	require.Len(t, brands, 1)
	assert.Equal(t, "aco", brands[0]["slug"])
}
