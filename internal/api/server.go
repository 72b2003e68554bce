package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/skarsvik/beautycrawl/internal/catalog"
	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/runner"
	"github.com/skarsvik/beautycrawl/internal/store"
	"github.com/skarsvik/beautycrawl/internal/types"
)

// Server provides the REST surface: scrape commands in, JSON/CSV out.
// Prometheus metrics are served by a separate listener, not here.
type Server struct {
	mux     *http.ServeMux
	httpSrv *http.Server
	cfg     *config.Config
	runner  *runner.Runner
	catalog *catalog.Crawler
	store   store.Store
	logger  *slog.Logger
}

// NewServer wires the serving layer. The catalog crawler may be nil;
// its endpoints respond 503.
func NewServer(cfg *config.Config, r *runner.Runner, cat *catalog.Crawler, st store.Store, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		runner:  r,
		catalog: cat,
		store:   st,
		logger:  logger.With("component", "api_server"),
	}
	s.registerRoutes()
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("POST /api/scrape/domain", s.handleScrapeDomain)
	s.mux.HandleFunc("POST /api/scrape/urls", s.handleScrapeURLs)
	s.mux.HandleFunc("POST /api/scrape/all", s.handleScrapeAll)

	s.mux.HandleFunc("GET /api/catalog.csv", s.handleCatalogCSV)
	s.mux.HandleFunc("GET /api/catalog/brands", s.handleCatalogBrands)

	s.mux.HandleFunc("GET /api/products", s.handleListProducts)
	s.mux.HandleFunc("GET /api/providers", s.handleListProviders)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	storage := "ok"
	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded"
		storage = err.Error()
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  status,
		"storage": storage,
		"version": config.Version,
	})
}

// runResponse is the shared shape of every scrape endpoint's reply.
type runResponse struct {
	RunID     string `json:"run_id"`
	Domain    string `json:"domain,omitempty"`
	Attempted int    `json:"attempted"`
	Extracted int    `json:"extracted"`
	Created   int    `json:"created"`
}

func (s *Server) handleScrapeDomain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Domain string `json:"domain"`
		Limit  int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if body.Domain == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "domain is required"})
		return
	}

	result, err := s.runner.RunDomain(r.Context(), body.Domain, body.Limit)
	if err != nil {
		s.runError(w, err)
		return
	}

	created, err := store.Ingest(r.Context(), s.store, result.Records, []string{"scraped", result.Domain})
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.jsonResponse(w, http.StatusOK, runResponse{
		RunID:     uuid.NewString(),
		Domain:    result.Domain,
		Attempted: result.Attempted,
		Extracted: result.Extracted,
		Created:   created,
	})
}

func (s *Server) handleScrapeURLs(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URLs   []string `json:"urls"`
		Domain string   `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	result, err := s.runner.RunURLs(r.Context(), body.Domain, body.URLs)
	if err != nil {
		s.runError(w, err)
		return
	}

	created, err := store.Ingest(r.Context(), s.store, result.Records, []string{"scraped", result.Domain})
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.jsonResponse(w, http.StatusOK, runResponse{
		RunID:     uuid.NewString(),
		Domain:    result.Domain,
		Attempted: result.Attempted,
		Extracted: result.Extracted,
		Created:   created,
	})
}

// handleScrapeAll runs every configured target domain. A failing domain
// is reported but never aborts the others.
func (s *Server) handleScrapeAll(w http.ResponseWriter, r *http.Request) {
	type domainOutcome struct {
		Domain    string `json:"domain"`
		Attempted int    `json:"attempted"`
		Extracted int    `json:"extracted"`
		Created   int    `json:"created"`
		Error     string `json:"error,omitempty"`
	}

	limitPerDomain := s.queryInt(r, "limit_per_domain", 0)

	outcomes := make([]domainOutcome, 0, len(s.cfg.Crawl.TargetDomains))
	totalCreated := 0

	for _, domain := range s.cfg.Crawl.TargetDomains {
		if r.Context().Err() != nil {
			break
		}

		outcome := domainOutcome{Domain: domain}
		result, err := s.runner.RunDomain(r.Context(), domain, limitPerDomain)
		if err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		created, err := store.Ingest(r.Context(), s.store, result.Records, []string{"scraped", domain})
		if err != nil {
			outcome.Error = err.Error()
		}
		outcome.Attempted = result.Attempted
		outcome.Extracted = result.Extracted
		outcome.Created = created
		totalCreated += created
		outcomes = append(outcomes, outcome)
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"run_id":  uuid.NewString(),
		"created": totalCreated,
		"domains": outcomes,
	})
}

// handleCatalogCSV streams the brand catalog as two-column CSV.
func (s *Server) handleCatalogCSV(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog crawler not configured"})
		return
	}

	maxBrands := s.queryInt(r, "max_brands", s.cfg.Catalog.MaxBrands)
	maxPages := s.queryInt(r, "max_pages_per_brand", s.cfg.Catalog.MaxPagesPerBrand)

	entries, err := s.catalog.ListAllProducts(r.Context(), maxBrands, maxPages)
	if err != nil {
		s.jsonResponse(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename=catalog.csv`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"brand_slug", "product_url"})
	for _, entry := range entries {
		if err := cw.Write([]string{entry.BrandSlug, entry.ProductURL}); err != nil {
			s.logger.Debug("catalog stream aborted", "error", err)
			return
		}
	}
	cw.Flush()
}

func (s *Server) handleCatalogBrands(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog crawler not configured"})
		return
	}

	maxBrands := s.queryInt(r, "max_brands", s.cfg.Catalog.MaxBrands)
	brands, err := s.catalog.ListBrands(r.Context(), maxBrands)
	if err != nil {
		s.jsonResponse(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, brands)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter := store.ProductFilter{
		ProviderID: r.URL.Query().Get("provider_id"),
		Query:      r.URL.Query().Get("q"),
		Ingredient: r.URL.Query().Get("ingredient"),
		Limit:      s.queryInt(r, "limit", 50),
		Offset:     s.queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("min_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &f
		}
	}
	if v := r.URL.Query().Get("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &f
		}
	}

	products, err := s.store.ListProducts(r.Context(), filter)
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if products == nil {
		products = []*store.Product{}
	}
	s.jsonResponse(w, http.StatusOK, products)
}

func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.store.ListProviders(r.Context(), store.ProviderFilter{
		Query:  r.URL.Query().Get("q"),
		Limit:  s.queryInt(r, "limit", 50),
		Offset: s.queryInt(r, "offset", 0),
	})
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if providers == nil {
		providers = []*store.Provider{}
	}
	s.jsonResponse(w, http.StatusOK, providers)
}

// runError maps orchestrator errors to HTTP statuses: configuration
// errors are the client's fault, everything else is upstream.
func (s *Server) runError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNoURLs), errors.Is(err, types.ErrInvalidURL):
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, types.ErrNoSitemap):
		s.jsonResponse(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("response encode failed", "error", err)
	}
}
