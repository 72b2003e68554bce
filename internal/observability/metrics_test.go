package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServerExposesRegisteredMetrics(t *testing.T) {
	m := NewMetrics()
	m.FetchesTotal.WithLabelValues("ok").Inc()
	m.ExtractedTotal.Add(3)

	srv := m.Server(9090, "/metrics")
	if srv.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090", srv.Addr)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"beautycrawl_fetches_total",
		"beautycrawl_products_extracted_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}

func TestServerServesOnlyMetricsPath(t *testing.T) {
	srv := NewMetrics().Server(9090, "/metrics")

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
