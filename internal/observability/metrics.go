package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the crawler's Prometheus instrumentation on a private
// registry so tests can create as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	// FetchesTotal counts fetch outcomes, labeled ok/error.
	FetchesTotal *prometheus.CounterVec

	// FetchDuration observes wall-clock seconds per fetch.
	FetchDuration prometheus.Histogram

	// ExtractedTotal counts product records produced.
	ExtractedTotal prometheus.Counter

	// RunsTotal counts orchestrated runs, labeled by mode and status.
	RunsTotal *prometheus.CounterVec

	// RunDuration observes wall-clock seconds per run, labeled by mode.
	RunDuration *prometheus.HistogramVec

	// WorkersBusy tracks workers currently holding a fetch or parse.
	WorkersBusy prometheus.Gauge
}

// NewMetrics creates a Metrics instance backed by a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beautycrawl",
			Name:      "fetches_total",
			Help:      "HTTP fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "beautycrawl",
			Name:      "fetch_duration_seconds",
			Help:      "Fetch wall-clock duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		ExtractedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "beautycrawl",
			Name:      "products_extracted_total",
			Help:      "Product records extracted.",
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beautycrawl",
			Name:      "runs_total",
			Help:      "Orchestrated runs by mode and status.",
		}, []string{"mode", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "beautycrawl",
			Name:      "run_duration_seconds",
			Help:      "Run wall-clock duration by mode.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"mode"}),
		WorkersBusy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "beautycrawl",
			Name:      "workers_busy",
			Help:      "Workers currently processing a URL.",
		}),
	}
}

// Handler serves the metrics registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server builds the dedicated exporter listener: the metrics path on its
// own port, separate from the API server.
func (m *Metrics) Server(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET "+path, m.Handler())
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}
