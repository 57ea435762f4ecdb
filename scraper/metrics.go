package scraper

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for one report run.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	ErrorsTotal        *prometheus.CounterVec
	ProductsExtracted  prometheus.Counter
	ProductPrice       prometheus.Histogram
	StageFailuresTotal *prometheus.CounterVec
	LastRunSuccess     prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total catalogue requests by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for catalogue requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_products_extracted_total",
			Help: "Total number of products extracted from the catalogue page.",
		},
	)
	price := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_product_price",
			Help:    "Distribution of extracted product prices.",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)
	stageFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_stage_failures_total",
			Help: "Total number of pipeline stage failures by error kind.",
		},
		[]string{"kind"},
	)
	lastRun := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_last_run_success",
			Help: "1 if the last run produced a report, 0 otherwise.",
		},
	)

	registry.MustRegister(requests, requestDuration, errorsTotal, products, price, stageFailures, lastRun)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		ErrorsTotal:        errorsTotal,
		ProductsExtracted:  products,
		ProductPrice:       price,
		StageFailuresTotal: stageFailures,
		LastRunSuccess:     lastRun,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObserveProduct counts an extracted product and records its price.
func (m *Metrics) ObserveProduct(price float64) {
	if m == nil {
		return
	}
	m.ProductsExtracted.Inc()
	m.ProductPrice.Observe(price)
}

// IncStageFailure increments the stage failure counter for an error kind.
func (m *Metrics) IncStageFailure(kind string) {
	if m == nil {
		return
	}
	m.StageFailuresTotal.WithLabelValues(kind).Inc()
}

// SetRunSuccess records the terminal status of the run.
func (m *Metrics) SetRunSuccess(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.LastRunSuccess.Set(1)
		return
	}
	m.LastRunSuccess.Set(0)
}

// WriteTextfile dumps the registry in the text exposition format, for
// collection by the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
