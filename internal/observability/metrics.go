package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stage label values.
const (
	StageResolve  = "resolve"
	StageDownload = "download"
	StageDecode   = "decode"
	StageProject  = "project"
	StageCache    = "cache_write"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the radar pipeline.
type Metrics struct {
	PipelineRuns    *prometheus.CounterVec   // labels: outcome={upstream,stale,empty}
	StageErrors     *prometheus.CounterVec   // labels: stage
	StageDuration   *prometheus.HistogramVec // labels: stage
	CacheLookups    *prometheus.CounterVec   // labels: result={fresh,miss}
	FeaturesEmitted prometheus.Gauge

	// Upstream metrics.
	ListingRequests *prometheus.CounterVec // labels: outcome={match,empty,partial,error}
	DownloadBytes   prometheus.Counter
	BreakerState    prometheus.Gauge // 0 closed, 1 half-open, 2 open

	HTTPRequests *prometheus.CounterVec // labels: route, code
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.PipelineRuns,
		m.StageErrors,
		m.StageDuration,
		m.CacheLookups,
		m.FeaturesEmitted,
		m.ListingRequests,
		m.DownloadBytes,
		m.BreakerState,
		m.HTTPRequests,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline executions after a cache miss, by outcome.",
		}, []string{"outcome"}),
		StageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar",
			Name:      "stage_errors_total",
			Help:      "Pipeline stage failures by stage.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "radar",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar",
			Name:      "cache_lookups_total",
			Help:      "Fresh-cache lookups by result.",
		}, []string{"result"}),
		FeaturesEmitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "radar",
			Name:      "features_emitted",
			Help:      "Feature count of the most recently produced collection.",
		}),
		ListingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar",
			Name:      "listing_requests_total",
			Help:      "Bucket listing requests by outcome.",
		}, []string{"outcome"}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radar",
			Name:      "download_bytes_total",
			Help:      "Decompressed bytes written by the retriever.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "radar",
			Name:      "upstream_breaker_state",
			Help:      "Upstream circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radar",
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
	}
}
