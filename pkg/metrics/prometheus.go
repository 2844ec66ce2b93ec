// Package metrics provides Prometheus metrics for the dopingplot service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metric subsystems.
const (
	chartSubsystem = "chart"
	httpSubsystem  = "http"
)

// Millisecond buckets for fetch, build and HTTP latencies.
var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // immutable defaults

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace   string
	constLabels prometheus.Labels
	registry    prometheus.Registerer

	// Dataset pipeline
	fetchDuration  prometheus.Histogram
	fetchErrors    prometheus.Counter
	buildDuration  prometheus.Histogram
	renderDuration prometheus.Histogram
	recordsLoaded  prometheus.Gauge
	dopingRecords  prometheus.Gauge
	pipelineErrors *prometheus.CounterVec
	chartReady     prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global manager on a fresh registry with opts. It
// must run before any handler captures GetRegistry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	customRegistry = registry
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "dopingplot",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.fetchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   chartSubsystem,
		Name:        "fetch_duration_milliseconds",
		Help:        "Duration of the dataset fetch in milliseconds",
		Buckets:     defaultBuckets,
		ConstLabels: m.constLabels,
	})

	m.fetchErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   chartSubsystem,
		Name:        "fetch_errors_total",
		Help:        "Total number of failed dataset fetches",
		ConstLabels: m.constLabels,
	})

	m.buildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   chartSubsystem,
		Name:        "build_duration_milliseconds",
		Help:        "Duration of normalization and scale building in milliseconds",
		Buckets:     defaultBuckets,
		ConstLabels: m.constLabels,
	})

	m.renderDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   chartSubsystem,
		Name:        "render_duration_milliseconds",
		Help:        "Duration of SVG rendering in milliseconds",
		Buckets:     defaultBuckets,
		ConstLabels: m.constLabels,
	})

	m.recordsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   chartSubsystem,
		Name:        "records",
		Help:        "Number of records plotted",
		ConstLabels: m.constLabels,
	})

	m.dopingRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   chartSubsystem,
		Name:        "doping_records",
		Help:        "Number of plotted records with a doping allegation",
		ConstLabels: m.constLabels,
	})

	m.pipelineErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   chartSubsystem,
		Name:        "pipeline_errors_total",
		Help:        "Chart pipeline failures by stage and kind",
		ConstLabels: m.constLabels,
	}, []string{"stage", "kind"})

	m.chartReady = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   chartSubsystem,
		Name:        "ready",
		Help:        "1 once the chart has been built, 0 otherwise",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   httpSubsystem,
		Name:        "requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   httpSubsystem,
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     defaultBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   httpSubsystem,
		Name:        "errors_total",
		Help:        "HTTP error responses by endpoint, method and error type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})
}

// RecordFetch records one dataset fetch.
func (m *Manager) RecordFetch(durationMs float64, err error) {
	m.fetchDuration.Observe(durationMs)
	if err != nil {
		m.fetchErrors.Inc()
	}
}

// RecordBuild records the normalization and scale building duration.
func (m *Manager) RecordBuild(durationMs float64) { m.buildDuration.Observe(durationMs) }

// RecordRender records the SVG rendering duration.
func (m *Manager) RecordRender(durationMs float64) { m.renderDuration.Observe(durationMs) }

// RecordPipelineError counts a failed pipeline stage.
func (m *Manager) RecordPipelineError(stage, kind string) {
	m.pipelineErrors.WithLabelValues(stage, kind).Inc()
}

// SetChart publishes the dataset size once the chart is ready.
func (m *Manager) SetChart(records, doping int) {
	m.recordsLoaded.Set(float64(records))
	m.dopingRecords.Set(float64(doping))
	m.chartReady.Set(1)
}

// RecordHTTPRequest counts a served request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError counts an error response.
func (m *Manager) RecordHTTPError(endpoint, method, errorType string) {
	m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// Package-level helpers delegate to the global manager.

// RecordFetch records one dataset fetch on the global manager.
func RecordFetch(durationMs float64, err error) { globalManager.RecordFetch(durationMs, err) }

// RecordBuild records a build duration on the global manager.
func RecordBuild(durationMs float64) { globalManager.RecordBuild(durationMs) }

// RecordRender records a render duration on the global manager.
func RecordRender(durationMs float64) { globalManager.RecordRender(durationMs) }

// RecordPipelineError counts a failed stage on the global manager.
func RecordPipelineError(stage, kind string) { globalManager.RecordPipelineError(stage, kind) }

// SetChart publishes chart gauges on the global manager.
func SetChart(records, doping int) { globalManager.SetChart(records, doping) }

// RecordHTTPRequest records a request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordHTTPError records an error response on the global manager.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.RecordHTTPError(endpoint, method, errorType)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// gatherValue returns the current value of a metric family, summed across
// label sets. Histograms report their sample count.
func gatherValue(g prometheus.Gatherer, name string) (float64, error) {
	families, err := g.Gather()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGather, err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				sum += m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				sum += m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				sum += float64(m.GetHistogram().GetSampleCount())
			default:
				sum += m.GetUntyped().GetValue()
			}
		}
		return sum, nil
	}
	return 0, fmt.Errorf("%w: metric %q not found", ErrGather, name)
}
