// Package metrics provides Prometheus metrics for the AED placement pipeline and dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Routing Metrics - one request per active cost-matrix cell or dashboard click
	routingRequests *prometheus.CounterVec
	routingLatency  *prometheus.HistogramVec
	routingNoRoute  *prometheus.CounterVec

	// Cost Matrix Metrics
	cellsActive    prometheus.Counter
	cellsResolved  prometheus.Counter
	cellsUnknown   prometheus.Counter
	buildsSkipped  prometheus.Counter
	resolveWorkers prometheus.Gauge
	queueSize      prometheus.Gauge

	// Sampling Metrics
	candidatesSampled *prometheus.GaugeVec
	candidatesKept    *prometheus.GaugeVec

	// Solver Metrics
	solverNodes     prometheus.Counter
	solverDuration  prometheus.Histogram
	solverObjective *prometheus.GaugeVec
	solverFailures  *prometheus.CounterVec

	// Coverage Metrics
	coveragePercent *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "aed",
		subsystem:        "placement",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.routingRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "routing_requests_total",
		Help:      "Requests sent to the external routing service by API and outcome",
	}, []string{"api", "outcome"})

	m.routingLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "routing_latency_seconds",
		Help:      "Latency of external routing requests",
		Buckets:   m.histogramBuckets,
	}, []string{"api"})

	m.routingNoRoute = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "routing_no_route_total",
		Help:      "Routing answers that carried no route, by element status",
	}, []string{"status"})

	m.cellsActive = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cost_cells_active_total",
		Help:      "Cost matrix cells selected as k-nearest and eligible for resolution",
	})

	m.cellsResolved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cost_cells_resolved_total",
		Help:      "Cost matrix cells resolved to a walking distance",
	})

	m.cellsUnknown = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cost_cells_unknown_total",
		Help:      "Cost matrix cells left unknown because no route was returned",
	})

	m.buildsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cost_builds_skipped_total",
		Help:      "Cost matrix builds declined at the confirmation prompt",
	})

	m.resolveWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolve_workers",
		Help:      "Number of workers resolving cost cells",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolve_queue_size",
		Help:      "Cost cells waiting for resolution",
	})

	m.candidatesSampled = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidates_sampled",
		Help:      "Candidate sites sampled along streets before deduplication",
	}, []string{"city"})

	m.candidatesKept = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidates_kept",
		Help:      "Candidate sites kept after deduplication",
	}, []string{"city"})

	m.solverNodes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solver_nodes_total",
		Help:      "Branch-and-bound nodes explored by the MCLP solver",
	})

	m.solverDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solver_duration_seconds",
		Help:      "Wall time of MCLP solves",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
	})

	m.solverObjective = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solver_objective",
		Help:      "Weighted number of incidents covered by the last solve",
	}, []string{"city"})

	m.solverFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solver_failures_total",
		Help:      "MCLP solves that ended without a solution",
	}, []string{"reason"})

	m.coveragePercent = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "coverage_percent",
		Help:      "Share of incidents covered within the coverage radius",
	}, []string{"city", "scenario"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})
}

// Routing Metrics Functions.

// RecordRoutingRequest counts one routing request with its outcome (ok, no_route, error).
func RecordRoutingRequest(api, outcome string) {
	globalManager.routingRequests.WithLabelValues(api, outcome).Inc()
}

// RecordRoutingLatency records routing request latency in seconds.
func RecordRoutingLatency(api string, seconds float64) {
	globalManager.routingLatency.WithLabelValues(api).Observe(seconds)
}

// RecordRoutingNoRoute counts an element that came back without a route.
func RecordRoutingNoRoute(status string) {
	globalManager.routingNoRoute.WithLabelValues(status).Inc()
}

// Cost Matrix Metrics Functions.

// RecordCellsActive adds n to the active cell counter.
func RecordCellsActive(n int) {
	globalManager.cellsActive.Add(float64(n))
}

// RecordCellResolved increments the resolved cell counter.
func RecordCellResolved() {
	globalManager.cellsResolved.Inc()
}

// RecordCellUnknown increments the unknown cell counter.
func RecordCellUnknown() {
	globalManager.cellsUnknown.Inc()
}

// RecordBuildSkipped increments the declined build counter.
func RecordBuildSkipped() {
	globalManager.buildsSkipped.Inc()
}

// UpdateResolveWorkers sets the resolver worker count.
func UpdateResolveWorkers(count int) {
	globalManager.resolveWorkers.Set(float64(count))
}

// UpdateQueueSize sets the current resolve queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// Sampling Metrics Functions.

// UpdateCandidates sets sampled and kept candidate counts for a city.
func UpdateCandidates(city string, sampled, kept int) {
	globalManager.candidatesSampled.WithLabelValues(city).Set(float64(sampled))
	globalManager.candidatesKept.WithLabelValues(city).Set(float64(kept))
}

// Solver Metrics Functions.

// RecordSolverNodes adds explored branch-and-bound nodes.
func RecordSolverNodes(n int) {
	globalManager.solverNodes.Add(float64(n))
}

// RecordSolverDuration records solve wall time in seconds.
func RecordSolverDuration(seconds float64) {
	globalManager.solverDuration.Observe(seconds)
}

// UpdateSolverObjective sets the objective of the last solve for a city.
func UpdateSolverObjective(city string, objective float64) {
	globalManager.solverObjective.WithLabelValues(city).Set(objective)
}

// RecordSolverFailure counts a failed solve.
func RecordSolverFailure(reason string) {
	globalManager.solverFailures.WithLabelValues(reason).Inc()
}

// UpdateCoverage sets the coverage percentage of a city for a scenario (old, new).
func UpdateCoverage(city, scenario string, percent float64) {
	globalManager.coveragePercent.WithLabelValues(city, scenario).Set(percent)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
