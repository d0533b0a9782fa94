package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Editor Layer
	EditorSessionsActive GaugeVec
	EditorEventsTotal    CounterVec
	EditorToolSelections CounterVec
	EditorAtomsPlaced    CounterVec
	EditorBondsCreated   CounterVec

	// Orchestrator Layer
	ResolveRequestsTotal CounterVec
	ResolveDuration      HistogramVec
	AnalyzeRequestsTotal CounterVec
	AnalyzeDuration      HistogramVec
	FallbackTotal        CounterVec
	RetryTotal           CounterVec
	StaleDiscardsTotal   CounterVec

	// Provider Layer
	ProviderRequestsTotal CounterVec
	ProviderDuration      HistogramVec

	// Infrastructure Layer
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	DBQueryDuration  HistogramVec

	// System Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultProviderDurationBuckets = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	DefaultDBDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics and returns the AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Editor
	m.EditorSessionsActive = collector.RegisterGauge("editor_sessions_active", "Live editor sessions")
	m.EditorEventsTotal = collector.RegisterCounter("editor_events_total", "Pointer events processed", "phase", "tool")
	m.EditorToolSelections = collector.RegisterCounter("editor_tool_selections_total", "Tool selections", "tool")
	m.EditorAtomsPlaced = collector.RegisterCounter("editor_atoms_placed_total", "Atoms placed", "element")
	m.EditorBondsCreated = collector.RegisterCounter("editor_bonds_created_total", "Bonds created", "order")

	// Orchestrator
	m.ResolveRequestsTotal = collector.RegisterCounter("resolve_requests_total", "Resolve requests", "outcome", "source")
	m.ResolveDuration = collector.RegisterHistogram("resolve_duration_seconds", "Resolve duration", DefaultProviderDurationBuckets, "source")
	m.AnalyzeRequestsTotal = collector.RegisterCounter("analyze_requests_total", "Analyze requests", "outcome", "source")
	m.AnalyzeDuration = collector.RegisterHistogram("analyze_duration_seconds", "Analyze duration", DefaultProviderDurationBuckets, "source")
	m.FallbackTotal = collector.RegisterCounter("fallback_total", "Fallbacks to the secondary source", "operation", "reason")
	m.RetryTotal = collector.RegisterCounter("retry_total", "Rate-limit retries against the primary provider", "operation")
	m.StaleDiscardsTotal = collector.RegisterCounter("stale_discards_total", "Results discarded because a newer request superseded them", "operation")

	// Provider
	m.ProviderRequestsTotal = collector.RegisterCounter("provider_requests_total", "External provider requests", "provider", "operation", "status")
	m.ProviderDuration = collector.RegisterHistogram("provider_request_duration_seconds", "External provider request duration", DefaultProviderDurationBuckets, "provider", "operation")

	// Infrastructure
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")

	// System Health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_code")

	return m
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordProviderCall(metrics *AppMetrics, provider, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	metrics.ProviderDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, errorCode string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorCode).Inc()
}
