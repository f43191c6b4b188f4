// Package metrics provides Prometheus metrics for monitoring PageScope.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts total requests by endpoint and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagescope_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "status"},
	)

	// RequestDuration tracks request duration by endpoint.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagescope_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~400s
		},
		[]string{"endpoint"},
	)

	// AnalysesTotal counts completed analyses by outcome code.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagescope_analyses_total",
			Help: "Total analyses by outcome",
		},
		[]string{"outcome"},
	)

	// AnalysisDuration tracks end-to-end analysis duration.
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagescope_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~128s
		},
	)

	// BrowserPoolSize shows the configured pool size.
	BrowserPoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagescope_browser_pool_size",
			Help: "Configured browser pool size",
		},
	)

	// BrowserPoolAvailable shows available browsers in the pool.
	BrowserPoolAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagescope_browser_pool_available",
			Help: "Available browsers in pool",
		},
	)

	// BrowserPoolAcquired counts total browser acquisitions.
	BrowserPoolAcquired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pagescope_browser_pool_acquired_total",
			Help: "Total browser acquisitions from pool",
		},
	)

	// BrowserPoolRecycled counts browser recycles.
	BrowserPoolRecycled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pagescope_browser_pool_recycled_total",
			Help: "Total browsers recycled",
		},
	)

	// PoolWaitDuration tracks how long requests wait for a browser.
	PoolWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagescope_pool_wait_duration_seconds",
			Help:    "Time spent waiting for a browser from the pool",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
	)

	// ActiveAnalyses shows analyses currently in flight.
	ActiveAnalyses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagescope_active_analyses",
			Help: "Number of analyses currently in flight",
		},
	)

	// MemoryUsageBytes shows current memory usage.
	MemoryUsageBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagescope_memory_usage_bytes",
			Help: "Current memory usage in bytes (alloc)",
		},
	)

	// MemorySysBytes shows system memory obtained.
	MemorySysBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagescope_memory_sys_bytes",
			Help: "Total memory obtained from system",
		},
	)

	// GoroutineCount shows current goroutine count.
	GoroutineCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pagescope_goroutines",
			Help: "Current number of goroutines",
		},
	)

	// BuildInfo provides build information as labels.
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pagescope_build_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AnalysesTotal,
		AnalysisDuration,
		BrowserPoolSize,
		BrowserPoolAvailable,
		BrowserPoolAcquired,
		BrowserPoolRecycled,
		PoolWaitDuration,
		ActiveAnalyses,
		MemoryUsageBytes,
		MemorySysBytes,
		GoroutineCount,
		BuildInfo,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// RecordRequest records metrics for a completed request.
func RecordRequest(endpoint, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAnalysis records a completed analysis. Outcome is "success" or
// the taxonomy error code.
func RecordAnalysis(outcome string, duration time.Duration) {
	AnalysesTotal.WithLabelValues(outcome).Inc()
	AnalysisDuration.Observe(duration.Seconds())
}

// UpdatePoolMetrics updates the pool occupancy gauges.
func UpdatePoolMetrics(size, available int) {
	BrowserPoolSize.Set(float64(size))
	BrowserPoolAvailable.Set(float64(available))
}

// StartMemoryCollector starts a goroutine that periodically updates memory metrics.
func StartMemoryCollector(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			updateMemoryMetrics()
		case <-stopCh:
			return
		}
	}
}

func updateMemoryMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryUsageBytes.Set(float64(m.Alloc))
	MemorySysBytes.Set(float64(m.Sys))
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}
