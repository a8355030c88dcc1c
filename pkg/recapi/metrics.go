package recapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the call pipeline. A nil
// collector records nothing. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	retriesTotal  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cacheSize     prometheus.Gauge
	coalesced     *prometheus.CounterVec
	deduplicated  *prometheus.CounterVec
	cancellations prometheus.Counter
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)

	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapi_requests_total",
				Help: "Total number of HTTP exchanges completed by the transport",
			},
			[]string{"method", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recapi_request_duration_seconds",
				Help:    "Duration of single HTTP exchanges in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		callsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapi_calls_total",
				Help: "Total number of settled logical calls",
			},
			[]string{"operation", "state"},
		),
		callDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recapi_call_duration_seconds",
				Help:    "Duration of logical calls including retries in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapi_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"operation", "attempt"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapi_errors_total",
				Help: "Total number of failed calls by error kind",
			},
			[]string{"operation", "kind"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapi_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"operation"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapi_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"operation"},
		),
		cacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "recapi_cache_size",
				Help: "Current number of entries in the response cache",
			},
		),
		coalesced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapi_coalesced_calls_total",
				Help: "Total number of calls folded into a pending coalescing slot",
			},
			[]string{"operation"},
		),
		deduplicated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recapi_deduplicated_calls_total",
				Help: "Total number of calls that shared an in-flight request",
			},
			[]string{"operation"},
		),
		cancellations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "recapi_cancellations_total",
				Help: "Total number of explicit cancellations",
			},
		),
	}
}

// RecordRequest records one HTTP exchange.
func (mc *MetricsCollector) RecordRequest(method string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	mc.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	mc.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordCall records a settled logical call.
func (mc *MetricsCollector) RecordCall(operation string, state CallState, duration time.Duration) {
	if mc == nil {
		return
	}

	mc.callsTotal.WithLabelValues(operation, string(state)).Inc()
	mc.callDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordError records a failed call by kind.
func (mc *MetricsCollector) RecordError(operation string, kind ErrorKind) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(operation, string(kind)).Inc()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(operation string, attempt int) {
	if mc == nil {
		return
	}

	mc.retriesTotal.WithLabelValues(operation, strconv.Itoa(attempt)).Inc()
}

// RecordCacheHit increments the hit counter.
func (mc *MetricsCollector) RecordCacheHit(operation string) {
	if mc == nil {
		return
	}

	mc.cacheHits.WithLabelValues(operation).Inc()
}

// RecordCacheMiss increments the miss counter.
func (mc *MetricsCollector) RecordCacheMiss(operation string) {
	if mc == nil {
		return
	}

	mc.cacheMisses.WithLabelValues(operation).Inc()
}

// RecordCacheSize sets the cache size gauge.
func (mc *MetricsCollector) RecordCacheSize(size int) {
	if mc == nil {
		return
	}

	mc.cacheSize.Set(float64(size))
}

// RecordCoalesced counts a call folded into a pending slot.
func (mc *MetricsCollector) RecordCoalesced(operation string) {
	if mc == nil {
		return
	}

	mc.coalesced.WithLabelValues(operation).Inc()
}

// RecordDeduplicated counts a call that shared an in-flight request.
func (mc *MetricsCollector) RecordDeduplicated(operation string) {
	if mc == nil {
		return
	}

	mc.deduplicated.WithLabelValues(operation).Inc()
}

// RecordCancellation counts an explicit cancellation.
func (mc *MetricsCollector) RecordCancellation() {
	if mc == nil {
		return
	}

	mc.cancellations.Inc()
}
