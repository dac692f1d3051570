// Package observability holds the Prometheus collectors shared by the atlas
// binaries and the helpers that record into them.
package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var enabled atomic.Bool

func init() { enabled.Store(true) }

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	rendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renders_total",
			Help: "Figures rendered by outcome (ok, not_found, bad_request, error).",
		},
		[]string{"kind", "outcome"},
	)

	renderDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "render_duration_seconds",
			Help:    "Time spent drawing and encoding a figure.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"kind"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_cache_results_total",
			Help: "Render cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	redisOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis command latency by operation and result.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "result"},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Kafka consumer errors by stage.",
		},
		[]string{"stage"},
	)

	invalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_invalidations_total",
			Help: "Dataset invalidation events applied, by op.",
		},
		[]string{"op"},
	)

	invalidatedKeys = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dataset_invalidated_keys_total",
			Help: "Cached render keys removed by invalidation.",
		},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "atlas_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, upstreamLatencySeconds,
		rendersTotal, renderDurationSeconds, cacheResults, redisOpDuration,
		kafkaConsumerErrors, invalidations, invalidatedKeys, buildInfo,
	}
}

// Init registers the collectors with reg. With on=false the helpers become
// no-ops. Registering into a registry that already has them is not an error.
func Init(reg prometheus.Registerer, on bool) {
	enabled.Store(on)
	if reg == nil || !on {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

// ObserveRender counts one figure of the given kind (variable, capacity_map,
// ...). Duration is only recorded for successful renders.
func ObserveRender(kind, outcome string, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	rendersTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == "ok" {
		renderDurationSeconds.WithLabelValues(kind).Observe(durationSeconds)
	}
}

func IncCacheHit()  { incCache("hit") }
func IncCacheMiss() { incCache("miss") }

func incCache(outcome string) {
	if !enabled.Load() {
		return
	}
	cacheResults.WithLabelValues(outcome).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	if !enabled.Load() {
		return
	}
	res := "ok"
	if err != nil {
		res = "error"
	}
	redisOpDuration.WithLabelValues(op, res).Observe(durationSeconds)
}

func IncKafkaConsumerError(stage string) {
	if !enabled.Load() {
		return
	}
	kafkaConsumerErrors.WithLabelValues(stage).Inc()
}

func ObserveInvalidation(op string, keys int) {
	if !enabled.Load() {
		return
	}
	invalidations.WithLabelValues(op).Inc()
	if keys > 0 {
		invalidatedKeys.Add(float64(keys))
	}
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
