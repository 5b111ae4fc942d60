// Package metrics exposes the streaming core's Prometheus collectors.
// Wired per SPEC_FULL.md's domain-stack survey of the retrieved pack's
// other_examples manifests (several standalone repos in the corpus
// depend on prometheus/client_golang for service metrics); eleven-am/goshl
// itself ships no metrics of its own, so the registration shape follows
// client_golang's own promauto idiom rather than any one example file.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors groups every metric the core publishes.
type Collectors struct {
	CacheTotalBytes   prometheus.Gauge
	CacheMediaCount   prometheus.Gauge
	CacheSegmentCount prometheus.Gauge
	DiskFreeBytes     prometheus.Gauge

	GenerationDuration *prometheus.HistogramVec
	GenerationFailures *prometheus.CounterVec

	SweepDeletions prometheus.Counter
	SweepFreedByte prometheus.Counter
}

// New registers every collector against its own registry so the
// process can mount /metrics independent of the default global
// registry.
func New() (*Collectors, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collectors{
		CacheTotalBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "mediastream", Subsystem: "hlscache", Name: "total_bytes",
			Help: "Total bytes currently occupied by the on-disk HLS segment cache.",
		}),
		CacheMediaCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "mediastream", Subsystem: "hlscache", Name: "media_count",
			Help: "Number of distinct media items with at least one cached segment.",
		}),
		CacheSegmentCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "mediastream", Subsystem: "hlscache", Name: "segment_count",
			Help: "Number of cached MPEG-TS segment files on disk.",
		}),
		DiskFreeBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "mediastream", Subsystem: "hlscache", Name: "disk_free_bytes",
			Help: "Free space remaining on the cache root's filesystem.",
		}),
		GenerationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediastream", Subsystem: "hlscache", Name: "generation_duration_seconds",
			Help:    "Wall-clock duration of a segment transcoder invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tier"}),
		GenerationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediastream", Subsystem: "hlscache", Name: "generation_failures_total",
			Help: "Segment generations whose transcoder exited non-zero or produced empty output.",
		}, []string{"tier"}),
		SweepDeletions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastream", Subsystem: "cleanup", Name: "sweep_deletions_total",
			Help: "Segment and playlist files removed by TTL sweeps.",
		}),
		SweepFreedByte: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastream", Subsystem: "cleanup", Name: "sweep_freed_bytes_total",
			Help: "Bytes freed by TTL sweeps.",
		}),
	}, reg
}

// Handler returns the HTTP handler serving this registry's metrics in
// the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
