// Package metrics provides Prometheus metrics export for the engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports embedding pipeline metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	jobsEnqueued  prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    *prometheus.CounterVec
	jobLatency    prometheus.Histogram

	embeddingLatency    prometheus.Histogram
	relationsDiscovered prometheus.Counter
	queueDepth          prometheus.Gauge
	expiredLeases       prometheus.Counter
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default exporter configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewExporter creates a new metrics exporter.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.jobsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "leafmark",
		Subsystem: "embedding",
		Name:      "jobs_enqueued_total",
		Help:      "Total number of embedding jobs enqueued",
	})

	e.jobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "leafmark",
		Subsystem: "embedding",
		Name:      "jobs_completed_total",
		Help:      "Total number of embedding jobs completed",
	})

	e.jobsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leafmark",
			Subsystem: "embedding",
			Name:      "jobs_failed_total",
			Help:      "Total number of embedding job failures",
		},
		[]string{"outcome"},
	)

	e.jobLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leafmark",
		Subsystem: "embedding",
		Name:      "job_latency_seconds",
		Help:      "Time from lease to completion per job",
		Buckets:   cfg.LatencyBuckets,
	})

	e.embeddingLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leafmark",
		Subsystem: "embedding",
		Name:      "provider_latency_seconds",
		Help:      "Embedding provider call latency in seconds",
		Buckets:   cfg.LatencyBuckets,
	})

	e.relationsDiscovered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "leafmark",
		Subsystem: "relation",
		Name:      "edges_discovered_total",
		Help:      "Total number of relation edges created or refreshed",
	})

	e.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "leafmark",
		Subsystem: "embedding",
		Name:      "queue_depth",
		Help:      "Pending embedding jobs at the last runner tick",
	})

	e.expiredLeases = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "leafmark",
		Subsystem: "embedding",
		Name:      "expired_leases_total",
		Help:      "Total number of leases reclaimed from stalled workers",
	})

	registry.MustRegister(
		e.jobsEnqueued,
		e.jobsCompleted,
		e.jobsFailed,
		e.jobLatency,
		e.embeddingLatency,
		e.relationsDiscovered,
		e.queueDepth,
		e.expiredLeases,
	)

	return e
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) JobEnqueued() {
	e.jobsEnqueued.Inc()
}

func (e *Exporter) JobCompleted(leaseDuration time.Duration) {
	e.jobsCompleted.Inc()
	e.jobLatency.Observe(leaseDuration.Seconds())
}

// JobFailed records one failure; terminal distinguishes exhausted retries
// from requeued jobs.
func (e *Exporter) JobFailed(terminal bool) {
	outcome := "retried"
	if terminal {
		outcome = "terminal"
	}
	e.jobsFailed.WithLabelValues(outcome).Inc()
}

func (e *Exporter) ProviderCall(duration time.Duration) {
	e.embeddingLatency.Observe(duration.Seconds())
}

func (e *Exporter) RelationsDiscovered(count int) {
	e.relationsDiscovered.Add(float64(count))
}

func (e *Exporter) SetQueueDepth(depth int) {
	e.queueDepth.Set(float64(depth))
}

func (e *Exporter) LeasesExpired(count int64) {
	e.expiredLeases.Add(float64(count))
}
